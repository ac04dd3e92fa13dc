package confirm

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

// Terminal runs a three-screen form: an explanation, the prompt itself, then
// a Yes/No confirmation.
type Terminal struct {
	Title string
}

// NewTerminal returns a Terminal gate titled "Validate prompt".
func NewTerminal() *Terminal { return &Terminal{Title: "Validate prompt"} }

func (t *Terminal) form(prompt string, send *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(t.Title).
				Description(Explanation).
				Next(true),
		),
		huh.NewGroup(
			huh.NewNote().
				Title(t.Title).
				Description(prompt).
				Next(true),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title(Question).
				Affirmative("Yes").
				Negative("No").
				Value(send),
		),
	).WithTheme(Theme())
}

// Confirm treats an aborted form (ctrl+c, esc) as a decline.
func (t *Terminal) Confirm(ctx context.Context, prompt string) (bool, error) {
	var send bool
	if err := t.form(prompt, &send).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("confirmation form: %w", err)
	}
	return send, nil
}
