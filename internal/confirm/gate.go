// Package confirm asks a human to approve a prompt before anything leaves the
// machine.
package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Explanation is shown before the prompt itself.
const Explanation = "The prompt on the following screen will be passed to a third-party large language model API. " +
	"You will have a chance on the third screen to decide whether to cancel this prompt prior to sending."

// Question is the final yes/no screen.
const Question = "Would you like to send this prompt?"

// Gate returns true only when the prompt may be sent.
type Gate interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// GateFunc adapts a function to Gate.
type GateFunc func(ctx context.Context, prompt string) (bool, error)

func (f GateFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// Fixed answers every prompt with the same decision. Only tests use it.
type Fixed bool

func (f Fixed) Confirm(ctx context.Context, _ string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return bool(f), nil
}

// Line is a plain-text gate for terminals without TTY support or piped input.
// Only "y" or "yes" approves; EOF declines.
type Line struct {
	In  io.Reader
	Out io.Writer
}

func (l Line) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(l.Out, "%s\n\n--- prompt ---\n%s\n--- end prompt ---\n\n%s [y/N]: ", Explanation, prompt, Question)
	line, err := bufio.NewReader(l.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
