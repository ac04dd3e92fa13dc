// Package pipeline runs one request end to end: summarize, compose, ask the
// human, and only then call the completion service.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KaramelBytes/datavizard/internal/ai"
	"github.com/KaramelBytes/datavizard/internal/confirm"
	"github.com/KaramelBytes/datavizard/internal/prompt"
	"github.com/KaramelBytes/datavizard/internal/snippets"
	"github.com/KaramelBytes/datavizard/internal/summary"
	"github.com/KaramelBytes/datavizard/internal/table"
	"github.com/KaramelBytes/datavizard/internal/utils"
)

// Request is one summarization request.
type Request struct {
	Table   *table.Table
	Columns []string
	Notes   string
}

// Deps are the capabilities a run needs. Gate and Completer are required for
// Run and Refine; Summarizer and Logger default when nil.
type Deps struct {
	Summarizer *summary.Summarizer
	Gate       confirm.Gate
	Completer  ai.Completer
	Logger     *slog.Logger
	// MaxPromptTokens rejects oversized prompts before confirmation; 0 disables.
	MaxPromptTokens int
}

// Outcome is the immutable result of one run. Response and Snippets are
// empty unless Approved.
type Outcome struct {
	Summary  *summary.Summary
	Prompt   string
	Approved bool
	Response string
	Snippets []snippets.Snippet
	Elapsed  time.Duration
}

var (
	ErrNoGate      = errors.New("pipeline: confirmation gate is required")
	ErrNoCompleter = errors.New("pipeline: completer is required")
	ErrNoTable     = errors.New("pipeline: table is required")
)

// Preview summarizes and composes without contacting anyone.
func Preview(req Request, deps Deps) (Outcome, error) {
	if req.Table == nil {
		return Outcome{}, ErrNoTable
	}
	s, err := summarizer(deps).Summarize(req.Table, req.Columns)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Summary: s, Prompt: prompt.ComposeSummary(s, req.Table.Rows(), req.Notes)}, nil
}

// Run previews, asks the gate, and sends the prompt only when approved.
// Declining is not an error: the Outcome has Approved == false and the
// completer is never called. Completion errors are returned wrapped.
func Run(ctx context.Context, req Request, deps Deps) (Outcome, error) {
	if deps.Gate == nil {
		return Outcome{}, ErrNoGate
	}
	if deps.Completer == nil {
		return Outcome{}, ErrNoCompleter
	}
	out, err := Preview(req, deps)
	if err != nil {
		return Outcome{}, err
	}
	return Send(ctx, out, deps)
}

// Send takes a previewed Outcome through the gate and the completer. Callers
// that show the preview themselves use it in place of Run.
func Send(ctx context.Context, out Outcome, deps Deps) (Outcome, error) {
	if deps.Gate == nil {
		return out, ErrNoGate
	}
	if deps.Completer == nil {
		return out, ErrNoCompleter
	}
	log := logger(deps)
	if out.Summary != nil {
		log.Debug("prompt composed", "variables", len(out.Summary.Variables), "skipped", len(out.Summary.Skipped), "tokens", utils.CountTokens(out.Prompt))
	}
	return send(ctx, out, deps, log)
}

// Refine asks the model to improve code according to feedback, through the
// same gate.
func Refine(ctx context.Context, code, feedback string, deps Deps) (Outcome, error) {
	if deps.Gate == nil {
		return Outcome{}, ErrNoGate
	}
	if deps.Completer == nil {
		return Outcome{}, ErrNoCompleter
	}
	return send(ctx, Outcome{Prompt: prompt.ComposeFollowUp(code, feedback)}, deps, logger(deps))
}

func send(ctx context.Context, out Outcome, deps Deps, log *slog.Logger) (Outcome, error) {
	if err := utils.CheckTokenBudget(out.Prompt, deps.MaxPromptTokens); err != nil {
		return out, err
	}
	ok, err := deps.Gate.Confirm(ctx, out.Prompt)
	if err != nil {
		return out, fmt.Errorf("confirm prompt: %w", err)
	}
	if !ok {
		log.Info("prompt declined; nothing sent")
		return out, nil
	}
	out.Approved = true

	start := time.Now()
	resp, err := deps.Completer.Complete(ctx, out.Prompt)
	out.Elapsed = time.Since(start)
	if err != nil {
		log.Warn("completion failed", "error", err, "elapsed", out.Elapsed)
		return out, fmt.Errorf("completion: %w", err)
	}
	out.Response = resp
	out.Snippets = snippets.Extract(resp)
	log.Info("completion received", "snippets", len(out.Snippets), "elapsed", out.Elapsed)
	return out, nil
}

func summarizer(deps Deps) *summary.Summarizer {
	if deps.Summarizer != nil {
		return deps.Summarizer
	}
	return summary.New(deps.Logger)
}

func logger(deps Deps) *slog.Logger {
	if deps.Logger != nil {
		return deps.Logger
	}
	return slog.New(slog.DiscardHandler)
}
