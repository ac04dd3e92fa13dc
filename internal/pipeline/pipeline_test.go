package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datavizard/internal/ai"
	"github.com/KaramelBytes/datavizard/internal/confirm"
	"github.com/KaramelBytes/datavizard/internal/summary"
	"github.com/KaramelBytes/datavizard/internal/table"
	"github.com/KaramelBytes/datavizard/internal/utils"
)

func salesTable() *table.Table {
	return table.MustNew("sales",
		table.NewNumeric("price", table.Float, []float64{1, 2, 3, 4}, nil),
		table.NewStrings("region", table.Category, []string{"n", "s", "n", "e"}, nil),
	)
}

type recorder struct {
	calls   int
	prompts []string
	reply   string
	err     error
}

func (r *recorder) Complete(_ context.Context, prompt string) (string, error) {
	r.calls++
	r.prompts = append(r.prompts, prompt)
	return r.reply, r.err
}

func TestRunApprovedSendsComposedPrompt(t *testing.T) {
	rec := &recorder{reply: "one\n```python\nsns.histplot(df['price'])\n```\n"}
	var gated string
	gate := confirm.GateFunc(func(_ context.Context, p string) (bool, error) {
		gated = p
		return true, nil
	})

	out, err := Run(context.Background(), Request{Table: salesTable(), Columns: []string{"price", "region"}, Notes: "use seaborn"},
		Deps{Gate: gate, Completer: rec})
	require.NoError(t, err)

	assert.True(t, out.Approved)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, out.Prompt, gated, "the gate sees exactly what is sent")
	assert.Equal(t, out.Prompt, rec.prompts[0])
	assert.Contains(t, out.Prompt, "Variable #1 is price.")
	assert.Contains(t, out.Prompt, "it has 4 datapoints")
	assert.Contains(t, out.Prompt, "<use seaborn>")
	require.Len(t, out.Snippets, 1)
	assert.Equal(t, "sns.histplot(df['price'])", out.Snippets[0].Code)
	require.Len(t, out.Summary.Variables, 2)
}

func TestRunDeclinedNeverCallsCompleter(t *testing.T) {
	rec := &recorder{reply: "unused"}
	out, err := Run(context.Background(), Request{Table: salesTable(), Columns: []string{"price"}},
		Deps{Gate: confirm.Fixed(false), Completer: rec})
	require.NoError(t, err)
	assert.False(t, out.Approved)
	assert.Zero(t, rec.calls)
	assert.Empty(t, out.Response)
	assert.Empty(t, out.Snippets)
	assert.NotEmpty(t, out.Prompt)
}

func TestRunMissingColumnStopsBeforeGate(t *testing.T) {
	asked := false
	gate := confirm.GateFunc(func(context.Context, string) (bool, error) {
		asked = true
		return true, nil
	})
	rec := &recorder{}
	_, err := Run(context.Background(), Request{Table: salesTable(), Columns: []string{"price", "nope"}},
		Deps{Gate: gate, Completer: rec})
	require.Error(t, err)
	assert.True(t, errors.Is(err, summary.ErrColumnNotFound))
	assert.False(t, asked)
	assert.Zero(t, rec.calls)
}

func TestRunCompleterErrorIsWrapped(t *testing.T) {
	rec := &recorder{err: &ai.AuthError{APIError: &ai.APIError{StatusCode: 401}}}
	out, err := Run(context.Background(), Request{Table: salesTable(), Columns: []string{"price"}},
		Deps{Gate: confirm.Fixed(true), Completer: rec})
	require.Error(t, err)
	var auth *ai.AuthError
	assert.True(t, errors.As(err, &auth))
	assert.True(t, out.Approved)
	assert.Empty(t, out.Response)
}

func TestRunGateErrorIsReturned(t *testing.T) {
	boom := errors.New("tty gone")
	gate := confirm.GateFunc(func(context.Context, string) (bool, error) { return false, boom })
	rec := &recorder{}
	_, err := Run(context.Background(), Request{Table: salesTable(), Columns: []string{"price"}},
		Deps{Gate: gate, Completer: rec})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, rec.calls)
}

func TestSendAfterPreview(t *testing.T) {
	deps := Deps{Gate: confirm.Fixed(true), Completer: &recorder{reply: "```python\nplot()\n```"}}
	prev, err := Preview(Request{Table: salesTable(), Columns: []string{"price", "region"}}, deps)
	require.NoError(t, err)
	require.NotEmpty(t, prev.Prompt)

	out, err := Send(context.Background(), prev, deps)
	require.NoError(t, err)
	assert.True(t, out.Approved)
	assert.Equal(t, prev.Prompt, out.Prompt)
	assert.Same(t, prev.Summary, out.Summary)
	require.Len(t, out.Snippets, 1)

	_, err = Send(context.Background(), prev, Deps{Completer: &recorder{}})
	assert.ErrorIs(t, err, ErrNoGate)
}

func TestRunRequiresCapabilities(t *testing.T) {
	req := Request{Table: salesTable(), Columns: []string{"price"}}
	_, err := Run(context.Background(), req, Deps{Completer: &recorder{}})
	assert.ErrorIs(t, err, ErrNoGate)
	_, err = Run(context.Background(), req, Deps{Gate: confirm.Fixed(true)})
	assert.ErrorIs(t, err, ErrNoCompleter)
	_, err = Preview(Request{}, Deps{})
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestRunTokenBudget(t *testing.T) {
	rec := &recorder{}
	_, err := Run(context.Background(), Request{Table: salesTable(), Columns: []string{"price"}},
		Deps{Gate: confirm.Fixed(true), Completer: rec, MaxPromptTokens: 5})
	var budget *utils.TokenBudgetError
	require.True(t, errors.As(err, &budget))
	assert.Equal(t, 5, budget.Limit)
	assert.Zero(t, rec.calls)
}

func TestPreviewIsDeterministic(t *testing.T) {
	req := Request{Table: salesTable(), Columns: []string{"region", "price"}, Notes: "n"}
	a, err := Preview(req, Deps{})
	require.NoError(t, err)
	b, err := Preview(req, Deps{})
	require.NoError(t, err)
	assert.Equal(t, a.Prompt, b.Prompt)
	assert.True(t, strings.Index(a.Prompt, "region") < strings.Index(a.Prompt, "price"))
}

func TestRefine(t *testing.T) {
	rec := &recorder{reply: "```python\nplt.bar(df.x, df.y)\n```"}
	out, err := Refine(context.Background(), "plt.plot(df.x)", "make it a bar chart", Deps{Gate: confirm.Fixed(true), Completer: rec})
	require.NoError(t, err)
	assert.True(t, out.Approved)
	assert.Contains(t, rec.prompts[0], "plt.plot(df.x)")
	assert.Contains(t, rec.prompts[0], "make it a bar chart")
	require.Len(t, out.Snippets, 1)
	assert.Nil(t, out.Summary)
}
