package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/KaramelBytes/datavizard/internal/ai"
	cfgpkg "github.com/KaramelBytes/datavizard/internal/config"
	"github.com/KaramelBytes/datavizard/internal/confirm"
	"github.com/KaramelBytes/datavizard/internal/history"
	"github.com/KaramelBytes/datavizard/internal/table"
)

// loadFlags are shared by every command that reads a data file.
type loadFlags struct {
	engine     string
	delimiter  string
	decimal    string
	thousands  string
	maxRows    int
	sheetName  string
	sheetIndex int
	categories []string
}

func (lf *loadFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&lf.engine, "engine", "", "table reader: native|duckdb (default from config)")
	fs.StringVar(&lf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	fs.StringVar(&lf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	fs.StringVar(&lf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	fs.IntVar(&lf.maxRows, "max-rows", 0, "maximum rows to load (default from config, -1 = unlimited)")
	fs.StringVar(&lf.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	fs.IntVar(&lf.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	fs.StringSliceVar(&lf.categories, "categories", nil, "columns to treat as categorical regardless of inferred type")
}

func (lf loadFlags) options(c *cfgpkg.Global) (table.Options, error) {
	opt := table.DefaultOptions()
	if c != nil {
		if c.MaxRows != 0 {
			opt.MaxRows = c.MaxRows
		}
		if c.CategoryMaxUnique != 0 {
			opt.CategoryMaxUnique = c.CategoryMaxUnique
		}
		opt.Engine = c.Engine
	}
	switch {
	case lf.maxRows < 0:
		opt.MaxRows = 0
	case lf.maxRows > 0:
		opt.MaxRows = lf.maxRows
	}
	if lf.engine != "" {
		opt.Engine = lf.engine
	}
	switch lf.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", lf.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(lf.decimal)) {
	case "":
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case ",", "comma":
		opt.DecimalSeparator = ','
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s", lf.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(lf.thousands)) {
	case "":
	case ",", "comma":
		opt.ThousandsSeparator = ','
	case ".", "dot":
		opt.ThousandsSeparator = '.'
	case " ", "space":
		opt.ThousandsSeparator = ' '
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s", lf.thousands)
	}
	opt.SheetName = strings.TrimSpace(lf.sheetName)
	if lf.sheetIndex > 0 {
		opt.SheetIndex = lf.sheetIndex
	}
	opt.Categories = splitColumns(lf.categories)
	return opt, nil
}

func loadTable(ctx context.Context, w io.Writer, path string, lf loadFlags) (*table.Table, error) {
	c, _ := currentConfig()
	opt, err := lf.options(c)
	if err != nil {
		return nil, err
	}
	t, err := table.Load(ctx, path, opt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	for _, warn := range t.Warnings {
		fmt.Fprintf(w, "⚠ %s\n", warn)
	}
	logger.Debug("table loaded", "path", path, "rows", t.Rows(), "columns", len(t.ColumnNames()), "engine", opt.Engine)
	return t, nil
}

// splitColumns trims names from a string slice flag, drops empties, and
// keeps order and duplicates.
func splitColumns(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type runtimeOptions struct {
	ProviderFlag string
	ModelFlag    string
	OllamaHost   string
}

// buildCompleter resolves the provider, model and credentials and returns a
// ready completer.
func buildCompleter(ctx context.Context, c *cfgpkg.Global, opts runtimeOptions) (ai.Completer, string, string, error) {
	rc := ai.RuntimeConfig{
		HTTPTimeout: 60 * time.Second,
		RetryMax:    1,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}
	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if c != nil {
		if c.HTTPTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(c.HTTPTimeoutSec) * time.Second
		}
		if c.RetryMaxAttempts > 0 {
			rc.RetryMax = c.RetryMaxAttempts
		}
		if c.RetryBaseDelayMs > 0 {
			rc.BaseDelay = time.Duration(c.RetryBaseDelayMs) * time.Millisecond
		}
		if c.RetryMaxDelayMs > 0 {
			rc.MaxDelay = time.Duration(c.RetryMaxDelayMs) * time.Millisecond
		}
		rc.MaxTokens = c.MaxTokens
		rc.Temperature = c.Temperature
		rc.Model = c.DefaultModel
		rc.Host = c.OllamaHost
		if providerName == "" {
			providerName = strings.ToLower(c.DefaultProvider)
		}
	}
	if providerName == "" {
		providerName = ai.ProviderOpenAI
	}
	if providerName == "local" {
		providerName = ai.ProviderOllama
	}
	if opts.ModelFlag != "" {
		rc.Model = opts.ModelFlag
	}
	if h := strings.TrimSpace(opts.OllamaHost); h != "" {
		rc.Host = h
	}

	secrets, err := cfgpkg.LoadSecrets()
	if err != nil {
		return nil, providerName, rc.Model, err
	}
	rc.APIKey = secrets.KeyFor(providerName)

	completer, err := ai.NewCompleter(providerName, rc)
	if err != nil {
		return nil, providerName, rc.Model, err
	}
	if oc, ok := completer.(*ai.OllamaClient); ok {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := oc.Ping(pingCtx); err != nil {
			return nil, providerName, rc.Model, explainAIError(err, providerName, rc.Model)
		}
	}
	model := rc.Model
	if model == "" {
		model = defaultModel(providerName)
	}
	return completer, providerName, model, nil
}

func defaultModel(provider string) string {
	switch provider {
	case ai.ProviderOpenRouter:
		return ai.DefaultOpenRouterModel
	case ai.ProviderOllama:
		return ai.DefaultOllamaModel
	}
	return ai.DefaultOpenAIModel
}

// explainAIError adds user-facing hints for common error classes.
func explainAIError(err error, providerName, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		emptyEr *ai.EmptyResponseError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("request timed out; raise --timeout-sec or --http-timeout: %w", err)
	case errors.As(err, &unreach):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running (see https://ollama.com) and host is correct. You can set DATAVIZARD_OLLAMA_HOST or config 'ollama_host'. Detail: %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: set %s in the environment or a .env file: %w", keyEnv(providerName), err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model. %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name with --model or 'datavizard config set default_model': %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try fewer columns or a smaller max_tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	case errors.As(err, &emptyEr):
		return fmt.Errorf("no content returned from model: %w", err)
	}
	return fmt.Errorf("generation failed: %w", err)
}

func keyEnv(provider string) string {
	if provider == ai.ProviderOpenRouter {
		return "OPENROUTER_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// selectGate picks how the prompt is confirmed: an interactive terminal gets
// the form, anything else reads a line. There is no way to skip the question.
func selectGate(in *os.File, out io.Writer) confirm.Gate {
	if isTerminal(in) {
		return confirm.NewTerminal()
	}
	return confirm.Line{In: in, Out: out}
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	st, err := f.Stat()
	return err == nil && st.Mode()&os.ModeCharDevice != 0
}

// openHistory returns nil when history is disabled or cannot be opened;
// a broken history file never blocks a run.
func openHistory(ctx context.Context, w io.Writer, c *cfgpkg.Global) *history.Store {
	if c == nil || !c.HistoryEnabled {
		return nil
	}
	store, err := history.Open(ctx, c.HistoryPath, logger)
	if err != nil {
		fmt.Fprintf(w, "⚠ Warning: history disabled: %v\n", err)
		return nil
	}
	return store
}
