package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datavizard/internal/ai"
	"github.com/KaramelBytes/datavizard/internal/confirm"
	"github.com/KaramelBytes/datavizard/internal/history"
	"github.com/KaramelBytes/datavizard/internal/pipeline"
	"github.com/KaramelBytes/datavizard/internal/snippets"
	"github.com/KaramelBytes/datavizard/internal/summary"
)

var (
	vizColumns    []string
	vizNotes      string
	vizProvider   string
	vizModel      string
	vizExportDir  string
	vizOllamaHost string
	vizTimeoutSec int
	vizLoad       loadFlags
)

// gateFor and completerFor are swapped in tests.
var (
	gateFor      = func() confirm.Gate { return selectGate(os.Stdin, os.Stdout) }
	completerFor = buildCompleter
)

var visualizeCmd = &cobra.Command{
	Use:   "visualize <file>",
	Short: "Summarize columns, confirm the prompt, and ask a model for visualization code",
	Example: `  datavizard visualize people.csv -c age,city --notes "prefer seaborn"
  datavizard visualize sales.parquet -c revenue,region --provider ollama --model llama3.1:8b
  datavizard visualize people.csv -c age --export ./viz`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cols := splitColumns(vizColumns)
		if len(cols) == 0 {
			return fmt.Errorf("--columns is required")
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		t, err := loadTable(cmd.Context(), cmd.ErrOrStderr(), args[0], vizLoad)
		if err != nil {
			return err
		}

		completer, providerName, model, err := completerFor(cmd.Context(), c, runtimeOptions{
			ProviderFlag: vizProvider,
			ModelFlag:    vizModel,
			OllamaHost:   vizOllamaHost,
		})
		if err != nil {
			return err
		}

		deps := pipeline.Deps{
			Summarizer:      summary.New(logger),
			Gate:            gateFor(),
			Completer:       withTimeout(completer, vizTimeoutSec),
			Logger:          logger,
			MaxPromptTokens: c.MaxPromptTokens,
		}
		prev, err := pipeline.Preview(pipeline.Request{Table: t, Columns: cols, Notes: vizNotes}, deps)
		if err != nil {
			return err
		}
		// Skipped columns are reported before the user decides what to send.
		for _, w := range prev.Summary.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", w)
		}
		res, err := pipeline.Send(cmd.Context(), prev, deps)
		if res.Prompt != "" {
			recordRun(cmd.Context(), cmd.ErrOrStderr(), history.Record{
				Dataset:  t.Name,
				Columns:  cols,
				Notes:    vizNotes,
				Prompt:   res.Prompt,
				Approved: res.Approved,
				Provider: providerName,
				Model:    model,
				Response: res.Response,
			})
		}
		if err != nil {
			if res.Approved {
				return explainAIError(err, providerName, model)
			}
			return err
		}
		if !res.Approved {
			fmt.Fprintln(out, "✗ Canceled (no information was sent)")
			return nil
		}
		return printOutcome(out, res, providerName, model, vizExportDir)
	},
}

// withTimeout bounds only the completion call, not the time spent deciding.
func withTimeout(c ai.Completer, sec int) ai.Completer {
	if sec <= 0 {
		return c
	}
	return ai.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, time.Duration(sec)*time.Second)
		defer cancel()
		return c.Complete(ctx, prompt)
	})
}

func printOutcome(w io.Writer, res pipeline.Outcome, providerName, model, exportDir string) error {
	fmt.Fprintln(w, "\n=== AI Response ===")
	fmt.Fprintln(w, res.Response)

	fields := []confirm.ResultField{
		{Label: "Provider", Value: providerName},
		{Label: "Model", Value: model},
		{Label: "Snippets", Value: fmt.Sprintf("%d", len(res.Snippets))},
		{Label: "Elapsed", Value: res.Elapsed.Round(time.Millisecond).String()},
	}
	if exportDir == "" {
		if c, _ := currentConfig(); c != nil {
			exportDir = c.ExportDir
		}
	}
	if exportDir != "" {
		files, err := snippets.Export(exportDir, snippets.Bundle{Prompt: res.Prompt, Response: res.Response, Snippets: res.Snippets})
		if err != nil {
			return err
		}
		fields = append(fields, confirm.ResultField{Label: "Exported", Value: strings.Join(files, ", ")})
	}
	confirm.PrintResult(w, fields, "Done")
	return nil
}

func recordRun(ctx context.Context, errw io.Writer, r history.Record) {
	c, _ := currentConfig()
	store := openHistory(ctx, errw, c)
	if store == nil {
		return
	}
	defer func() { _ = store.Close() }()
	if err := store.Save(ctx, &r); err != nil {
		fmt.Fprintf(errw, "⚠ Warning: could not record run: %v\n", err)
		return
	}
	logger.Debug("run recorded", "id", r.ID, "approved", r.Approved)
}

func init() {
	rootCmd.AddCommand(visualizeCmd)
	visualizeCmd.Flags().StringSliceVarP(&vizColumns, "columns", "c", nil, "comma-separated column names to describe, in order (repeatable)")
	visualizeCmd.Flags().StringVar(&vizNotes, "notes", "", "free-form guidance appended to the prompt")
	visualizeCmd.Flags().StringVar(&vizProvider, "provider", "", "completion provider: openai|openrouter|ollama (default from config)")
	visualizeCmd.Flags().StringVar(&vizModel, "model", "", "override model (default from config)")
	visualizeCmd.Flags().StringVar(&vizExportDir, "export", "", "write prompt, response and one file per snippet to this directory")
	visualizeCmd.Flags().StringVar(&vizOllamaHost, "ollama-host", "", "override Ollama host (e.g., http://127.0.0.1:11434)")
	visualizeCmd.Flags().IntVar(&vizTimeoutSec, "timeout-sec", 180, "completion request timeout in seconds")
	vizLoad.register(visualizeCmd.Flags())
}
