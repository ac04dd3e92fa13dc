package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datavizard/internal/pipeline"
	"github.com/KaramelBytes/datavizard/internal/summary"
	"github.com/KaramelBytes/datavizard/internal/utils"
)

var (
	sumColumns []string
	sumNotes   string
	sumJSON    bool
	sumLoad    loadFlags
)

type summaryJSON struct {
	Dataset   string         `json:"dataset"`
	Rows      int            `json:"rows"`
	Variables []variableJSON `json:"variables"`
	Skipped   []skippedJSON  `json:"skipped,omitempty"`
	Prompt    string         `json:"prompt"`
	Tokens    int            `json:"prompt_tokens"`
}

type skippedJSON struct {
	Name    string `json:"name"`
	Storage string `json:"storage"`
	Reason  string `json:"reason"`
}

type variableJSON struct {
	Name  string         `json:"name"`
	Kind  string         `json:"kind"`
	Stats map[string]any `json:"stats"`
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>",
	Short: "Summarize columns and print the prompt without sending it",
	Example: `  datavizard summarize people.csv -c age,city
  datavizard summarize sales.xlsx --sheet-name Q1 -c revenue --notes "use seaborn"
  datavizard summarize events.parquet -c ts,kind --engine duckdb --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cols := splitColumns(sumColumns)
		if len(cols) == 0 {
			return fmt.Errorf("--columns is required")
		}
		t, err := loadTable(cmd.Context(), cmd.ErrOrStderr(), args[0], sumLoad)
		if err != nil {
			return err
		}
		res, err := pipeline.Preview(pipeline.Request{Table: t, Columns: cols, Notes: sumNotes},
			pipeline.Deps{Summarizer: summary.New(logger), Logger: logger})
		if err != nil {
			return err
		}
		tokens := utils.CountTokens(res.Prompt)

		if sumJSON {
			doc := summaryJSON{Dataset: t.Name, Rows: t.Rows(), Prompt: res.Prompt, Tokens: tokens}
			for _, sk := range res.Summary.Skipped {
				doc.Skipped = append(doc.Skipped, skippedJSON{Name: sk.Name, Storage: sk.Storage.String(), Reason: sk.Reason})
			}
			for _, v := range res.Summary.Variables {
				doc.Variables = append(doc.Variables, variableJSON{Name: v.Name, Kind: v.Kind.String(), Stats: v.Stats()})
			}
			b, err := utils.PrettyJSON(doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}

		fmt.Fprintf(out, "Dataset: %s (%d rows)\n", t.Name, t.Rows())
		for _, v := range res.Summary.Variables {
			fmt.Fprintf(out, "✓ %s (%s)\n", v.Name, v.Kind)
		}
		for _, w := range res.Summary.Warnings {
			fmt.Fprintf(out, "⚠ %s\n", w)
		}
		fmt.Fprintf(out, "Tokens: ≈%d\n", tokens)
		fmt.Fprintln(out, "\n--- prompt (not sent) ---")
		fmt.Fprintln(out, res.Prompt)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringSliceVarP(&sumColumns, "columns", "c", nil, "comma-separated column names to describe, in order (repeatable)")
	summarizeCmd.Flags().StringVar(&sumNotes, "notes", "", "free-form guidance appended to the prompt")
	summarizeCmd.Flags().BoolVar(&sumJSON, "json", false, "emit summary and prompt as JSON")
	sumLoad.register(summarizeCmd.Flags())
}
