package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datavizard/internal/history"
	"github.com/KaramelBytes/datavizard/internal/utils"
)

var (
	runsLimit int
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the local run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := historyStore(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		runs, err := store.List(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		for _, r := range runs {
			status := "declined"
			if r.Approved {
				status = "sent"
			}
			fmt.Fprintf(out, "- %s  %s  %s [%s] %s\n", r.ID.String()[:8], r.CreatedAt.Local().Format("2006-01-02 15:04"),
				r.Dataset, strings.Join(r.Columns, ","), status)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run by id or unique id prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := historyStore(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		r, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if runsJSON {
			b, err := utils.PrettyJSON(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "ID: %s\nCreated: %s\nDataset: %s\nColumns: %s\n", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Dataset, strings.Join(r.Columns, ", "))
		if r.Provider != "" {
			fmt.Fprintf(out, "Provider: %s (%s)\n", r.Provider, r.Model)
		}
		fmt.Fprintf(out, "Approved: %t\n\n--- prompt ---\n%s\n", r.Approved, r.Prompt)
		if r.Response != "" {
			fmt.Fprintf(out, "\n--- response ---\n%s\n", r.Response)
		}
		return nil
	},
}

// historyStore opens the store even when recording is disabled, so past runs
// stay readable.
func historyStore(cmd *cobra.Command) (*history.Store, error) {
	c, err := currentConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cmd.Context(), c.HistoryPath, logger)
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show (0 = all)")
	runsShowCmd.Flags().BoolVar(&runsJSON, "json", false, "emit the run as JSON")
}
