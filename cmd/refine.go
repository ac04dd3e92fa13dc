package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datavizard/internal/pipeline"
	"github.com/KaramelBytes/datavizard/internal/utils"
)

var (
	refCodePath   string
	refFeedback   string
	refProvider   string
	refModel      string
	refCodeLimit  int
	refExportDir  string
	refTimeoutSec int
)

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Ask the model to improve visualization code according to feedback",
	Example: `  datavizard refine --code viz/viz_1.py --feedback "use a log scale on y"
  cat viz_2.py | datavizard refine --code - --feedback "add titles"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if refCodePath == "" {
			return fmt.Errorf("--code is required")
		}
		if strings.TrimSpace(refFeedback) == "" {
			return fmt.Errorf("--feedback is required")
		}
		code, err := readCode(cmd.InOrStdin(), refCodePath)
		if err != nil {
			return err
		}
		if refCodeLimit > 0 && utils.CountTokens(code) > refCodeLimit {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Code exceeds limit (%d > %d tokens). Truncating before send...\n", utils.CountTokens(code), refCodeLimit)
			code = utils.TruncateToTokenLimit(code, refCodeLimit)
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		completer, providerName, model, err := completerFor(cmd.Context(), c, runtimeOptions{ProviderFlag: refProvider, ModelFlag: refModel})
		if err != nil {
			return err
		}
		res, err := pipeline.Refine(cmd.Context(), code, refFeedback, pipeline.Deps{
			Gate:            gateFor(),
			Completer:       withTimeout(completer, refTimeoutSec),
			Logger:          logger,
			MaxPromptTokens: c.MaxPromptTokens,
		})
		if err != nil {
			if res.Approved {
				return explainAIError(err, providerName, model)
			}
			return err
		}
		if !res.Approved {
			fmt.Fprintln(cmd.OutOrStdout(), "✗ Canceled (no information was sent)")
			return nil
		}
		return printOutcome(cmd.OutOrStdout(), res, providerName, model, refExportDir)
	},
}

func readCode(stdin io.Reader, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read code: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", fmt.Errorf("code file %s is empty", path)
	}
	return string(b), nil
}

func init() {
	rootCmd.AddCommand(refineCmd)
	refineCmd.Flags().StringVar(&refCodePath, "code", "", "file with the code to improve ('-' reads stdin)")
	refineCmd.Flags().StringVar(&refFeedback, "feedback", "", "what to change")
	refineCmd.Flags().StringVar(&refProvider, "provider", "", "completion provider: openai|openrouter|ollama (default from config)")
	refineCmd.Flags().StringVar(&refModel, "model", "", "override model (default from config)")
	refineCmd.Flags().IntVar(&refCodeLimit, "code-limit", 4000, "truncate code to this many tokens before sending (0 = no limit)")
	refineCmd.Flags().StringVar(&refExportDir, "export", "", "write prompt, response and snippets to this directory")
	refineCmd.Flags().IntVar(&refTimeoutSec, "timeout-sec", 180, "completion request timeout in seconds")
}
