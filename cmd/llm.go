package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillquest/internal/llm"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect AI reviewer configuration and usage",
}

var llmUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarise recorded model calls by purpose",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		usage, err := e.store.LLMUsageByPurpose(cmd.Context())
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		w := cmd.OutOrStdout()
		if len(usage) == 0 {
			fmt.Fprintln(w, "No LLM requests recorded.")
			return nil
		}

		fmt.Fprintf(w, "%-16s  %-8s  %-10s  %-10s  %s\n", "Purpose", "Calls", "In", "Out", "Failed")
		fmt.Fprintln(w, strings.Repeat("─", 60))
		var calls, in, out, failed int
		for _, u := range usage {
			fmt.Fprintf(w, "%-16s  %-8d  %-10d  %-10d  %d\n", u.Purpose, u.Requests, u.InputTokens, u.OutputTokens, u.Failures)
			calls += u.Requests
			in += u.InputTokens
			out += u.OutputTokens
			failed += u.Failures
		}
		fmt.Fprintln(w, strings.Repeat("─", 60))
		fmt.Fprintf(w, "%-16s  %-8d  %-10d  %-10d  %d\n", "total", calls, in, out, failed)
		return nil
	}),
}

var llmProviderCmd = &cobra.Command{
	Use:   "provider",
	Short: "Show which model provider AI review would use",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		w := cmd.OutOrStdout()
		cfg, ok := llm.Resolve()
		if !ok {
			fmt.Fprintln(w, "No provider configured. Set SKILLQUEST_LLM_PROVIDER and a key, or one of")
			fmt.Fprintln(w, "GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, OPENROUTER_API_KEY.")
			return
		}
		fmt.Fprintf(w, "Provider: %s\n", cfg.Provider)
		fmt.Fprintf(w, "Timeout:  %s\n", cfg.Timeout)
		fmt.Fprintf(w, "Retries:  %d\n", cfg.Retry.MaxAttempts)
	},
}

func init() {
	llmCmd.AddCommand(llmUsageCmd, llmProviderCmd)
}
