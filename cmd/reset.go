package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillquest/internal/ui/theme"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset learner data",
	Long:  "Delete the learner's progress, submissions, evaluations and history, and clear the local cache.",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		w := cmd.OutOrStdout()
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			fmt.Fprintf(w, "This erases all progress for %s. Re-run with --yes to confirm.\n", e.learning.LearnerID())
			return nil
		}
		if err := e.learning.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(w, theme.Pass.Render("Progress reset for "+e.learning.LearnerID()))
		return nil
	}),
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
}
