package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/skillquest/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "skillquest",
	Short: "Work through skill roadmaps and quest courses",
	Long: "skillquest tracks a learner through roadmaps of lessons, quizzes, assignments\n" +
		"and peer reviews, and through the remote quest course path.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a skillquest.yaml config file")
	pf.String("db", "", "Path to SQLite database file (overrides SKILLQUEST_DB env var)")
	pf.String("learner", "", "Learner ID (overrides the configured learner)")

	rootCmd.AddCommand(roadmapsCmd, statusCmd, lessonCmd, quizCmd, submitCmd, reviewCmd, certificateCmd, verifyCmd)
	rootCmd.AddCommand(evaluateCmd, evaluationsCmd, feedbackCmd)
	rootCmd.AddCommand(levelCmd, historyCmd)
	rootCmd.AddCommand(questsCmd, questCmd, finalCmd)
	rootCmd.AddCommand(resetCmd, llmCmd, versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured path, then SKILLQUEST_DB env var or the default XDG path.
func resolveDBPath(cmd *cobra.Command, configured string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if configured != "" {
		return configured, store.EnsureDir(configured)
	}
	return store.DefaultDBPath()
}
