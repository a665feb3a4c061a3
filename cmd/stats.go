package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillquest/internal/ui/theme"
)

var levelCmd = &cobra.Command{
	Use:   "level",
	Short: "Show experience, level and badges",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		info := e.learning.Level()
		p := e.learning.Snapshot()
		w := cmd.OutOrStdout()

		fmt.Fprintln(w, theme.Title.Render(fmt.Sprintf("%s · Level %d %s", e.learning.LearnerID(), info.Level, info.Title)))
		fmt.Fprintf(w, "%s %d / %d XP\n", theme.Bar(info.Progress, 30), info.XP, info.NextLevelAt)
		fmt.Fprintf(w, "%s %d lessons, %d quizzes (%d perfect), %d assignments\n",
			theme.Label.Render("Completed"), p.Stats.Lessons, p.Stats.Quizzes, p.Stats.PerfectQuizzes, p.Stats.Assignments)
		fmt.Fprintf(w, "%s %d given\n", theme.Label.Render("Reviews"), p.Stats.EvaluationsGiven)
		fmt.Fprintf(w, "%s %d\n", theme.Label.Render("Certificates"), len(p.Certificates))

		badges := e.learning.Badges()
		if len(badges) == 0 {
			fmt.Fprintln(w, theme.Hint.Render("No badges yet"))
			return nil
		}
		for _, b := range badges {
			fmt.Fprintln(w, theme.Badge.Render(b.Icon()+" "+b.DisplayName()))
		}
		return nil
	}),
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent learning events",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		limit, _ := cmd.Flags().GetInt("limit")
		events, err := e.learning.History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(w, "No events recorded.")
			return nil
		}
		for _, ev := range events {
			target := ev.RoadmapID
			if ev.NodeID != "" {
				target += "/" + ev.NodeID
			}
			line := fmt.Sprintf("%5d  %s  %-22s %s", ev.Sequence, ev.At.Local().Format("2006-01-02 15:04"), ev.Type, target)
			if ev.Score != nil {
				line += fmt.Sprintf("  %d%%", *ev.Score)
			}
			if ev.XP > 0 {
				line += fmt.Sprintf("  +%d XP", ev.XP)
			}
			fmt.Fprintln(w, line)
		}
		return nil
	}),
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of events (0 for all)")
}
