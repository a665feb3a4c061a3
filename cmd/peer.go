package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillquest/internal/learning"
	"github.com/abhisek/skillquest/internal/peer"
	"github.com/abhisek/skillquest/internal/ui/theme"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <submission>",
	Short: "Review another learner's submission",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		f := cmd.Flags()
		in := learning.PeerReview{SubmissionID: args[0]}
		in.Feedback, _ = f.GetString("feedback")
		if f.Changed("score") {
			score, _ := f.GetInt("score")
			in.Score = &score
		}
		if f.Changed("correctness") || f.Changed("code-quality") || f.Changed("creativity") {
			var c peer.Criteria
			c.Correctness, _ = f.GetInt("correctness")
			c.CodeQuality, _ = f.GetInt("code-quality")
			c.Creativity, _ = f.GetInt("creativity")
			in.Criteria = &c
		}

		out, err := e.learning.EvaluatePeer(cmd.Context(), in)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Recorded evaluation %s: %d%%\n", out.Evaluation.ID, out.Evaluation.Score)
		fmt.Fprintf(w, "+%d XP\n", out.XP)
		for _, a := range out.Achievements {
			fmt.Fprintf(w, "%s %s\n", theme.Badge.Render(a.Badge.Icon()+" "+a.Badge.DisplayName()), theme.Hint.Render(a.Reason))
		}
		return nil
	}),
}

var evaluationsCmd = &cobra.Command{
	Use:   "evaluations",
	Short: "List submissions awaiting your review and reviews you gave",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		pending, err := e.learning.PendingEvaluations(cmd.Context())
		if err != nil {
			return err
		}
		done, err := e.learning.CompletedEvaluations(cmd.Context())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, theme.Title.Render(fmt.Sprintf("Pending (%d)", len(pending))))
		for _, s := range pending {
			name := s.FileName
			if name == "" {
				name = "-"
			}
			fmt.Fprintf(w, "  %s  %-10s %s/%s  %s  %s\n", s.ID, s.OwnerID, s.RoadmapID, s.NodeID, name, s.SubmittedAt.Local().Format("2006-01-02"))
		}
		fmt.Fprintln(w, theme.Title.Render(fmt.Sprintf("Completed (%d)", len(done))))
		for _, ev := range done {
			fmt.Fprintf(w, "  %s  %-10s %3d%%  %s\n", ev.SubmissionID, ev.OwnerID, ev.Score, ev.CreatedAt.Local().Format("2006-01-02"))
		}
		return nil
	}),
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <roadmap> <node>",
	Short: "Show the peer reviews of your submission",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		res, err := e.learning.Feedback(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%d reviews, %d passing, average %d%%", len(res.Evaluations), res.PassingCount, res.AverageScore)
		if res.Eligible {
			fmt.Fprint(w, "  "+theme.Pass.Render("eligible"))
		}
		fmt.Fprintln(w)
		for _, ev := range res.Evaluations {
			fmt.Fprintf(w, "  %3d%%  %s\n", ev.Score, ev.Feedback)
		}
		return nil
	}),
}

func init() {
	f := evaluateCmd.Flags()
	f.Int("score", 0, "Overall score 0-100")
	f.String("feedback", "", fmt.Sprintf("Written feedback (at least %d characters)", peer.MinFeedbackLength))
	f.Int("correctness", 0, "Correctness 1-10, used when --score is omitted")
	f.Int("code-quality", 0, "Code quality 1-10")
	f.Int("creativity", 0, "Creativity 1-10")
	evaluateCmd.MarkFlagRequired("feedback")
}
