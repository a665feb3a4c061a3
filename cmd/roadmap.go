package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillquest/internal/learning"
	"github.com/abhisek/skillquest/internal/ui/theme"
	"github.com/abhisek/skillquest/internal/unlock"
)

var roadmapsCmd = &cobra.Command{
	Use:   "roadmaps",
	Short: "List available roadmaps and your progress in each",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		w := cmd.OutOrStdout()
		for _, r := range e.learning.Catalog().All() {
			st, err := e.learning.Status(cmd.Context(), r.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%-22s %s %3d%%  %s\n", r.ID, theme.Bar(st.Percent, 20), st.Percent, r.Title)
		}
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status <roadmap>",
	Short: "Show every node of a roadmap with its lock state",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		st, err := e.learning.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, theme.Title.Render(st.Roadmap.Title))
		fmt.Fprintf(w, "%s %d%%\n\n", theme.Bar(st.Percent, 30), st.Percent)

		p := e.learning.Snapshot()
		for _, ns := range st.Nodes {
			line := fmt.Sprintf("%s %s %-24s %-16s %s", ns.State.Icon(), ns.Node.Kind().Icon(), ns.Node.ID, ns.Node.Kind().Label(), ns.Node.Title)
			if rec, ok := p.Record(st.Roadmap.ID, ns.Node.ID); ok && rec.Score != nil {
				line += fmt.Sprintf("  (%d%%)", *rec.Score)
			}
			if ns.State == unlock.StateLocked {
				line = theme.Locked.Render(line)
				if len(ns.Blocking) > 0 {
					line += theme.Hint.Render("  needs " + strings.Join(ns.Blocking, ", "))
				}
			}
			fmt.Fprintln(w, line)
		}
		if st.Next != nil {
			fmt.Fprintf(w, "\nNext: %s (%s)\n", st.Next.Title, st.Next.ID)
		}
		return nil
	}),
}

var lessonCmd = &cobra.Command{
	Use:   "lesson <roadmap> <node>",
	Short: "Mark a lesson or other input-free node complete",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		out, err := e.learning.Complete(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		printOutcome(cmd.OutOrStdout(), out)
		return nil
	}),
}

var quizCmd = &cobra.Command{
	Use:   "quiz <roadmap> <node>",
	Short: "Submit quiz answers, e.g. --answers 0,2,1",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		raw, _ := cmd.Flags().GetString("answers")
		answers, err := parseAnswers(raw)
		if err != nil {
			return err
		}
		out, err := e.learning.SubmitQuiz(cmd.Context(), args[0], args[1], indexed(answers))
		if err != nil {
			return err
		}
		printOutcome(cmd.OutOrStdout(), out)
		return nil
	}),
}

var submitCmd = &cobra.Command{
	Use:   "submit <roadmap> <node>",
	Short: "Submit an assignment from a file",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		file, _ := cmd.Flags().GetString("file")
		content, err := readSubmission(file)
		if err != nil {
			return err
		}
		awards, _ := cmd.Flags().GetStringToInt("award")
		aiGrade, _ := cmd.Flags().GetBool("ai-grade")

		out, err := e.learning.SubmitAssignment(cmd.Context(), args[0], args[1], learning.Submission{
			Content:  content,
			FileName: filepath.Base(file),
			Awards:   awards,
			AIGrade:  aiGrade,
		})
		if err != nil {
			return err
		}
		printOutcome(cmd.OutOrStdout(), out)
		return nil
	}),
}

var reviewCmd = &cobra.Command{
	Use:   "review <roadmap> <node>",
	Short: "Ask the AI reviewer for a draft grade without submitting",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		file, _ := cmd.Flags().GetString("file")
		content, err := readSubmission(file)
		if err != nil {
			return err
		}
		d, err := e.learning.Review(cmd.Context(), args[0], args[1], content)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Draft score %d%% %s  (%s)\n", d.Result.Score, theme.Verdict(d.Result.Passed), d.Model)
		for _, c := range d.Comments {
			fmt.Fprintf(w, "  %s %d  %s\n", theme.Label.Render(c.Criterion), d.Awards[c.Criterion], c.Comment)
		}
		for _, s := range d.Strengths {
			fmt.Fprintf(w, "  + %s\n", s)
		}
		for _, s := range d.Improvements {
			fmt.Fprintf(w, "  - %s\n", s)
		}
		if d.Feedback != "" {
			fmt.Fprintln(w, theme.Card.Render(d.Feedback))
		}
		return nil
	}),
}

var certificateCmd = &cobra.Command{
	Use:   "certificate <roadmap>",
	Short: "Show certificate eligibility, issuing it when the policy holds",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		st, err := e.learning.CertificateStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Policy"), st.Decision.Policy)
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Status"), st.Decision.Reason())
		if st.Issued == nil && st.Unlockable() {
			out, err := e.learning.IssueCertificate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printOutcome(w, out)
			return nil
		}
		if st.Issued != nil {
			fmt.Fprintf(w, "%s %s (issued %s)\n", theme.Label.Render("Serial"), st.Issued.Serial, st.Issued.IssuedAt.Local().Format("2006-01-02"))
			return nil
		}
		if len(st.Blocking) > 0 {
			fmt.Fprintln(w, theme.Hint.Render("Complete first: "+strings.Join(st.Blocking, ", ")))
		}
		return nil
	}),
}

func init() {
	quizCmd.Flags().String("answers", "", "Comma-separated option indexes, one per question")
	quizCmd.MarkFlagRequired("answers")

	submitCmd.Flags().String("file", "", "File holding the submission")
	submitCmd.Flags().StringToInt("award", nil, "Self-assessed rubric points, name=points (repeatable)")
	submitCmd.Flags().Bool("ai-grade", false, "Grade the rubric with the AI reviewer")
	submitCmd.MarkFlagRequired("file")

	reviewCmd.Flags().String("file", "", "File holding the draft")
	reviewCmd.MarkFlagRequired("file")
}

func readSubmission(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read submission: %w", err)
	}
	return string(b), nil
}

func printOutcome(w io.Writer, out learning.Outcome) {
	switch {
	case out.Quiz != nil:
		fmt.Fprintf(w, "%d/%d correct, %d%% %s\n", out.Quiz.Correct, out.Quiz.Total, out.Quiz.Score, theme.Verdict(out.Quiz.Passed))
		for _, r := range out.Quiz.Results {
			if !r.Correct && r.Explanation != "" {
				fmt.Fprintf(w, "  Q%d: %s\n", r.Index+1, theme.Hint.Render(r.Explanation))
			}
		}
	case out.Rubric != nil:
		fmt.Fprintf(w, "Rubric score %d%% %s\n", out.Rubric.Score, theme.Verdict(out.Rubric.Passed))
	case out.Peer != nil && !out.Completed:
		fmt.Fprintf(w, "Peer reviews: %d passing so far, average %d\n", out.Peer.PassingCount, out.Peer.AverageScore)
	}
	if out.SubmissionID != "" {
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Submission"), out.SubmissionID)
	}
	switch {
	case out.AlreadyComplete:
		fmt.Fprintln(w, theme.Hint.Render(out.NodeID+" was already complete"))
	case out.Completed:
		fmt.Fprintln(w, theme.Pass.Render("✓ "+out.NodeID+" complete"))
	}
	if out.XP > 0 {
		fmt.Fprintf(w, "+%d XP\n", out.XP)
	}
	if c := out.Certificate; c != nil {
		fmt.Fprintln(w, theme.Card.Render(fmt.Sprintf("Certificate %s\nRoadmap %s\nPolicy %s", c.Serial, c.RoadmapID, c.Policy)))
	}
	for _, a := range out.Achievements {
		fmt.Fprintf(w, "%s %s\n", theme.Badge.Render(a.Badge.Icon()+" "+a.Badge.DisplayName()), theme.Hint.Render(a.Reason))
	}
}

var verifyCmd = &cobra.Command{
	Use:   "verify <serial>",
	Short: "Look up an issued certificate by serial",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		rec, err := e.store.Certificate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Learner"), rec.LearnerID)
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Roadmap"), rec.RoadmapID)
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Policy"), rec.Policy)
		if rec.Grade > 0 {
			fmt.Fprintf(w, "%s %d\n", theme.Label.Render("Grade"), rec.Grade)
		}
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Issued"), rec.IssuedAt.Local().Format("2006-01-02"))
		return nil
	}),
}
