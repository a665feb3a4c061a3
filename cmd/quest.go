package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillquest/internal/errs"
	"github.com/abhisek/skillquest/internal/quest"
	"github.com/abhisek/skillquest/internal/questapi"
	"github.com/abhisek/skillquest/internal/ui/theme"
)

var questsCmd = &cobra.Command{
	Use:   "quests",
	Short: "Show the quest course path",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		path, err := e.quest.Path(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, c := range path {
			line := fmt.Sprintf("%3d  #%-2d %s %3.0f%%  %-18s %s", c.ID, c.QuestNumber, theme.Bar(int(c.Progress), 16), c.Progress, c.State.Label(), c.Title)
			if c.State == quest.StateLocked {
				line = theme.Locked.Render(line)
				if len(c.Blocking) > 0 {
					line += theme.Hint.Render("  after " + strings.Join(c.Blocking, ", "))
				}
			}
			fmt.Fprintln(w, line)
		}
		return nil
	}),
}

var questCmd = &cobra.Command{
	Use:   "quest",
	Short: "Work through one quest course",
}

var questModulesCmd = &cobra.Command{
	Use:   "modules <course>",
	Short: "List a course's modules and lessons",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		id, err := atoi("course", args[0])
		if err != nil {
			return err
		}
		mods, err := e.quest.Modules(cmd.Context(), id)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, m := range mods {
			mark := "▶"
			switch {
			case m.Completed:
				mark = "✓"
			case m.Locked:
				mark = "🔒"
			}
			line := fmt.Sprintf("%s %d  %s", mark, m.Index, m.Title)
			if m.Locked {
				line = theme.Locked.Render(line)
			}
			fmt.Fprintln(w, line)
			for _, l := range m.Lessons {
				done := " "
				if e.quest.LessonDone(id, m.Index, l.Index) {
					done = "✓"
				}
				fmt.Fprintf(w, "    [%s] %d.%d %s\n", done, m.Index, l.Index, l.Title)
			}
		}
		return nil
	}),
}

var questLessonCmd = &cobra.Command{
	Use:   "lesson <course> <module> <lesson>",
	Short: "Mark a lesson read",
	Args:  cobra.ExactArgs(3),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		ids, err := atois([]string{"course", "module", "lesson"}, args)
		if err != nil {
			return err
		}
		if err := e.quest.CompleteLesson(cmd.Context(), ids[0], ids[1], ids[2]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), theme.Pass.Render(fmt.Sprintf("✓ lesson %d.%d read", ids[1], ids[2])))
		return nil
	}),
}

var questCompleteCmd = &cobra.Command{
	Use:   "complete <course> <module>",
	Short: "Complete a module",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		ids, err := atois([]string{"course", "module"}, args)
		if err != nil {
			return err
		}
		mods, err := e.quest.CompleteModule(cmd.Context(), ids[0], ids[1])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, theme.Pass.Render(fmt.Sprintf("✓ module %d complete", ids[1])))
		if quest.AllComplete(modules(mods)) {
			fmt.Fprintln(w, theme.Hint.Render(fmt.Sprintf("All modules done. Take the assessment: skillquest quest assess %d --answers ...", ids[0])))
		}
		return nil
	}),
}

var questAssessCmd = &cobra.Command{
	Use:   "assess <course>",
	Short: "Show a course assessment, or submit it with --answers",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		id, err := atoi("course", args[0])
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetString("answers")
		if raw == "" {
			a, err := e.quest.Assessment(cmd.Context(), id)
			if err != nil {
				return err
			}
			printQuestions(cmd.OutOrStdout(), a)
			return nil
		}
		answers, err := parseAllAnswers(raw)
		if err != nil {
			return err
		}
		out, err := e.quest.SubmitAssessment(cmd.Context(), id, answers)
		if err != nil {
			return err
		}
		printQuestOutcome(cmd.OutOrStdout(), out)
		return nil
	}),
}

var finalCmd = &cobra.Command{
	Use:   "final",
	Short: "Show the final assessment, or submit it with --answers",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		raw, _ := cmd.Flags().GetString("answers")
		if raw == "" {
			a, err := e.quest.Final(cmd.Context())
			if err != nil {
				return err
			}
			printQuestions(cmd.OutOrStdout(), a)
			return nil
		}
		answers, err := parseAllAnswers(raw)
		if err != nil {
			return err
		}
		out, err := e.quest.SubmitFinal(cmd.Context(), answers)
		if err != nil {
			return err
		}
		printQuestOutcome(cmd.OutOrStdout(), out)
		return nil
	}),
}

var finalCertificateCmd = &cobra.Command{
	Use:   "certificate",
	Short: "Download the path certificate PDF",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
		path, _ := cmd.Flags().GetString("out")
		pdf, err := e.quest.Certificate(cmd.Context())
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, pdf, 0o644); err != nil {
			return fmt.Errorf("write certificate: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved certificate to %s (%d bytes)\n", path, len(pdf))
		return nil
	}),
}

func init() {
	questAssessCmd.Flags().String("answers", "", "Comma-separated option indexes; omit to view the questions")
	finalCmd.Flags().String("answers", "", "Comma-separated option indexes; omit to view the questions")
	finalCertificateCmd.Flags().String("out", "certificate.pdf", "Where to write the PDF")

	questCmd.AddCommand(questModulesCmd, questLessonCmd, questCompleteCmd, questAssessCmd)
	finalCmd.AddCommand(finalCertificateCmd)
}

func modules(ms []quest.ModuleStatus) []questapi.Module {
	out := make([]questapi.Module, len(ms))
	for i, m := range ms {
		out[i] = m.Module
	}
	return out
}

func printQuestions(w io.Writer, a questapi.Assessment) {
	for i, q := range a.Questions {
		fmt.Fprintf(w, "%d. %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			fmt.Fprintf(w, "   %d) %s\n", j, opt)
		}
	}
}

func printQuestOutcome(w io.Writer, out quest.Outcome) {
	fmt.Fprintf(w, "Score %d%% %s\n", out.Score, theme.Verdict(out.Passed))
	if out.Certified {
		fmt.Fprintln(w, theme.Badge.Render("Certified"))
	}
}

func atoi(field, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errs.Invalid(field, "must be a non-negative integer, got %q", s)
	}
	return n, nil
}

func atois(fields, args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, err := atoi(fields[i], a)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
