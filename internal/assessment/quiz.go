// Package assessment scores quiz attempts and rubric-graded assignment
// submissions against their pass thresholds.
package assessment

import (
	"fmt"
	"math"

	"github.com/abhisek/skillquest/internal/errs"
	"github.com/abhisek/skillquest/internal/roadmap"
)

// QuestionResult is the graded outcome of one question.
type QuestionResult struct {
	Index       int
	Chosen      int // -1 when unanswered
	Correct     bool
	Explanation string
}

// QuizAttempt is a scored quiz submission. Answers is cleared when the
// attempt fails so the learner starts the retry from a blank sheet.
type QuizAttempt struct {
	Answers map[int]int
	Results []QuestionResult
	Correct int
	Total   int
	Score   int
	Passed  bool
}

// Percent returns round(correct / total × 100), rounding half away from
// zero.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// ScoreQuiz grades answers (question index → chosen option) against q.
// Unanswered questions count as incorrect. Answers naming a question or
// option that does not exist are rejected.
func ScoreQuiz(q *roadmap.Quiz, answers map[int]int) (QuizAttempt, error) {
	if len(q.Questions) == 0 {
		return QuizAttempt{}, &errs.ContentError{Where: "quiz", Err: fmt.Errorf("no questions")}
	}

	for qi, opt := range answers {
		if qi < 0 || qi >= len(q.Questions) {
			return QuizAttempt{}, errs.Invalid("answers", "question %d does not exist", qi+1)
		}
		if opt < 0 || opt >= len(q.Questions[qi].Options) {
			return QuizAttempt{}, errs.Invalid("answers", "question %d has no option %d", qi+1, opt+1)
		}
	}

	attempt := QuizAttempt{
		Answers: answers,
		Results: make([]QuestionResult, len(q.Questions)),
		Total:   len(q.Questions),
	}
	for i, question := range q.Questions {
		if question.Correct < 0 || question.Correct >= len(question.Options) {
			return QuizAttempt{}, &errs.ContentError{
				Where: "quiz",
				Err:   fmt.Errorf("question %d has no valid answer key", i+1),
			}
		}
		chosen, answered := answers[i]
		if !answered {
			chosen = -1
		}
		ok := answered && chosen == question.Correct
		if ok {
			attempt.Correct++
		}
		attempt.Results[i] = QuestionResult{
			Index:       i,
			Chosen:      chosen,
			Correct:     ok,
			Explanation: question.Explanation,
		}
	}

	attempt.Score = Percent(attempt.Correct, attempt.Total)
	attempt.Passed = attempt.Score >= q.PassScore
	if !attempt.Passed {
		attempt.Answers = nil
	}
	return attempt, nil
}
