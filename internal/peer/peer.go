// Package peer aggregates peer evaluations of assignment submissions and
// maintains each learner's pending and completed review queues.
package peer

import (
	"context"
	"errors"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/abhisek/skillquest/internal/errs"
)

// Status is the lifecycle state of a submission.
type Status string

const (
	StatusNotSubmitted Status = "not_submitted"
	StatusSubmitted    Status = "submitted"
	StatusEvaluated    Status = "evaluated"
	// StatusWithdrawn marks a submission whose owner reset their progress.
	// Its evaluations stay on record for the evaluators.
	StatusWithdrawn Status = "withdrawn"
)

// Submission is one learner's answer to an assignment node.
type Submission struct {
	ID          string
	OwnerID     string
	RoadmapID   string
	NodeID      string
	Content     string
	FileName    string
	Status      Status
	SubmittedAt time.Time
}

// Criteria is the optional 1–10 breakdown behind an evaluation score.
type Criteria struct {
	Correctness int `validate:"min=1,max=10"`
	CodeQuality int `validate:"min=1,max=10"`
	Creativity  int `validate:"min=1,max=10"`
}

// Evaluation is one learner's review of another learner's submission.
type Evaluation struct {
	ID           string
	SubmissionID string    `validate:"required"`
	EvaluatorID  string    `validate:"required"`
	OwnerID      string    `validate:"required,nefield=EvaluatorID"`
	Score        int       `validate:"min=0,max=100"`
	Feedback     string    `validate:"min=10"`
	Criteria     *Criteria
	CreatedAt    time.Time
}

// MinFeedbackLength is the shortest feedback accepted, in characters.
const MinFeedbackLength = 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateEvaluation checks an evaluation before it is recorded: score in [0, 100],
// feedback of at least 10 characters, and no self-evaluation.
func ValidateEvaluation(e Evaluation) error {
	e.Feedback = strings.TrimSpace(e.Feedback)
	err := validate.Struct(e)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errs.Invalid("evaluation", "%v", err)
	}
	fe := verrs[0]
	switch fe.StructField() {
	case "Score":
		return errs.Invalid("score", "must be between 0 and 100, got %d", e.Score)
	case "Feedback":
		return errs.Invalid("feedback", "must be at least %d characters", MinFeedbackLength)
	case "OwnerID":
		if fe.Tag() == "nefield" {
			return errs.Invalid("evaluator", "learners cannot evaluate their own submission")
		}
	case "Correctness", "CodeQuality", "Creativity":
		return errs.Invalid(strings.ToLower(fe.StructField()), "must be between 1 and 10")
	}
	return errs.Invalid(strings.ToLower(fe.StructField()), "failed %q check", fe.Tag())
}

// ScoreFromCriteria converts a 1–10 criteria breakdown to a 0–100 score:
// round(mean × 10).
func ScoreFromCriteria(c Criteria) int {
	mean := float64(c.Correctness+c.CodeQuality+c.Creativity) / 3
	return int(math.Round(mean * 10))
}

// Policy is the passing rule for a peer-graded submission.
type Policy struct {
	RequiredPassing int
	PassingScore    int
}

// DefaultPolicy requires two evaluations scoring at least 80.
var DefaultPolicy = Policy{RequiredPassing: 2, PassingScore: 80}

// Result is the aggregated verdict for one submission.
type Result struct {
	Eligible     bool
	PassingCount int
	Evaluations  []Evaluation
	AverageScore int
}

// Aggregate combines evaluations of one submission. Each evaluator counts
// once; if an evaluator appears more than once the latest evaluation is
// used. The submission is eligible once at least RequiredPassing distinct
// evaluators scored it at or above PassingScore.
func Aggregate(evals []Evaluation, p Policy) Result {
	latest := make(map[string]Evaluation, len(evals))
	for _, e := range evals {
		prev, seen := latest[e.EvaluatorID]
		if !seen || !e.CreatedAt.Before(prev.CreatedAt) {
			latest[e.EvaluatorID] = e
		}
	}

	res := Result{Evaluations: make([]Evaluation, 0, len(latest))}
	for _, e := range latest {
		res.Evaluations = append(res.Evaluations, e)
	}
	sortByCreated(res.Evaluations)

	sum := 0
	for _, e := range res.Evaluations {
		sum += e.Score
		if e.Score >= p.PassingScore {
			res.PassingCount++
		}
	}
	if n := len(res.Evaluations); n > 0 {
		res.AverageScore = int(math.Round(float64(sum) / float64(n)))
	}
	res.Eligible = res.PassingCount >= p.RequiredPassing
	return res
}

// PassingAverage returns the rounded mean of evaluations at or above the
// passing score, or 0 when there are none.
func (r Result) PassingAverage(passingScore int) int {
	sum, n := 0, 0
	for _, e := range r.Evaluations {
		if e.Score >= passingScore {
			sum += e.Score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}

// Pending returns the submissions learnerID may still evaluate: submitted
// by someone else, not withdrawn and not yet evaluated by learnerID.
// Oldest first.
func Pending(learnerID string, subs []Submission, evals []Evaluation) []Submission {
	reviewed := make(map[string]bool)
	for _, e := range evals {
		if e.EvaluatorID == learnerID {
			reviewed[e.SubmissionID] = true
		}
	}
	var out []Submission
	for _, s := range subs {
		if s.OwnerID == learnerID || s.Status == StatusNotSubmitted || s.Status == StatusWithdrawn || reviewed[s.ID] {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

// Completed returns the evaluations learnerID has given, oldest first.
func Completed(learnerID string, evals []Evaluation) []Evaluation {
	var out []Evaluation
	for _, e := range evals {
		if e.EvaluatorID == learnerID {
			out = append(out, e)
		}
	}
	sortByCreated(out)
	return out
}

// HasEvaluated reports whether evaluatorID already reviewed submissionID.
func HasEvaluated(evals []Evaluation, evaluatorID, submissionID string) bool {
	return slices.ContainsFunc(evals, func(e Evaluation) bool {
		return e.EvaluatorID == evaluatorID && e.SubmissionID == submissionID
	})
}

func sortByCreated(evals []Evaluation) {
	sort.SliceStable(evals, func(i, j int) bool {
		if !evals[i].CreatedAt.Equal(evals[j].CreatedAt) {
			return evals[i].CreatedAt.Before(evals[j].CreatedAt)
		}
		return evals[i].EvaluatorID < evals[j].EvaluatorID
	})
}

// Pool is read access to the shared submission and evaluation records.
type Pool interface {
	Submissions(ctx context.Context) ([]Submission, error)
	Submission(ctx context.Context, id string) (Submission, error)
	Evaluations(ctx context.Context) ([]Evaluation, error)
	EvaluationsFor(ctx context.Context, submissionID string) ([]Evaluation, error)
}
