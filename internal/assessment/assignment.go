package assessment

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/abhisek/skillquest/internal/errs"
	"github.com/abhisek/skillquest/internal/roadmap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateSubmission rejects content shorter than minLen characters.
// Length is counted in runes.
func ValidateSubmission(content string, minLen int) error {
	if err := validate.Var(content, fmt.Sprintf("required,min=%d", minLen)); err != nil {
		return errs.Invalid("content", "must be at least %d characters, got %d",
			minLen, utf8.RuneCountInString(content))
	}
	return nil
}

// Award is the points given for one rubric criterion.
type Award struct {
	Criterion string
	Points    int
	Max       int
}

// RubricResult is a scored rubric-graded submission.
type RubricResult struct {
	Awards []Award
	Score  int
	Passed bool
}

// ScoreRubric totals the points awarded per criterion. Criteria without an
// award score zero. Awards for unknown criteria or outside [0, criterion
// points] are rejected.
func ScoreRubric(a *roadmap.Assignment, awards map[string]int) (RubricResult, error) {
	if total := a.Rubric.Total(); total != 100 {
		return RubricResult{}, &errs.ContentError{
			Where: "rubric",
			Err:   fmt.Errorf("criteria sum to %d points, want 100", total),
		}
	}

	names := make([]string, 0, len(awards))
	for name := range awards {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c, ok := a.Rubric.Criterion(name)
		if !ok {
			return RubricResult{}, errs.Invalid("awards", "unknown criterion %q", name)
		}
		if pts := awards[name]; pts < 0 || pts > c.Points {
			return RubricResult{}, errs.Invalid("awards", "%s: %d points is outside [0, %d]", name, pts, c.Points)
		}
	}

	res := RubricResult{Awards: make([]Award, len(a.Rubric))}
	for i, c := range a.Rubric {
		pts := awards[c.Name]
		res.Awards[i] = Award{Criterion: c.Name, Points: pts, Max: c.Points}
		res.Score += pts
	}
	res.Passed = res.Score >= a.PassScore
	return res, nil
}
