package cmd

import (
	"strconv"
	"strings"

	"github.com/abhisek/skillquest/internal/errs"
)

// parseAnswers reads "0,2,1" into option indexes. A blank entry ("0,,1")
// marks an unanswered question as -1.
func parseAnswers(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errs.Invalid("answers", "at least one answer is required")
	}
	parts := strings.Split(raw, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			out[i] = -1
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, errs.Invalid("answers", "answer %d: %q is not an option index", i+1, p)
		}
		out[i] = n
	}
	return out, nil
}

// parseAllAnswers is parseAnswers for submissions that need every question
// answered.
func parseAllAnswers(raw string) ([]int, error) {
	answers, err := parseAnswers(raw)
	if err != nil {
		return nil, err
	}
	for i, a := range answers {
		if a < 0 {
			return nil, errs.Invalid("answers", "question %d is unanswered", i+1)
		}
	}
	return answers, nil
}

// indexed keys answers by question index, skipping unanswered ones.
func indexed(answers []int) map[int]int {
	out := make(map[int]int, len(answers))
	for i, a := range answers {
		if a >= 0 {
			out[i] = a
		}
	}
	return out
}
