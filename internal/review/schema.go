package review

import (
	"github.com/abhisek/skillquest/internal/llm"
	"github.com/abhisek/skillquest/internal/roadmap"
)

// rubricSchema constrains the model to one award per rubric criterion.
// Criterion names are enumerated so the model cannot invent new ones.
func rubricSchema(r roadmap.Rubric) *llm.Schema {
	names := make([]any, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return &llm.Schema{
		// Name is the compile cache key, so it must vary with the rubric.
		Name:        "rubric-review-" + rubricKey(r),
		Description: "Per-criterion rubric awards with written feedback for an assignment submission",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"awards": map[string]any{
					"type":        "array",
					"description": "Exactly one entry per rubric criterion",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"criterion": map[string]any{"type": "string", "enum": names},
							"points": map[string]any{
								"type":        "integer",
								"minimum":     0,
								"description": "Points awarded, at most the criterion's maximum",
							},
							"comment": map[string]any{
								"type":        "string",
								"description": "One sentence justifying the points",
							},
						},
						"required":             []any{"criterion", "points", "comment"},
						"additionalProperties": false,
					},
				},
				"strengths": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "1-3 concrete strengths",
				},
				"improvements": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "1-3 concrete improvements",
				},
				"feedback": map[string]any{
					"type":        "string",
					"description": "2-4 sentence overall feedback addressed to the learner",
				},
			},
			"required":             []any{"awards", "strengths", "improvements", "feedback"},
			"additionalProperties": false,
		},
	}
}
