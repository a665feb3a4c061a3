package roadmap

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// documentSchema describes the YAML roadmap document format.
var documentSchema = map[string]any{
	"type":     "object",
	"required": []any{"id", "title", "version", "nodes"},
	"properties": map[string]any{
		"id":          map[string]any{"type": "string", "pattern": "^[a-z0-9][a-z0-9-]*$"},
		"title":       map[string]any{"type": "string", "minLength": 1},
		"description": map[string]any{"type": "string"},
		"version":     map[string]any{"type": "string"},
		"certificate": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"policy":            map[string]any{"enum": []any{string(PolicyGradeThreshold), string(PolicyPeerEvaluation)}},
				"threshold":         map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
				"assignment_weight": map[string]any{"type": "number", "minimum": 0},
				"final_weight":      map[string]any{"type": "number", "minimum": 0},
				"final_project":     map[string]any{"type": "string"},
				"final_submission":  map[string]any{"type": "string"},
				"required_passing":  map[string]any{"type": "integer", "minimum": 1},
				"passing_score":     map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			},
			"additionalProperties": false,
		},
		"nodes": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "title", "type"},
				"properties": map[string]any{
					"id":    map[string]any{"type": "string", "minLength": 1},
					"title": map[string]any{"type": "string"},
					"type": map[string]any{"enum": []any{
						string(KindLesson), string(KindQuiz), string(KindAssignment),
						string(KindPeerEvaluation), string(KindCertificate),
					}},
					"predecessors": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"questions": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":     "object",
							"required": []any{"prompt", "options", "correct"},
							"properties": map[string]any{
								"prompt":      map[string]any{"type": "string"},
								"options":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
								"correct":     map[string]any{"type": "integer", "minimum": 0},
								"explanation": map[string]any{"type": "string"},
							},
						},
					},
					"rubric": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":     "object",
							"required": []any{"name", "points"},
							"properties": map[string]any{
								"name":        map[string]any{"type": "string", "minLength": 1},
								"points":      map[string]any{"type": "integer", "minimum": 1},
								"description": map[string]any{"type": "string"},
							},
						},
					},
					"grading":          map[string]any{"enum": []any{string(GradingRubric), string(GradingPeer)}},
					"pass_score":       map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
					"min_length":       map[string]any{"type": "integer", "minimum": 0},
					"required_passing": map[string]any{"type": "integer", "minimum": 1},
					"passing_score":    map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
				},
			},
		},
	},
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func documentValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		const url = "schema://roadmap.json"
		c := jsonschema.NewCompiler()
		if err := c.AddResource(url, normalize(documentSchema)); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(url)
	})
	return compiledSchema, compileErr
}

// normalize round-trips v through JSON so numbers and maps have the shapes
// the schema validator expects.
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
