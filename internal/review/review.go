// Package review drafts rubric grades for assignment submissions with a
// language model. Drafts are advisory; they are scored with the same rubric
// scorer as manual awards.
package review

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/skillquest/internal/assessment"
	"github.com/abhisek/skillquest/internal/errs"
	"github.com/abhisek/skillquest/internal/llm"
	"github.com/abhisek/skillquest/internal/roadmap"
)

// Config tunes generation.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig keeps reviews short and repeatable.
func DefaultConfig() Config {
	return Config{MaxTokens: 1024, Temperature: 0.2}
}

// Comment is the model's note on one criterion.
type Comment struct {
	Criterion string
	Comment   string
}

// Draft is a proposed grade.
type Draft struct {
	NodeID       string
	Awards       map[string]int
	Result       assessment.RubricResult
	Comments     []Comment
	Strengths    []string
	Improvements []string
	Feedback     string
	Model        string
}

// Service produces review drafts.
type Service struct {
	provider llm.Provider
	cfg      Config
	log      *zap.Logger
}

// NewService creates a review service.
func NewService(provider llm.Provider, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{provider: provider, cfg: cfg, log: log}
}

type reviewOutput struct {
	Awards []struct {
		Criterion string `json:"criterion"`
		Points    int    `json:"points"`
		Comment   string `json:"comment"`
	} `json:"awards"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Feedback     string   `json:"feedback"`
}

// Review drafts a rubric grade for content submitted to a rubric-graded
// assignment node.
func (s *Service) Review(ctx context.Context, node roadmap.Node, content string) (*Draft, error) {
	a, ok := node.Payload.(*roadmap.Assignment)
	if !ok {
		return nil, errs.Invalid("node", "%s is a %s, not an assignment", node.ID, node.Kind())
	}
	if a.Grading != roadmap.GradingRubric {
		return nil, errs.Invalid("node", "%s is peer graded; there is no rubric to draft", node.ID)
	}
	if err := assessment.ValidateSubmission(content, a.MinLength); err != nil {
		return nil, err
	}

	resp, err := s.provider.Generate(llm.WithPurpose(ctx, "review"), llm.Request{
		System:      systemPrompt,
		Messages:    llm.UserMessage(buildUserMessage(node.Title, a, content)),
		Schema:      rubricSchema(a.Rubric),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("review %s: %w", node.ID, err)
	}

	var out reviewOutput
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("parse review: %w", err)
	}

	d := &Draft{
		NodeID:       node.ID,
		Awards:       make(map[string]int, len(a.Rubric)),
		Strengths:    out.Strengths,
		Improvements: out.Improvements,
		Feedback:     out.Feedback,
		Model:        resp.Model,
	}
	for _, aw := range out.Awards {
		c, ok := a.Rubric.Criterion(aw.Criterion)
		if !ok {
			s.log.Warn("review named unknown criterion", zap.String("node", node.ID), zap.String("criterion", aw.Criterion))
			continue
		}
		pts := min(max(aw.Points, 0), c.Points)
		if pts != aw.Points {
			s.log.Warn("review award clamped",
				zap.String("node", node.ID),
				zap.String("criterion", c.Name),
				zap.Int("proposed", aw.Points),
				zap.Int("max", c.Points))
		}
		d.Awards[c.Name] = pts
		d.Comments = append(d.Comments, Comment{Criterion: c.Name, Comment: aw.Comment})
	}

	d.Result, err = assessment.ScoreRubric(a, d.Awards)
	if err != nil {
		return nil, err
	}
	return d, nil
}
