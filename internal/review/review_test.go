package review

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skillquest/internal/errs"
	"github.com/abhisek/skillquest/internal/llm"
	"github.com/abhisek/skillquest/internal/roadmap"
)

func landingPage() roadmap.Node {
	return roadmap.Node{
		ID:    "landing-page",
		Title: "Build a Landing Page",
		Payload: &roadmap.Assignment{
			Prompt:  "Build a responsive landing page.",
			Grading: roadmap.GradingRubric,
			Rubric: roadmap.Rubric{
				{Name: "structure", Points: 30},
				{Name: "styling", Points: 30},
				{Name: "responsiveness", Points: 20},
				{Name: "accessibility", Points: 20},
			},
			MinLength: 20,
			PassScore: 70,
		},
	}
}

const submission = `<main><h1>Hello</h1><p>A landing page with a hero section.</p></main>`

func reply(t *testing.T, v any) llm.MockResponse {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return llm.MockResponse{Content: b}
}

func award(name string, pts int) map[string]any {
	return map[string]any{"criterion": name, "points": pts, "comment": "noted"}
}

func TestReview_ScoresDraftWithRubric(t *testing.T) {
	mock := llm.NewMockProvider(reply(t, map[string]any{
		"awards": []any{
			award("structure", 28),
			award("styling", 25),
			award("responsiveness", 12),
			award("accessibility", 15),
		},
		"strengths":    []string{"Semantic markup"},
		"improvements": []string{"Add media queries"},
		"feedback":     "Good start.",
	}))
	svc := NewService(mock, DefaultConfig(), nil)

	d, err := svc.Review(context.Background(), landingPage(), submission)
	require.NoError(t, err)
	assert.Equal(t, 80, d.Result.Score)
	assert.True(t, d.Result.Passed)
	assert.Len(t, d.Comments, 4)
	assert.Equal(t, "mock", d.Model)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Messages[0].Content, "responsiveness (max 20 points)")
	assert.True(t, strings.HasPrefix(calls[0].Schema.Name, "rubric-review-"))
}

func TestReview_ClampsOverAward(t *testing.T) {
	mock := llm.NewMockProvider(reply(t, map[string]any{
		"awards":       []any{award("structure", 45), award("styling", 30)},
		"strengths":    []string{},
		"improvements": []string{},
		"feedback":     "ok",
	}))
	d, err := NewService(mock, DefaultConfig(), nil).Review(context.Background(), landingPage(), submission)
	require.NoError(t, err)
	assert.Equal(t, 30, d.Awards["structure"])
	// Missing criteria score zero.
	assert.Equal(t, 60, d.Result.Score)
	assert.False(t, d.Result.Passed)
}

func TestReview_RejectsUnsuitableNodes(t *testing.T) {
	svc := NewService(llm.NewMockProvider(), DefaultConfig(), nil)

	peerGraded := landingPage()
	peerGraded.Payload.(*roadmap.Assignment).Grading = roadmap.GradingPeer
	_, err := svc.Review(context.Background(), peerGraded, submission)
	assert.True(t, errs.IsValidation(err))

	_, err = svc.Review(context.Background(), roadmap.Node{ID: "intro", Payload: &roadmap.Lesson{}}, submission)
	assert.True(t, errs.IsValidation(err))

	_, err = svc.Review(context.Background(), landingPage(), "too short")
	assert.True(t, errs.IsValidation(err))
}

func TestReview_ProviderFailure(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}})
	_, err := NewService(mock, DefaultConfig(), nil).Review(context.Background(), landingPage(), submission)
	var unavail *llm.ErrProviderUnavailable
	assert.True(t, errors.As(err, &unavail))
}
