package learning

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skillquest/internal/achievements"
	"github.com/abhisek/skillquest/internal/errs"
	"github.com/abhisek/skillquest/internal/kvcache"
	"github.com/abhisek/skillquest/internal/llm"
	"github.com/abhisek/skillquest/internal/peer"
	"github.com/abhisek/skillquest/internal/progress"
	"github.com/abhisek/skillquest/internal/quest"
	"github.com/abhisek/skillquest/internal/review"
	"github.com/abhisek/skillquest/internal/roadmap"
	"github.com/abhisek/skillquest/internal/unlock"
)

var _ quest.Progress = (*Service)(nil)

var testNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func mustRoadmap(t *testing.T, id string, nodes []roadmap.Node, cert roadmap.CertificateConfig) *roadmap.Roadmap {
	t.Helper()
	r, err := roadmap.New(id, id, nodes, cert)
	require.NoError(t, err)
	return r
}

func questions(n int) []roadmap.Question {
	qs := make([]roadmap.Question, n)
	for i := range qs {
		qs[i] = roadmap.Question{Prompt: "q", Options: []string{"right", "wrong"}, Correct: 0}
	}
	return qs
}

// answers marks the first correct questions right and the rest wrong.
func answers(total, correct int) map[int]int {
	out := make(map[int]int, total)
	for i := 0; i < total; i++ {
		if i < correct {
			out[i] = 0
		} else {
			out[i] = 1
		}
	}
	return out
}

func rubricRoadmap(t *testing.T) *roadmap.Roadmap {
	return mustRoadmap(t, "web", []roadmap.Node{
		{ID: "intro", Title: "Intro", Payload: &roadmap.Lesson{Content: "hello"}},
		{ID: "page", Title: "Landing Page", Payload: &roadmap.Assignment{
			Prompt:    "Build a page",
			Grading:   roadmap.GradingRubric,
			MinLength: 20,
			Rubric: roadmap.Rubric{
				{Name: "structure", Points: 50},
				{Name: "styling", Points: 50},
			},
		}},
		{ID: "cert", Title: "Web Certificate", Payload: &roadmap.Certificate{Title: "Web"}},
	}, roadmap.CertificateConfig{Policy: roadmap.PolicyGradeThreshold})
}

func peerRoadmap(t *testing.T) *roadmap.Roadmap {
	return mustRoadmap(t, "py", []roadmap.Node{
		{ID: "capstone", Title: "Capstone", Payload: &roadmap.Assignment{Prompt: "Build it", Grading: roadmap.GradingPeer, MinLength: 20}},
		{ID: "reviews", Title: "Peer Reviews", Payload: &roadmap.PeerEvaluation{Assignment: "capstone"}},
		{ID: "cert", Title: "Python Certificate", Payload: &roadmap.Certificate{Title: "Python"}},
	}, roadmap.CertificateConfig{Policy: roadmap.PolicyPeerEvaluation, FinalSubmission: "capstone"})
}

func boundsRoadmap(t *testing.T) *roadmap.Roadmap {
	return mustRoadmap(t, "bounds", []roadmap.Node{
		{ID: "q13", Title: "Thirteen", Payload: &roadmap.Quiz{Questions: questions(13)}},
		{ID: "q10", Title: "Ten", Payload: &roadmap.Quiz{Questions: questions(10)}},
	}, roadmap.CertificateConfig{})
}

func newCatalog(t *testing.T) *roadmap.Catalog {
	t.Helper()
	builtin, err := roadmap.Builtin()
	require.NoError(t, err)
	extra, err := roadmap.NewCatalog(rubricRoadmap(t), peerRoadmap(t), boundsRoadmap(t))
	require.NoError(t, err)
	c, err := builtin.Merge(extra)
	require.NoError(t, err)
	return c
}

func open(t *testing.T, learner string, repo progress.Repository, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(clock)}, opts...)
	s, err := Open(context.Background(), learner, newCatalog(t), repo, opts...)
	require.NoError(t, err)
	return s
}

func TestThreeNodeScenario(t *testing.T) {
	ctx := context.Background()
	s := open(t, "ana", progress.NewMemoryRepository())

	st, err := s.Status(ctx, "getting-started")
	require.NoError(t, err)
	assert.Equal(t, unlock.StateAvailable, st.Nodes[0].State)
	assert.Equal(t, unlock.StateLocked, st.Nodes[1].State)

	_, err = s.IssueCertificate(ctx, "getting-started")
	var locked *errs.LockedAccessError
	require.True(t, errors.As(err, &locked), "got %v", err)
	assert.Equal(t, []string{"check-in"}, locked.Blocking)

	_, err = s.Complete(ctx, "getting-started", "welcome")
	require.NoError(t, err)
	st, err = s.Status(ctx, "getting-started")
	require.NoError(t, err)
	assert.Equal(t, unlock.StateAvailable, st.Nodes[1].State, "quiz unlocks after the lesson")

	_, err = s.IssueCertificate(ctx, "getting-started")
	assert.True(t, errs.IsLocked(err), "certificate before quiz pass: %v", err)

	// 4 of 5 correct is 80%.
	out, err := s.SubmitQuiz(ctx, "getting-started", "check-in", map[int]int{0: 1, 1: 1, 2: 0, 3: 2, 4: 0})
	require.NoError(t, err)
	assert.True(t, out.Completed)
	require.NotNil(t, out.Score)
	assert.Equal(t, 80, *out.Score)
	assert.Equal(t, 80, out.XP)
	assert.Equal(t, 80, s.Level().XP)

	st, err = s.Status(ctx, "getting-started")
	require.NoError(t, err)
	assert.Equal(t, unlock.StateAvailable, st.Nodes[2].State, "certificate unlocks after the quiz")

	out, err = s.IssueCertificate(ctx, "getting-started")
	require.NoError(t, err)
	require.NotNil(t, out.Certificate)
	assert.Equal(t, roadmap.PolicyGradeThreshold, out.Certificate.Policy)
	require.Len(t, out.Achievements, 1)
	assert.Equal(t, achievements.BadgeFirstCourse, out.Achievements[0].Badge)

	again, err := s.IssueCertificate(ctx, "getting-started")
	require.NoError(t, err)
	assert.True(t, again.AlreadyComplete)
	assert.Equal(t, out.Certificate.Serial, again.Certificate.Serial)
}

func TestQuizBoundary(t *testing.T) {
	ctx := context.Background()
	s := open(t, "ana", progress.NewMemoryRepository())

	out, err := s.SubmitQuiz(ctx, "bounds", "q13", answers(13, 9))
	require.NoError(t, err)
	assert.Equal(t, 69, out.Quiz.Score)
	assert.False(t, out.Completed)
	assert.Nil(t, out.Quiz.Answers, "failed attempt clears answers")
	assert.Zero(t, s.Level().XP)

	_, err = s.SubmitQuiz(ctx, "bounds", "q10", answers(10, 10))
	assert.True(t, errs.IsLocked(err))

	out, err = s.SubmitQuiz(ctx, "bounds", "q13", answers(13, 13))
	require.NoError(t, err)
	assert.True(t, out.Completed)

	out, err = s.SubmitQuiz(ctx, "bounds", "q10", answers(10, 7))
	require.NoError(t, err)
	assert.Equal(t, 70, out.Quiz.Score)
	assert.True(t, out.Completed)
	assert.Equal(t, 170, s.Level().XP)
}

func TestQuizResubmissionNoRegression(t *testing.T) {
	ctx := context.Background()
	repo := progress.NewMemoryRepository()
	s := open(t, "ana", repo)

	_, err := s.SubmitQuiz(ctx, "bounds", "q10", answers(10, 9))
	assert.True(t, errs.IsLocked(err))
	_, err = s.SubmitQuiz(ctx, "bounds", "q13", answers(13, 12))
	require.NoError(t, err)
	xpBefore := s.Level().XP

	out, err := s.SubmitQuiz(ctx, "bounds", "q13", answers(13, 10))
	require.NoError(t, err)
	assert.True(t, out.AlreadyComplete)
	assert.Zero(t, out.XP)
	assert.Equal(t, xpBefore, s.Level().XP)
	rec, ok := s.Snapshot().Record("bounds", "q13")
	require.True(t, ok)
	assert.Equal(t, 92, *rec.Score)

	out, err = s.SubmitQuiz(ctx, "bounds", "q13", answers(13, 13))
	require.NoError(t, err)
	assert.Zero(t, out.XP, "improving a score awards no further experience")
	rec, _ = s.Snapshot().Record("bounds", "q13")
	assert.Equal(t, 100, *rec.Score)

	history, err := s.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2, "the replay with a lower score commits nothing")
}

func TestFailedCommitLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := progress.NewMemoryRepository()
	cache := kvcache.NewMemory()
	s := open(t, "ana", repo, WithCache(cache))

	repo.FailNextCommit(errors.New("disk full"))
	_, err := s.SubmitQuiz(ctx, "bounds", "q13", answers(13, 13))
	require.True(t, errs.IsRemoteSync(err), "got %v", err)
	assert.Zero(t, s.Level().XP)
	assert.False(t, s.Snapshot().IsComplete("bounds", "q13"))
	_, ok, err := kvcache.GetInt(cache, kvcache.XPKey("ana"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.SubmitQuiz(ctx, "bounds", "q13", answers(13, 13))
	require.NoError(t, err)
	xp, ok, err := kvcache.GetInt(cache, kvcache.XPKey("ana"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100, xp)

	reloaded, err := repo.Load(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 100, reloaded.XP)
}

func TestRubricAssignment(t *testing.T) {
	ctx := context.Background()
	s := open(t, "ana", progress.NewMemoryRepository())
	_, err := s.Complete(ctx, "web", "intro")
	require.NoError(t, err)

	_, err = s.SubmitAssignment(ctx, "web", "page", Submission{Content: "too short"})
	assert.True(t, errs.IsValidation(err))

	content := strings.Repeat("<div>page</div>", 3)
	_, err = s.SubmitAssignment(ctx, "web", "page", Submission{Content: content, Awards: map[string]int{"structure": 60}})
	assert.True(t, errs.IsValidation(err), "award above criterion points")

	out, err := s.SubmitAssignment(ctx, "web", "page", Submission{Content: content, Awards: map[string]int{"structure": 40, "styling": 40}})
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, 80, out.XP)

	cs, err := s.CertificateStatus(ctx, "web")
	require.NoError(t, err)
	assert.True(t, cs.AncestorsComplete)
	assert.False(t, cs.Decision.Eligible, "80 is below the 85 threshold")
	_, err = s.IssueCertificate(ctx, "web")
	assert.True(t, errs.IsLocked(err))

	st, err := s.Status(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, unlock.StateLocked, st.Nodes[2].State)

	out, err = s.SubmitAssignment(ctx, "web", "page", Submission{Content: content, Awards: map[string]int{"structure": 45, "styling": 45}})
	require.NoError(t, err)
	assert.Zero(t, out.XP)

	out, err = s.IssueCertificate(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, 90, out.Certificate.Grade)
}

func TestAIGradedAssignment(t *testing.T) {
	ctx := context.Background()
	reply, err := json.Marshal(map[string]any{
		"awards": []any{
			map[string]any{"criterion": "structure", "points": 45, "comment": "clean"},
			map[string]any{"criterion": "styling", "points": 40, "comment": "ok"},
		},
		"strengths":    []string{"semantic"},
		"improvements": []string{"contrast"},
		"feedback":     "Solid.",
	})
	require.NoError(t, err)
	reviewer := review.NewService(llm.NewMockProvider(llm.MockResponse{Content: reply}), review.DefaultConfig(), nil)

	s := open(t, "ana", progress.NewMemoryRepository(), WithReviewer(reviewer))
	_, err = s.Complete(ctx, "web", "intro")
	require.NoError(t, err)

	out, err := s.SubmitAssignment(ctx, "web", "page", Submission{Content: strings.Repeat("<p>x</p>", 5), AIGrade: true})
	require.NoError(t, err)
	require.NotNil(t, out.Draft)
	assert.Equal(t, 85, out.Rubric.Score)
	assert.Equal(t, 85, out.XP)
}

func TestReviewUnavailable(t *testing.T) {
	ctx := context.Background()
	s := open(t, "ana", progress.NewMemoryRepository())
	_, err := s.Complete(ctx, "web", "intro")
	require.NoError(t, err)

	_, err = s.Review(ctx, "web", "page", strings.Repeat("x", 40))
	assert.ErrorIs(t, err, ErrReviewUnavailable)
}

func TestCompleteRefusesInputNodes(t *testing.T) {
	s := open(t, "ana", progress.NewMemoryRepository())
	_, err := s.Complete(context.Background(), "bounds", "q13")
	assert.True(t, errs.IsValidation(err))
	_, err = s.Complete(context.Background(), "bounds", "missing")
	assert.True(t, errs.IsNotFound(err))
}

func intp(v int) *int { return &v }

func TestPeerReviewFlow(t *testing.T) {
	ctx := context.Background()
	repo := progress.NewMemoryRepository()
	ana := open(t, "ana", repo)
	ben := open(t, "ben", repo)
	cy := open(t, "cy", repo)

	out, err := ana.SubmitAssignment(ctx, "py", "capstone", Submission{Content: "def main():\n    print('hello world')\n", FileName: "main.py"})
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Zero(t, out.XP)
	subID := out.SubmissionID
	require.NotEmpty(t, subID)

	// Reviews are not in yet.
	gate, err := ana.Complete(ctx, "py", "reviews")
	require.NoError(t, err)
	assert.False(t, gate.Completed)
	require.NotNil(t, gate.Peer)
	assert.Zero(t, gate.Peer.PassingCount)

	_, err = ana.EvaluatePeer(ctx, PeerReview{SubmissionID: subID, Score: intp(90), Feedback: "reviewing myself"})
	assert.True(t, errs.IsValidation(err), "self evaluation")

	pending, err := ben.PendingEvaluations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = ben.EvaluatePeer(ctx, PeerReview{SubmissionID: subID, Score: intp(85), Feedback: "short"})
	assert.True(t, errs.IsValidation(err), "feedback under 10 characters")

	res, err := ben.EvaluatePeer(ctx, PeerReview{SubmissionID: subID, Score: intp(85), Feedback: "clear structure and good naming"})
	require.NoError(t, err)
	assert.Equal(t, 100, res.XP)
	assert.Equal(t, 100, ben.Level().XP)

	_, err = ben.EvaluatePeer(ctx, PeerReview{SubmissionID: subID, Score: intp(95), Feedback: "changed my mind entirely"})
	assert.True(t, errs.IsValidation(err), "duplicate evaluation")

	pending, err = ben.PendingEvaluations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	done, err := ben.CompletedEvaluations(ctx)
	require.NoError(t, err)
	require.Len(t, done, 1)

	// Criteria 9, 9, 9 score 90.
	_, err = cy.EvaluatePeer(ctx, PeerReview{SubmissionID: subID, Feedback: "works and reads well", Criteria: &peer.Criteria{Correctness: 9, CodeQuality: 9, Creativity: 9}})
	require.NoError(t, err)

	fb, err := ana.Feedback(ctx, "py", "capstone")
	require.NoError(t, err)
	assert.True(t, fb.Eligible)
	assert.Equal(t, 2, fb.PassingCount)

	gate, err = ana.Complete(ctx, "py", "reviews")
	require.NoError(t, err)
	assert.True(t, gate.Completed)
	assert.Equal(t, 88, *gate.Score)
	assert.Equal(t, 88, gate.XP)

	cert, err := ana.IssueCertificate(ctx, "py")
	require.NoError(t, err)
	require.NotNil(t, cert.Certificate)
	assert.Equal(t, roadmap.PolicyPeerEvaluation, cert.Certificate.Policy)
}

func TestUpdateLatchesThroughCommit(t *testing.T) {
	ctx := context.Background()
	repo := progress.NewMemoryRepository()
	s := open(t, "ana", repo)

	err := s.Update(ctx, "submit final", func(p *progress.LearnerProgress) ([]progress.Event, error) {
		p.Final.Passed = true
		return []progress.Event{{Type: progress.EventFinalSubmitted}}, nil
	})
	require.NoError(t, err)
	assert.True(t, s.Snapshot().Final.Passed)

	history, err := s.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ana", history[0].LearnerID)
	assert.Equal(t, testNow, history[0].At)

	repo.FailNextCommit(errors.New("offline"))
	err = s.Update(ctx, "complete module", func(p *progress.LearnerProgress) ([]progress.Event, error) {
		p.Modules["1"] = []bool{true}
		return nil, nil
	})
	assert.True(t, errs.IsRemoteSync(err))
	assert.Empty(t, s.Snapshot().Modules)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	repo := progress.NewMemoryRepository()
	cache := kvcache.NewMemory()
	s := open(t, "ana", repo, WithCache(cache))

	_, err := s.SubmitQuiz(ctx, "bounds", "q13", answers(13, 13))
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx))

	assert.Zero(t, s.Level().XP)
	assert.False(t, s.Snapshot().IsComplete("bounds", "q13"))
	_, ok, err := kvcache.GetInt(cache, kvcache.XPKey("ana"))
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded := open(t, "ana", repo)
	assert.Zero(t, reloaded.Level().XP)
}

func TestReset_LeavesOtherLearnersIntact(t *testing.T) {
	ctx := context.Background()
	repo := progress.NewMemoryRepository()
	cache := kvcache.NewMemory()
	ana := open(t, "ana", repo, WithCache(cache))
	ben := open(t, "ben", repo, WithCache(cache))
	cy := open(t, "cy", repo, WithCache(cache))

	sub, err := ana.SubmitAssignment(ctx, "py", "capstone", Submission{Content: "def main():\n    print('hello world')\n"})
	require.NoError(t, err)
	_, err = ben.EvaluatePeer(ctx, PeerReview{SubmissionID: sub.SubmissionID, Score: intp(90), Feedback: "clear structure and good naming"})
	require.NoError(t, err)
	require.NoError(t, kvcache.SetBool(cache, kvcache.LessonKey("10", 0, 0), true))

	require.NoError(t, ana.Reset(ctx))

	done, err := ben.CompletedEvaluations(ctx)
	require.NoError(t, err)
	assert.Len(t, done, 1)
	assert.Equal(t, 100, ben.Level().XP)
	assert.Equal(t, 1, ben.Snapshot().Stats.EvaluationsGiven)

	n, ok, err := kvcache.GetInt(cache, kvcache.XPKey("ben"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 100, n)
	lesson, err := kvcache.GetBool(cache, kvcache.LessonKey("10", 0, 0))
	require.NoError(t, err)
	assert.True(t, lesson)
	_, ok, err = kvcache.GetInt(cache, kvcache.XPKey("ana"))
	require.NoError(t, err)
	assert.False(t, ok)

	// The withdrawn work leaves the review queue and cannot be reviewed.
	pending, err := cy.PendingEvaluations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	_, err = cy.EvaluatePeer(ctx, PeerReview{SubmissionID: sub.SubmissionID, Score: intp(90), Feedback: "works and reads well"})
	assert.True(t, errs.IsValidation(err))

	// A fresh submission starts a new review cycle.
	again, err := ana.SubmitAssignment(ctx, "py", "capstone", Submission{Content: "def main():\n    print('hello again')\n"})
	require.NoError(t, err)
	assert.NotEqual(t, sub.SubmissionID, again.SubmissionID)
	fb, err := ana.Feedback(ctx, "py", "capstone")
	require.NoError(t, err)
	assert.Empty(t, fb.Evaluations)
}

func TestOpen_RequiresLearner(t *testing.T) {
	_, err := Open(context.Background(), "", newCatalog(t), progress.NewMemoryRepository())
	assert.True(t, errs.IsValidation(err))
}
