// Package learning is the learner session: every mutation of a learner's
// progress goes through a Service, which scores the action, commits the
// result durably and only then makes it visible.
package learning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/skillquest/internal/achievements"
	"github.com/abhisek/skillquest/internal/errs"
	"github.com/abhisek/skillquest/internal/kvcache"
	"github.com/abhisek/skillquest/internal/metrics"
	"github.com/abhisek/skillquest/internal/progress"
	"github.com/abhisek/skillquest/internal/review"
	"github.com/abhisek/skillquest/internal/roadmap"
	"github.com/abhisek/skillquest/internal/xp"
)

// ErrReviewUnavailable is returned when AI review is requested but no
// model provider is configured.
var ErrReviewUnavailable = errors.New("AI review is not configured; set SKILLQUEST_LLM_PROVIDER or a provider API key")

// errUnchanged tells mutate there is nothing to commit.
var errUnchanged = errors.New("unchanged")

// Reviewer drafts rubric awards for a submission.
type Reviewer interface {
	Review(ctx context.Context, node roadmap.Node, content string) (*review.Draft, error)
}

// Service is one learner's session. It is safe for concurrent use.
type Service struct {
	catalog  *roadmap.Catalog
	repo     progress.Repository
	cache    kvcache.Store
	reviewer Reviewer
	metrics  *metrics.Recorder
	log      *zap.Logger
	now      func() time.Time

	mu  sync.Mutex
	cur *progress.LearnerProgress
}

// Option configures a Service.
type Option func(*Service)

// WithCache sets the advisory cache experience is mirrored into.
func WithCache(c kvcache.Store) Option { return func(s *Service) { s.cache = c } }

// WithReviewer enables AI-drafted rubric review.
func WithReviewer(r Reviewer) Option { return func(s *Service) { s.reviewer = r } }

func WithMetrics(m *metrics.Recorder) Option { return func(s *Service) { s.metrics = m } }
func WithLogger(l *zap.Logger) Option        { return func(s *Service) { s.log = l } }
func WithClock(now func() time.Time) Option  { return func(s *Service) { s.now = now } }

// Open loads a learner's progress from repo and starts a session.
func Open(ctx context.Context, learnerID string, catalog *roadmap.Catalog, repo progress.Repository, opts ...Option) (*Service, error) {
	if learnerID == "" {
		return nil, errs.Invalid("learner", "learner id is required")
	}
	s := &Service{
		catalog: catalog,
		repo:    repo,
		cache:   kvcache.NewMemory(),
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(zap.String("learner", learnerID))

	p, err := repo.Load(ctx, learnerID)
	if err != nil {
		return nil, &errs.RemoteSyncError{Op: "load progress", Err: err}
	}
	s.cur = p

	if cached, ok, err := kvcache.GetInt(s.cache, kvcache.XPKey(learnerID)); err == nil && ok && cached != p.XP {
		s.log.Debug("cached experience is stale", zap.Int("cached", cached), zap.Int("stored", p.XP))
	}
	return s, nil
}

// LearnerID returns the session's learner.
func (s *Service) LearnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.LearnerID
}

// Catalog returns the roadmaps available to the session.
func (s *Service) Catalog() *roadmap.Catalog { return s.catalog }

// Snapshot returns a copy of the current progress.
func (s *Service) Snapshot() *progress.LearnerProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Clone()
}

// Update applies fn to a copy of the progress and commits it with the
// events fn returns. It lets other services latch state through the same
// commit path.
func (s *Service) Update(ctx context.Context, op string, fn func(p *progress.LearnerProgress) ([]progress.Event, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.mutate(ctx, op, func(next *progress.LearnerProgress, ch *progress.Change) error {
		events, err := fn(next)
		ch.Events = append(ch.Events, events...)
		return err
	})
	return err
}

// mutate runs fn against a clone of the current progress, commits the
// clone together with whatever fn put in the change, and swaps it in.
// Newly earned badges are recorded in the same commit. The caller holds
// s.mu.
func (s *Service) mutate(ctx context.Context, op string, fn func(next *progress.LearnerProgress, ch *progress.Change) error) ([]achievements.Award, error) {
	next := s.cur.Clone()
	var ch progress.Change
	if err := fn(next, &ch); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil, nil
		}
		return nil, err
	}

	now := s.now()
	awards := achievements.Unlock(next, now)
	for _, a := range awards {
		ch.Events = append(ch.Events, progress.Event{
			Type: progress.EventAchievementUnlocked,
			Data: map[string]any{"badge": string(a.Badge), "rarity": string(a.Rarity)},
		})
	}
	for i := range ch.Events {
		ch.Events[i].LearnerID = next.LearnerID
		if ch.Events[i].At.IsZero() {
			ch.Events[i].At = now
		}
	}
	next.UpdatedAt = now.UTC()
	ch.Learners = []*progress.LearnerProgress{next}

	if err := s.repo.Commit(ctx, ch); err != nil {
		if errors.Is(err, progress.ErrDuplicateEvaluation) {
			return nil, errs.Invalid("evaluation", "you have already evaluated this submission")
		}
		s.metrics.RemoteError(op)
		s.log.Warn("commit failed", zap.String("op", op), zap.Error(err))
		return nil, &errs.RemoteSyncError{Op: op, Err: err}
	}
	gained := next.XP - s.cur.XP
	s.cur = next

	s.metrics.XPAwarded(gained)
	if err := kvcache.SetInt(s.cache, kvcache.XPKey(next.LearnerID), next.XP); err != nil {
		s.log.Warn("cache experience", zap.Error(err))
	}
	for _, a := range awards {
		s.log.Info("achievement unlocked", zap.String("badge", string(a.Badge)))
	}
	return awards, nil
}

// Level returns the learner's derived level information.
func (s *Service) Level() xp.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return xp.Describe(s.cur.XP)
}

// Badges lists earned achievements in display order.
func (s *Service) Badges() []achievements.Badge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return achievements.Earned(s.cur)
}

// History returns the learner's most recent events, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]progress.Event, error) {
	events, err := s.repo.History(ctx, s.LearnerID(), limit)
	if err != nil {
		return nil, &errs.RemoteSyncError{Op: "history", Err: err}
	}
	return events, nil
}

// Reset deletes all of the learner's stored progress and starts over.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.cur.LearnerID
	if err := s.repo.Reset(ctx, id); err != nil {
		s.metrics.RemoteError("reset")
		return &errs.RemoteSyncError{Op: "reset", Err: err}
	}
	s.cur = progress.New(id)
	if err := s.cache.Delete(kvcache.XPKey(id)); err != nil {
		s.log.Warn("clear cached xp", zap.Error(err))
	}
	s.log.Info("progress reset")
	return nil
}

func (s *Service) roadmap(id string) (*roadmap.Roadmap, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("no roadmap catalog loaded")
	}
	return s.catalog.Get(id)
}
