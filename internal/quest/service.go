package quest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/skillquest/internal/errs"
	"github.com/abhisek/skillquest/internal/kvcache"
	"github.com/abhisek/skillquest/internal/metrics"
	"github.com/abhisek/skillquest/internal/progress"
	"github.com/abhisek/skillquest/internal/questapi"
)

// API is the remote quest service. *questapi.Client implements it.
type API interface {
	Quests(ctx context.Context) ([]questapi.Quest, error)
	Modules(ctx context.Context, questID int) ([]questapi.Module, error)
	CompleteModule(ctx context.Context, questID, index int) ([]questapi.Module, error)
	Assessment(ctx context.Context, questID int) (questapi.Assessment, error)
	SubmitAssessment(ctx context.Context, questID int, answers []int) (questapi.Result, error)
	Final(ctx context.Context) (questapi.Assessment, error)
	SubmitFinal(ctx context.Context, answers []int) (questapi.Result, error)
	Certificate(ctx context.Context) ([]byte, error)
}

// Progress is the learner state quest records are latched into. Update
// applies mutate to a copy, persists it with the returned events and only
// then makes it current.
type Progress interface {
	Snapshot() *progress.LearnerProgress
	Update(ctx context.Context, op string, mutate func(p *progress.LearnerProgress) ([]progress.Event, error)) error
}

// Config holds the pass thresholds.
type Config struct {
	PassScore      int
	FinalPassScore int
	// FetchConcurrency bounds parallel module fetches in Overview.
	FetchConcurrency int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{PassScore: 70, FinalPassScore: 70, FetchConcurrency: 4}
}

// Course is one course on the path with its derived state.
type Course struct {
	questapi.Quest
	State State
	// Blocking is the title of the course that must be finished first.
	Blocking []string
}

// ModuleStatus pairs a module with its lock state.
type ModuleStatus struct {
	questapi.Module
	Locked bool
}

// Outcome is a graded assessment.
type Outcome struct {
	Score     int
	Passed    bool
	Certified bool
}

// Service runs quest operations against the remote API.
type Service struct {
	api      API
	progress Progress
	cache    kvcache.Store
	cfg      Config
	log      *zap.Logger
	metrics  *metrics.Recorder
	now      func() time.Time

	mu   sync.Mutex
	path []questapi.Quest
}

// Option configures a Service.
type Option func(*Service)

func WithConfig(cfg Config) Option          { return func(s *Service) { s.cfg = cfg } }
func WithCache(c kvcache.Store) Option       { return func(s *Service) { s.cache = c } }
func WithLogger(l *zap.Logger) Option        { return func(s *Service) { s.log = l } }
func WithMetrics(m *metrics.Recorder) Option { return func(s *Service) { s.metrics = m } }
func WithClock(now func() time.Time) Option  { return func(s *Service) { s.now = now } }

// NewService returns a quest service.
func NewService(api API, p Progress, opts ...Option) *Service {
	s := &Service{
		api:      api,
		progress: p,
		cache:    kvcache.NewMemory(),
		cfg:      DefaultConfig(),
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func key(questID int) string { return strconv.Itoa(questID) }

// Path fetches the adventure path and derives every course's state.
func (s *Service) Path(ctx context.Context) ([]Course, error) {
	quests, err := s.api.Quests(ctx)
	if err != nil {
		return nil, s.remote(err)
	}
	slices.SortStableFunc(quests, func(a, b questapi.Quest) int { return cmp.Compare(a.QuestNumber, b.QuestNumber) })

	s.mu.Lock()
	s.path = quests
	s.mu.Unlock()

	p := s.progress.Snapshot()
	out := make([]Course, len(quests))
	for i, q := range quests {
		unlocked := CourseUnlocked(quests, i)
		c := Course{
			Quest: q,
			State: Derive(unlocked, q.Progress >= 100, p.Quests[key(q.ID)], p.Final),
		}
		if !unlocked {
			c.Blocking = []string{quests[i-1].Title}
		}
		out[i] = c
	}
	return out, nil
}

// course returns the path and a quest's position in it. The cached path is
// used unless refresh is set or nothing has been fetched yet.
func (s *Service) course(ctx context.Context, questID int, refresh bool) ([]questapi.Quest, int, error) {
	s.mu.Lock()
	quests := s.path
	s.mu.Unlock()
	if quests == nil || refresh {
		if _, err := s.Path(ctx); err != nil {
			return nil, 0, err
		}
		s.mu.Lock()
		quests = s.path
		s.mu.Unlock()
	}
	i := slices.IndexFunc(quests, func(q questapi.Quest) bool { return q.ID == questID })
	if i < 0 {
		return nil, 0, &errs.NotFoundError{Kind: "quest", ID: key(questID)}
	}
	return quests, i, nil
}

// requireUnlocked fails with LockedAccessError when the course is locked.
// A course that looks locked or unknown in the cached path is rechecked
// against a fresh one, since earlier courses may have advanced since.
func (s *Service) requireUnlocked(ctx context.Context, questID int) error {
	quests, i, err := s.course(ctx, questID, false)
	if err == nil && CourseUnlocked(quests, i) {
		return nil
	}
	if err != nil && !errs.IsNotFound(err) {
		return err
	}
	quests, i, err = s.course(ctx, questID, true)
	if err != nil {
		return err
	}
	if CourseUnlocked(quests, i) {
		return nil
	}
	return &errs.LockedAccessError{Scope: "quest", Target: quests[i].Title, Blocking: []string{quests[i-1].Title}}
}

// Modules lists a course's modules with their lock state.
func (s *Service) Modules(ctx context.Context, questID int) ([]ModuleStatus, error) {
	if err := s.requireUnlocked(ctx, questID); err != nil {
		return nil, err
	}
	mods, err := s.api.Modules(ctx, questID)
	if err != nil {
		return nil, s.remote(err)
	}
	return moduleStatuses(mods), nil
}

func moduleStatuses(mods []questapi.Module) []ModuleStatus {
	out := make([]ModuleStatus, len(mods))
	for i, m := range mods {
		out[i] = ModuleStatus{Module: m, Locked: !ModuleUnlocked(mods, i)}
	}
	return out
}

// Overview fetches the modules of every open course concurrently.
func (s *Service) Overview(ctx context.Context) (map[int][]ModuleStatus, error) {
	courses, err := s.Path(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	out := make(map[int][]ModuleStatus, len(courses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.FetchConcurrency, 1))
	for _, c := range courses {
		if c.State == StateLocked {
			continue
		}
		g.Go(func() error {
			mods, err := s.api.Modules(gctx, c.ID)
			if err != nil {
				return s.remote(err)
			}
			mu.Lock()
			out[c.ID] = moduleStatuses(mods)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// module fetches a course's modules and checks index is open.
func (s *Service) module(ctx context.Context, questID, index int) ([]questapi.Module, error) {
	if err := s.requireUnlocked(ctx, questID); err != nil {
		return nil, err
	}
	mods, err := s.api.Modules(ctx, questID)
	if err != nil {
		return nil, s.remote(err)
	}
	if index < 0 || index >= len(mods) {
		return nil, &errs.NotFoundError{Kind: "module", ID: fmt.Sprintf("%d/%d", questID, index)}
	}
	if !ModuleUnlocked(mods, index) {
		return nil, &errs.LockedAccessError{
			Scope:    "quest " + key(questID),
			Target:   mods[index].Title,
			Blocking: []string{mods[index-1].Title},
		}
	}
	return mods, nil
}

// CompleteLesson marks a lesson done in the local cache. The cache is
// advisory; the server owns module completion.
func (s *Service) CompleteLesson(ctx context.Context, questID, moduleIndex, lessonIndex int) error {
	mods, err := s.module(ctx, questID, moduleIndex)
	if err != nil {
		return err
	}
	if n := len(mods[moduleIndex].Lessons); n > 0 && (lessonIndex < 0 || lessonIndex >= n) {
		return &errs.NotFoundError{Kind: "lesson", ID: fmt.Sprintf("%d/%d/%d", questID, moduleIndex, lessonIndex)}
	}
	k := kvcache.LessonKey(key(questID), moduleIndex, lessonIndex)
	if err := kvcache.SetBool(s.cache, k, true); err != nil {
		return fmt.Errorf("cache lesson completion: %w", err)
	}
	return nil
}

// LessonDone reports whether a lesson is marked done in the cache.
func (s *Service) LessonDone(questID, moduleIndex, lessonIndex int) bool {
	done, err := kvcache.GetBool(s.cache, kvcache.LessonKey(key(questID), moduleIndex, lessonIndex))
	if err != nil {
		return false
	}
	return done
}

// CompleteModule marks a module complete on the server. When the module
// lists its lessons, every lesson must be done first.
func (s *Service) CompleteModule(ctx context.Context, questID, index int) ([]ModuleStatus, error) {
	mods, err := s.module(ctx, questID, index)
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, l := range mods[index].Lessons {
		if !s.LessonDone(questID, index, l.Index) {
			pending = append(pending, l.Title)
		}
	}
	if len(pending) > 0 {
		return nil, &errs.LockedAccessError{Scope: "quest " + key(questID), Target: mods[index].Title, Blocking: pending}
	}

	updated, err := s.api.CompleteModule(ctx, questID, index)
	if err != nil {
		return nil, s.remote(err)
	}

	err = s.progress.Update(ctx, "complete module", func(p *progress.LearnerProgress) ([]progress.Event, error) {
		flags := make([]bool, len(updated))
		for i, m := range updated {
			flags[i] = m.Completed
		}
		p.Modules[key(questID)] = flags
		if AllComplete(updated) {
			rec := p.Quests[key(questID)]
			rec.ModulesComplete = true
			p.Quests[key(questID)] = rec
		}
		return []progress.Event{{
			Type:      progress.EventModuleCompleted,
			RoadmapID: "quest:" + key(questID),
			NodeID:    strconv.Itoa(index),
			At:        s.now(),
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("module completed", zap.Int("quest", questID), zap.Int("module", index))
	return moduleStatuses(updated), nil
}

// requireModulesComplete gates the course assessment.
func (s *Service) requireModulesComplete(ctx context.Context, questID int) error {
	if err := s.requireUnlocked(ctx, questID); err != nil {
		return err
	}
	p := s.progress.Snapshot()
	if p.Quests[key(questID)].ModulesComplete {
		return nil
	}
	quests, i, err := s.course(ctx, questID, false)
	if err != nil {
		return err
	}
	if quests[i].Progress >= 100 {
		return nil
	}
	var pending []string
	for j, done := range p.Modules[key(questID)] {
		if !done {
			pending = append(pending, fmt.Sprintf("module %d", j))
		}
	}
	if len(pending) == 0 {
		pending = []string{"all modules"}
	}
	return &errs.LockedAccessError{Scope: "quest " + key(questID), Target: "assessment", Blocking: pending}
}

// Assessment fetches a course assessment with the answer key removed.
func (s *Service) Assessment(ctx context.Context, questID int) (questapi.Assessment, error) {
	if err := s.requireModulesComplete(ctx, questID); err != nil {
		return questapi.Assessment{}, err
	}
	a, err := s.api.Assessment(ctx, questID)
	if err != nil {
		return questapi.Assessment{}, s.remote(err)
	}
	return withheld(a), nil
}

// SubmitAssessment grades a course assessment. A pass is latched; a fail
// leaves the course at modules_complete.
func (s *Service) SubmitAssessment(ctx context.Context, questID int, answers []int) (Outcome, error) {
	if err := validateAnswers(answers); err != nil {
		return Outcome{}, err
	}
	if err := s.requireModulesComplete(ctx, questID); err != nil {
		return Outcome{}, err
	}
	res, err := s.api.SubmitAssessment(ctx, questID, answers)
	if err != nil {
		return Outcome{}, s.remote(err)
	}

	out := Outcome{Score: int(math.Round(res.Score))}
	out.Passed = out.Score >= s.cfg.PassScore
	if out.Passed != res.Passed {
		s.log.Warn("server pass verdict differs from local threshold",
			zap.Int("quest", questID), zap.Int("score", out.Score), zap.Bool("server_passed", res.Passed))
	}

	err = s.progress.Update(ctx, "submit assessment", func(p *progress.LearnerProgress) ([]progress.Event, error) {
		rec := p.Quests[key(questID)]
		rec.ModulesComplete = true
		rec.BestAssessment = max(rec.BestAssessment, out.Score)
		if out.Passed {
			rec.AssessmentPassed = true
		}
		if rec.AssessmentPassed && p.Final.Passed && !rec.Certified {
			rec.Certified = true
			at := s.now().UTC()
			rec.CertifiedAt = &at
		}
		out.Certified = rec.Certified
		p.Quests[key(questID)] = rec
		score := out.Score
		return []progress.Event{{
			Type:      progress.EventAssessmentSubmitted,
			RoadmapID: "quest:" + key(questID),
			Score:     &score,
			Data:      map[string]any{"passed": out.Passed},
			At:        s.now(),
		}}, nil
	})
	if err != nil {
		return Outcome{}, err
	}
	s.metrics.QuizAttempt(out.Passed)
	return out, nil
}

// requireFinalOpen gates the final assessment: every course on the path
// must have passed its assessment.
func (s *Service) requireFinalOpen(ctx context.Context) error {
	courses, err := s.Path(ctx)
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		return &errs.NotFoundError{Kind: "quest", ID: "path"}
	}
	var pending []string
	for _, c := range courses {
		if !c.State.AtLeast(StateAssessmentPassed) {
			pending = append(pending, c.Title)
		}
	}
	if len(pending) > 0 {
		return &errs.LockedAccessError{Scope: "quest", Target: "final assessment", Blocking: pending}
	}
	return nil
}

// Final fetches the cross-course final assessment.
func (s *Service) Final(ctx context.Context) (questapi.Assessment, error) {
	if err := s.requireFinalOpen(ctx); err != nil {
		return questapi.Assessment{}, err
	}
	a, err := s.api.Final(ctx)
	if err != nil {
		return questapi.Assessment{}, s.remote(err)
	}
	return withheld(a), nil
}

// SubmitFinal grades the final assessment. Passing certifies every course
// whose assessment has passed.
func (s *Service) SubmitFinal(ctx context.Context, answers []int) (Outcome, error) {
	if err := validateAnswers(answers); err != nil {
		return Outcome{}, err
	}
	if err := s.requireFinalOpen(ctx); err != nil {
		return Outcome{}, err
	}
	res, err := s.api.SubmitFinal(ctx, answers)
	if err != nil {
		return Outcome{}, s.remote(err)
	}

	out := Outcome{Score: int(math.Round(res.Score))}
	out.Passed = out.Score >= s.cfg.FinalPassScore

	err = s.progress.Update(ctx, "submit final", func(p *progress.LearnerProgress) ([]progress.Event, error) {
		at := s.now().UTC()
		p.Final.BestScore = max(p.Final.BestScore, out.Score)
		if out.Passed && !p.Final.Passed {
			p.Final.Passed = true
			p.Final.PassedAt = &at
		}
		if p.Final.Passed {
			for id, rec := range p.Quests {
				if rec.AssessmentPassed && !rec.Certified {
					rec.Certified = true
					rec.CertifiedAt = &at
					p.Quests[id] = rec
				}
			}
		}
		out.Certified = p.Final.Passed
		score := out.Score
		return []progress.Event{{
			Type:  progress.EventFinalSubmitted,
			Score: &score,
			Data:  map[string]any{"passed": out.Passed},
			At:    s.now(),
		}}, nil
	})
	if err != nil {
		return Outcome{}, err
	}
	s.metrics.QuizAttempt(out.Passed)
	if out.Passed {
		s.log.Info("final assessment passed", zap.Int("score", out.Score))
	}
	return out, nil
}

// Certificate downloads the final certificate. It is only reachable once
// the final assessment has passed.
func (s *Service) Certificate(ctx context.Context) ([]byte, error) {
	if !s.progress.Snapshot().Final.Passed {
		return nil, &errs.LockedAccessError{Scope: "quest", Target: "certificate", Blocking: []string{"final assessment"}}
	}
	pdf, err := s.api.Certificate(ctx)
	if err != nil {
		return nil, s.remote(err)
	}
	return pdf, nil
}

func (s *Service) remote(err error) error {
	var rse *errs.RemoteSyncError
	if errors.As(err, &rse) {
		s.metrics.RemoteError(rse.Op)
	}
	return err
}

func validateAnswers(answers []int) error {
	if len(answers) == 0 {
		return errs.Invalid("answers", "at least one answer is required")
	}
	for i, a := range answers {
		if a < 0 {
			return errs.Invalid("answers", "answer %d is negative", i+1)
		}
	}
	return nil
}

func withheld(a questapi.Assessment) questapi.Assessment {
	qs := make([]questapi.Question, len(a.Questions))
	for i, q := range a.Questions {
		q.CorrectAnswer = nil
		qs[i] = q
	}
	return questapi.Assessment{Questions: qs}
}
