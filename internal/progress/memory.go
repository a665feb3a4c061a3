package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/abhisek/skillquest/internal/errs"
	"github.com/abhisek/skillquest/internal/peer"
)

// ErrDuplicateEvaluation is returned when an evaluator reviews the same
// submission twice.
var ErrDuplicateEvaluation = errors.New("evaluation already recorded for this submission and evaluator")

// MemoryRepository is an in-process Repository used in tests and for
// throwaway sessions.
type MemoryRepository struct {
	mu          sync.Mutex
	learners    map[string][]byte
	submissions map[string]peer.Submission
	subOrder    []string
	evaluations []peer.Evaluation
	events      []Event
	seq         int64
	failNext    error
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		learners:    make(map[string][]byte),
		submissions: make(map[string]peer.Submission),
	}
}

// FailNextCommit makes the next Commit return err without persisting.
func (m *MemoryRepository) FailNextCommit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MemoryRepository) Load(_ context.Context, learnerID string) (*LearnerProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.learners[learnerID]
	if !ok {
		return New(learnerID), nil
	}
	var p LearnerProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode progress for %s: %w", learnerID, err)
	}
	return p.Normalize(), nil
}

func (m *MemoryRepository) Commit(_ context.Context, c Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}

	// Validate everything before mutating anything.
	encoded := make(map[string][]byte, len(c.Learners))
	for _, p := range c.Learners {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode progress for %s: %w", p.LearnerID, err)
		}
		encoded[p.LearnerID] = data
	}
	for i, e := range c.Evaluations {
		if peer.HasEvaluated(m.evaluations, e.EvaluatorID, e.SubmissionID) ||
			peer.HasEvaluated(c.Evaluations[:i], e.EvaluatorID, e.SubmissionID) {
			return ErrDuplicateEvaluation
		}
	}

	for id, data := range encoded {
		m.learners[id] = data
	}
	for _, s := range c.Submissions {
		if _, exists := m.submissions[s.ID]; !exists {
			m.subOrder = append(m.subOrder, s.ID)
		}
		m.submissions[s.ID] = s
	}
	m.evaluations = append(m.evaluations, c.Evaluations...)
	for _, e := range c.Events {
		m.seq++
		e.Sequence = m.seq
		m.events = append(m.events, e)
	}
	return nil
}

func (m *MemoryRepository) History(_ context.Context, learnerID string, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Event
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].LearnerID != learnerID {
			continue
		}
		out = append(out, m.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryRepository) Reset(_ context.Context, learnerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.learners, learnerID)
	m.events = slices.DeleteFunc(m.events, func(e Event) bool { return e.LearnerID == learnerID })

	for id, s := range m.submissions {
		if s.OwnerID == learnerID {
			s.Status = peer.StatusWithdrawn
			m.submissions[id] = s
		}
	}
	return nil
}

func (m *MemoryRepository) Submissions(_ context.Context) ([]peer.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]peer.Submission, 0, len(m.subOrder))
	for _, id := range m.subOrder {
		out = append(out, m.submissions[id])
	}
	return out, nil
}

func (m *MemoryRepository) Submission(_ context.Context, id string) (peer.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.submissions[id]
	if !ok {
		return peer.Submission{}, &errs.NotFoundError{Kind: "submission", ID: id}
	}
	return s, nil
}

func (m *MemoryRepository) Evaluations(_ context.Context) ([]peer.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.evaluations), nil
}

func (m *MemoryRepository) EvaluationsFor(_ context.Context, submissionID string) ([]peer.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []peer.Evaluation
	for _, e := range m.evaluations {
		if e.SubmissionID == submissionID {
			out = append(out, e)
		}
	}
	return out, nil
}
