package progress

import (
	"context"
	"time"

	"github.com/abhisek/skillquest/internal/peer"
)

// EventType names a recorded learner event.
type EventType string

const (
	EventNodeCompleted       EventType = "node_completed"
	EventQuizAttempted       EventType = "quiz_attempted"
	EventAssignmentSubmitted EventType = "assignment_submitted"
	EventPeerEvaluationGiven EventType = "peer_evaluation_given"
	EventCertificateIssued   EventType = "certificate_issued"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventModuleCompleted     EventType = "module_completed"
	EventAssessmentSubmitted EventType = "assessment_submitted"
	EventFinalSubmitted      EventType = "final_submitted"
)

// Event is an append-only record of something that happened to a learner.
type Event struct {
	Sequence  int64          `json:"sequence"`
	LearnerID string         `json:"learner_id"`
	Type      EventType      `json:"type"`
	RoadmapID string         `json:"roadmap_id,omitempty"`
	NodeID    string         `json:"node_id,omitempty"`
	Score     *int           `json:"score,omitempty"`
	XP        int            `json:"xp,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	At        time.Time      `json:"at"`
}

// Change is a unit of work committed atomically: either every learner
// snapshot, submission, evaluation and event in it is persisted, or none.
type Change struct {
	Learners    []*LearnerProgress
	Submissions []peer.Submission
	Evaluations []peer.Evaluation
	Events      []Event
}

// Empty reports whether the change has nothing to persist.
func (c Change) Empty() bool {
	return len(c.Learners) == 0 && len(c.Submissions) == 0 && len(c.Evaluations) == 0 && len(c.Events) == 0
}

// Repository is the durable home of learner progress and the shared peer
// review pool.
type Repository interface {
	peer.Pool

	// Load returns a learner's progress, or fresh progress if none is
	// stored yet.
	Load(ctx context.Context, learnerID string) (*LearnerProgress, error)

	// Commit persists a Change atomically. Submissions are upserted by ID.
	// An evaluation that duplicates (submission, evaluator) fails the whole
	// change.
	Commit(ctx context.Context, c Change) error

	// History returns a learner's most recent events, newest first.
	History(ctx context.Context, learnerID string, limit int) ([]Event, error)

	// Reset deletes a learner's progress, events and own submissions.
	Reset(ctx context.Context, learnerID string) error
}
