// Package progress holds per-learner mutable state and the repository port
// it is persisted through.
package progress

import (
	"maps"
	"slices"
	"time"

	"github.com/abhisek/skillquest/internal/certificate"
	"github.com/abhisek/skillquest/internal/xp"
)

// CompletionRecord exists once a node's pass condition has been met.
type CompletionRecord struct {
	RoadmapID   string    `json:"roadmap_id"`
	NodeID      string    `json:"node_id"`
	CompletedAt time.Time `json:"completed_at"`
	Score       *int      `json:"score,omitempty"`
}

// QuestRecord is the latched local view of one quest course.
type QuestRecord struct {
	ModulesComplete  bool       `json:"modules_complete"`
	AssessmentPassed bool       `json:"assessment_passed"`
	BestAssessment   int        `json:"best_assessment"`
	Certified        bool       `json:"certified"`
	CertifiedAt      *time.Time `json:"certified_at,omitempty"`
}

// FinalRecord is the cross-course final assessment result.
type FinalRecord struct {
	Passed    bool       `json:"passed"`
	BestScore int        `json:"best_score"`
	PassedAt  *time.Time `json:"passed_at,omitempty"`
}

// Stats counts completions for achievements and display.
type Stats struct {
	Lessons          int `json:"lessons"`
	Quizzes          int `json:"quizzes"`
	PerfectQuizzes   int `json:"perfect_quizzes"`
	Assignments      int `json:"assignments"`
	EvaluationsGiven int `json:"evaluations_given"`
	Certificates     int `json:"certificates"`
	QuizAttempts     int `json:"quiz_attempts"`
}

// LearnerProgress is everything the engine knows about one learner. Level
// is never stored; use Level or xp.Describe.
type LearnerProgress struct {
	LearnerID    string                                 `json:"learner_id"`
	XP           int                                    `json:"xp"`
	Completed    map[string]map[string]CompletionRecord `json:"completed"`
	Certificates map[string]certificate.Certificate     `json:"certificates"`
	Modules      map[string][]bool                      `json:"modules"`
	Quests       map[string]QuestRecord                 `json:"quests"`
	Final        FinalRecord                            `json:"final"`
	Achievements map[string]time.Time                   `json:"achievements"`
	Stats        Stats                                  `json:"stats"`
	UpdatedAt    time.Time                              `json:"updated_at"`
}

// New returns empty progress for a learner.
func New(learnerID string) *LearnerProgress {
	p := &LearnerProgress{LearnerID: learnerID}
	p.ensureMaps()
	return p
}

func (p *LearnerProgress) ensureMaps() {
	if p.Completed == nil {
		p.Completed = make(map[string]map[string]CompletionRecord)
	}
	if p.Certificates == nil {
		p.Certificates = make(map[string]certificate.Certificate)
	}
	if p.Modules == nil {
		p.Modules = make(map[string][]bool)
	}
	if p.Quests == nil {
		p.Quests = make(map[string]QuestRecord)
	}
	if p.Achievements == nil {
		p.Achievements = make(map[string]time.Time)
	}
}

// Normalize fills nil maps after decoding.
func (p *LearnerProgress) Normalize() *LearnerProgress {
	p.ensureMaps()
	return p
}

// Clone returns a deep copy. Mutations are applied to a clone and swapped
// in only after they are persisted.
func (p *LearnerProgress) Clone() *LearnerProgress {
	c := *p
	c.Completed = make(map[string]map[string]CompletionRecord, len(p.Completed))
	for rid, nodes := range p.Completed {
		inner := make(map[string]CompletionRecord, len(nodes))
		for nid, rec := range nodes {
			if rec.Score != nil {
				s := *rec.Score
				rec.Score = &s
			}
			inner[nid] = rec
		}
		c.Completed[rid] = inner
	}
	c.Certificates = maps.Clone(p.Certificates)
	c.Modules = make(map[string][]bool, len(p.Modules))
	for k, v := range p.Modules {
		c.Modules[k] = slices.Clone(v)
	}
	c.Quests = maps.Clone(p.Quests)
	c.Achievements = maps.Clone(p.Achievements)
	c.ensureMaps()
	return &c
}

// Level derives the learner's level from experience.
func (p *LearnerProgress) Level() int { return xp.Level(p.XP) }

// Done returns the completed node set for a roadmap.
func (p *LearnerProgress) Done(roadmapID string) map[string]bool {
	out := make(map[string]bool, len(p.Completed[roadmapID]))
	for id := range p.Completed[roadmapID] {
		out[id] = true
	}
	return out
}

// Scores returns the best score per scored node of a roadmap.
func (p *LearnerProgress) Scores(roadmapID string) map[string]int {
	out := make(map[string]int)
	for id, rec := range p.Completed[roadmapID] {
		if rec.Score != nil {
			out[id] = *rec.Score
		}
	}
	return out
}

// Record returns the completion record for a node.
func (p *LearnerProgress) Record(roadmapID, nodeID string) (CompletionRecord, bool) {
	rec, ok := p.Completed[roadmapID][nodeID]
	return rec, ok
}

// IsComplete reports whether a node has a completion record.
func (p *LearnerProgress) IsComplete(roadmapID, nodeID string) bool {
	_, ok := p.Record(roadmapID, nodeID)
	return ok
}

// Complete records a node completion. Re-completion keeps the original
// timestamp and the higher score; first reports whether the record is new.
func (p *LearnerProgress) Complete(roadmapID, nodeID string, score *int, at time.Time) (first bool) {
	p.ensureMaps()
	nodes := p.Completed[roadmapID]
	if nodes == nil {
		nodes = make(map[string]CompletionRecord)
		p.Completed[roadmapID] = nodes
	}

	rec, exists := nodes[nodeID]
	if !exists {
		rec = CompletionRecord{RoadmapID: roadmapID, NodeID: nodeID, CompletedAt: at.UTC()}
	}
	if score != nil && (rec.Score == nil || *score > *rec.Score) {
		s := *score
		rec.Score = &s
	}
	nodes[nodeID] = rec
	return !exists
}

// AwardXP applies an experience event and returns the amount awarded.
func (p *LearnerProgress) AwardXP(e xp.Event) int {
	ledger, amt := xp.Ledger{Total: p.XP}.Apply(e)
	p.XP = ledger.Total
	return amt
}

// Certificate returns the issued certificate for a roadmap, if any.
func (p *LearnerProgress) Certificate(roadmapID string) *certificate.Certificate {
	c, ok := p.Certificates[roadmapID]
	if !ok {
		return nil
	}
	return &c
}
