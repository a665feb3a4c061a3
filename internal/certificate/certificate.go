// Package certificate decides when a roadmap's certificate may be issued
// and latches issuance so it is never revoked.
package certificate

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/skillquest/internal/peer"
	"github.com/abhisek/skillquest/internal/roadmap"
)

// Certificate is an issued certificate. Its existence is the eligibility
// record; ineligibility is never stored.
type Certificate struct {
	RoadmapID string         `json:"roadmap_id"`
	Serial    string         `json:"serial"`
	Policy    roadmap.Policy `json:"policy"`
	Grade     int            `json:"grade,omitempty"`
	IssuedAt  time.Time      `json:"issued_at"`
}

// Inputs are the learner facts a policy needs.
type Inputs struct {
	// Scores holds the best score per completed node.
	Scores map[string]int
	// Final is the aggregated peer verdict on the final submission. Only
	// consulted by the peer-evaluation policy.
	Final peer.Result
}

// Decision is the outcome of evaluating a roadmap's policy.
type Decision struct {
	Policy   roadmap.Policy
	Eligible bool

	// Grade-threshold detail. Graded is false when the roadmap has no
	// rubric-graded assignments, in which case completion alone qualifies.
	Graded    bool
	Grade     float64
	Threshold int

	// Peer-evaluation detail.
	PassingCount    int
	RequiredPassing int
}

// Reason summarises the decision for display.
func (d Decision) Reason() string {
	switch d.Policy {
	case roadmap.PolicyPeerEvaluation:
		return fmt.Sprintf("%d of %d passing peer evaluations", d.PassingCount, d.RequiredPassing)
	default:
		if !d.Graded {
			return "no graded assignments; completion qualifies"
		}
		// Truncated, not rounded, so an ineligible grade never reads as the threshold.
		return fmt.Sprintf("overall grade %.1f (need %d)", math.Floor(d.Grade*10)/10, d.Threshold)
	}
}

// Evaluate applies the roadmap's configured policy.
func Evaluate(r *roadmap.Roadmap, in Inputs) Decision {
	cfg := r.Certificate
	switch cfg.Policy {
	case roadmap.PolicyPeerEvaluation:
		return Decision{
			Policy:          cfg.Policy,
			Eligible:        in.Final.PassingCount >= cfg.RequiredPassing,
			PassingCount:    in.Final.PassingCount,
			RequiredPassing: cfg.RequiredPassing,
		}
	default:
		d := Decision{Policy: roadmap.PolicyGradeThreshold, Threshold: cfg.Threshold}
		grade, graded := OverallGrade(r, in.Scores)
		d.Graded = graded
		d.Grade = grade
		d.Eligible = !graded || grade >= float64(cfg.Threshold)
		return d
	}
}

// OverallGrade blends the average rubric-assignment score with the final
// project score using the roadmap's weights. Without a final project score
// the grade is the assignment average; with only a final project it is the
// final score. The second result is false when there is nothing to grade.
func OverallGrade(r *roadmap.Roadmap, scores map[string]int) (float64, bool) {
	cfg := r.Certificate

	var sum, n int
	for _, node := range r.OfKind(roadmap.KindAssignment) {
		a := node.Payload.(*roadmap.Assignment)
		if a.Grading != roadmap.GradingRubric || node.ID == cfg.FinalProject {
			continue
		}
		sum += scores[node.ID]
		n++
	}

	final, hasFinal := 0, false
	if cfg.FinalProject != "" {
		final, hasFinal = scores[cfg.FinalProject]
	}

	switch {
	case n == 0 && !hasFinal:
		return 0, false
	case n == 0:
		return float64(final), true
	case !hasFinal:
		return float64(sum) / float64(n), true
	}

	avg := float64(sum) / float64(n)
	total := cfg.AssignmentWeight + cfg.FinalWeight
	return (cfg.AssignmentWeight*avg + cfg.FinalWeight*float64(final)) / total, true
}

// Latch issues a certificate when d is eligible and none exists yet. An
// existing certificate is returned unchanged regardless of d.
func Latch(prev *Certificate, roadmapID string, d Decision, now time.Time) (cert *Certificate, issued bool) {
	if prev != nil {
		return prev, false
	}
	if !d.Eligible {
		return nil, false
	}
	c := &Certificate{
		RoadmapID: roadmapID,
		Serial:    uuid.NewString(),
		Policy:    d.Policy,
		IssuedAt:  now.UTC(),
	}
	if d.Graded {
		c.Grade = int(math.Round(d.Grade))
	}
	return c, true
}
