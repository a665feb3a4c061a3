package learning

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/skillquest/internal/achievements"
	"github.com/abhisek/skillquest/internal/assessment"
	"github.com/abhisek/skillquest/internal/certificate"
	"github.com/abhisek/skillquest/internal/errs"
	"github.com/abhisek/skillquest/internal/peer"
	"github.com/abhisek/skillquest/internal/progress"
	"github.com/abhisek/skillquest/internal/review"
	"github.com/abhisek/skillquest/internal/roadmap"
	"github.com/abhisek/skillquest/internal/unlock"
	"github.com/abhisek/skillquest/internal/xp"
)

// Outcome reports what an action did.
type Outcome struct {
	RoadmapID string
	NodeID    string
	Kind      roadmap.Kind

	// Completed is true when the node is complete after the action.
	// AlreadyComplete marks a replay of an earlier completion.
	Completed       bool
	AlreadyComplete bool
	Score           *int
	XP              int

	Quiz         *assessment.QuizAttempt
	Rubric       *assessment.RubricResult
	Draft        *review.Draft
	SubmissionID string
	Peer         *peer.Result
	Certificate  *certificate.Certificate
	Achievements []achievements.Award
}

// RoadmapStatus is the learner's view of one roadmap.
type RoadmapStatus struct {
	Roadmap *roadmap.Roadmap
	Nodes   []unlock.NodeStatus
	Percent int
	Next    *roadmap.Node
}

// Status derives every node's lock state for a roadmap. Certificate nodes
// whose ancestors are complete but whose policy does not yet hold are
// reported locked.
func (s *Service) Status(ctx context.Context, roadmapID string) (RoadmapStatus, error) {
	r, err := s.roadmap(roadmapID)
	if err != nil {
		return RoadmapStatus{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	done := s.cur.Done(r.ID)
	st := RoadmapStatus{Roadmap: r, Nodes: unlock.States(r, done), Percent: unlock.Percent(r, done)}
	for i, ns := range st.Nodes {
		if ns.Node.Kind() != roadmap.KindCertificate || ns.State != unlock.StateAvailable {
			continue
		}
		d, err := s.decide(ctx, r, s.cur)
		if err != nil {
			return RoadmapStatus{}, err
		}
		if !d.Eligible && s.cur.Certificate(r.ID) == nil {
			st.Nodes[i].State = unlock.StateLocked
		}
	}
	for _, ns := range st.Nodes {
		if ns.State == unlock.StateAvailable {
			n := ns.Node
			st.Next = &n
			break
		}
	}
	return st, nil
}

// node resolves a node and rejects access while it is locked.
func (s *Service) node(roadmapID, nodeID string) (*roadmap.Roadmap, roadmap.Node, error) {
	r, err := s.roadmap(roadmapID)
	if err != nil {
		return nil, roadmap.Node{}, err
	}
	n, ok := r.Node(nodeID)
	if !ok {
		return nil, roadmap.Node{}, &errs.NotFoundError{Kind: "node", ID: roadmapID + "/" + nodeID}
	}
	done := s.cur.Done(r.ID)
	if !unlock.IsUnlocked(r, done, n.ID) {
		return nil, roadmap.Node{}, &errs.LockedAccessError{Scope: r.ID, Target: n.ID, Blocking: unlock.Blocking(r, done, n.ID)}
	}
	return r, n, nil
}

// step completes one node kind against a progress copy.
type step func(ctx context.Context, next *progress.LearnerProgress, ch *progress.Change, out *Outcome) error

// completer maps each node kind to how Complete handles it. Quizzes and
// assignments need learner input and are refused.
type completer struct {
	s *Service
	r *roadmap.Roadmap
}

func (c completer) Lesson(n roadmap.Node, _ *roadmap.Lesson) step {
	return func(_ context.Context, next *progress.LearnerProgress, ch *progress.Change, out *Outcome) error {
		if !next.Complete(c.r.ID, n.ID, nil, c.s.now()) {
			return errUnchanged
		}
		next.Stats.Lessons++
		ch.Events = append(ch.Events, progress.Event{Type: progress.EventNodeCompleted, RoadmapID: c.r.ID, NodeID: n.ID})
		return nil
	}
}

func (c completer) Quiz(n roadmap.Node, _ *roadmap.Quiz) step {
	return refuse(n, "submit answers with the quiz command")
}

func (c completer) Assignment(n roadmap.Node, _ *roadmap.Assignment) step {
	return refuse(n, "submit your work with the submit command")
}

func (c completer) PeerEvaluation(n roadmap.Node, p *roadmap.PeerEvaluation) step {
	return func(ctx context.Context, next *progress.LearnerProgress, ch *progress.Change, out *Outcome) error {
		sub, ok, err := c.s.ownSubmission(ctx, c.r.ID, p.Assignment)
		if err != nil {
			return err
		}
		if !ok {
			return &errs.LockedAccessError{Scope: c.r.ID, Target: n.ID, Blocking: []string{p.Assignment}}
		}
		evals, err := c.s.repo.EvaluationsFor(ctx, sub.ID)
		if err != nil {
			return &errs.RemoteSyncError{Op: "load evaluations", Err: err}
		}
		res := peer.Aggregate(evals, peer.Policy{RequiredPassing: p.RequiredPassing, PassingScore: p.PassingScore})
		out.Peer = &res
		if !res.Eligible {
			return errUnchanged
		}
		score := res.PassingAverage(p.PassingScore)
		out.Score = &score
		if !next.Complete(c.r.ID, n.ID, &score, c.s.now()) {
			return errUnchanged
		}
		out.XP = next.AwardXP(xp.Event{Source: xp.SourceAssignment, Score: score})
		ch.Events = append(ch.Events, progress.Event{Type: progress.EventNodeCompleted, RoadmapID: c.r.ID, NodeID: n.ID, Score: &score, XP: out.XP})
		return nil
	}
}

func (c completer) Certificate(n roadmap.Node, _ *roadmap.Certificate) step {
	return func(ctx context.Context, next *progress.LearnerProgress, ch *progress.Change, out *Outcome) error {
		if prev := next.Certificate(c.r.ID); prev != nil {
			out.Certificate = prev
			return errUnchanged
		}
		done := next.Done(c.r.ID)
		if !unlock.AncestorsComplete(c.r, done, n.ID) {
			var pending []string
			for _, a := range c.r.Ancestors(n.ID) {
				if !done[a] {
					pending = append(pending, a)
				}
			}
			return &errs.LockedAccessError{Scope: c.r.ID, Target: n.ID, Blocking: pending}
		}
		d, err := c.s.decide(ctx, c.r, next)
		if err != nil {
			return err
		}
		cert, issued := certificate.Latch(nil, c.r.ID, d, c.s.now())
		if !issued {
			return &errs.LockedAccessError{Scope: c.r.ID, Target: n.ID, Blocking: []string{d.Reason()}}
		}
		next.Certificates[c.r.ID] = *cert
		next.Complete(c.r.ID, n.ID, nil, c.s.now())
		next.Stats.Certificates++
		out.Certificate = cert
		ch.Events = append(ch.Events, progress.Event{
			Type:      progress.EventCertificateIssued,
			RoadmapID: c.r.ID,
			NodeID:    n.ID,
			Data:      map[string]any{"serial": cert.Serial, "policy": string(cert.Policy), "grade": cert.Grade},
		})
		return nil
	}
}

func refuse(n roadmap.Node, hint string) step {
	return func(context.Context, *progress.LearnerProgress, *progress.Change, *Outcome) error {
		return errs.Invalid("node", "%s is a %s; %s", n.ID, strings.ToLower(n.Kind().Label()), hint)
	}
}

// Complete completes a node that needs no learner input: a lesson, a peer
// evaluation gate whose reviews have come in, or a certificate whose
// policy holds.
func (s *Service) Complete(ctx context.Context, roadmapID, nodeID string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, n, err := s.node(roadmapID, nodeID)
	if err != nil {
		return Outcome{}, err
	}
	was := s.cur.IsComplete(r.ID, n.ID)
	out := Outcome{RoadmapID: r.ID, NodeID: n.ID, Kind: n.Kind()}
	run := roadmap.Match[step](n, completer{s: s, r: r})

	out.Achievements, err = s.mutate(ctx, "complete "+string(n.Kind()), func(next *progress.LearnerProgress, ch *progress.Change) error {
		return run(ctx, next, ch, &out)
	})
	if err != nil {
		return Outcome{}, err
	}
	s.finish(&out, was)
	if out.Certificate != nil && !was {
		s.metrics.CertificateIssued(string(out.Certificate.Policy))
	}
	return out, nil
}

// finish fills the completion flags from the committed state. was is
// whether the node was complete before the action.
func (s *Service) finish(out *Outcome, was bool) {
	rec, ok := s.cur.Record(out.RoadmapID, out.NodeID)
	out.Completed = ok
	out.AlreadyComplete = was
	if ok && out.Score == nil && rec.Score != nil {
		score := *rec.Score
		out.Score = &score
	}
	if ok && !was {
		s.metrics.NodeCompleted(string(out.Kind))
	}
}

// SubmitQuiz scores answers (question index → option index). A failed
// attempt stores nothing and may be retried immediately.
func (s *Service) SubmitQuiz(ctx context.Context, roadmapID, nodeID string, answers map[int]int) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, n, err := s.node(roadmapID, nodeID)
	if err != nil {
		return Outcome{}, err
	}
	q, ok := n.Payload.(*roadmap.Quiz)
	if !ok {
		return Outcome{}, errs.Invalid("node", "%s is not a quiz", n.ID)
	}
	attempt, err := assessment.ScoreQuiz(q, answers)
	if err != nil {
		return Outcome{}, err
	}
	s.metrics.QuizAttempt(attempt.Passed)

	was := s.cur.IsComplete(r.ID, n.ID)
	out := Outcome{RoadmapID: r.ID, NodeID: n.ID, Kind: n.Kind(), Quiz: &attempt}
	if !attempt.Passed {
		s.log.Debug("quiz failed", zap.String("node", n.ID), zap.Int("score", attempt.Score))
		out.Completed, out.AlreadyComplete = was, was
		return out, nil
	}

	score := attempt.Score
	out.Score = &score
	out.Achievements, err = s.mutate(ctx, "submit quiz", func(next *progress.LearnerProgress, ch *progress.Change) error {
		prev, had := next.Record(r.ID, n.ID)
		first := next.Complete(r.ID, n.ID, &score, s.now())
		if !first && prev.Score != nil && *prev.Score >= score {
			return errUnchanged
		}
		next.Stats.QuizAttempts++
		if first {
			out.XP = next.AwardXP(xp.Event{Source: xp.SourceQuiz, Score: score})
			next.Stats.Quizzes++
			if score == 100 {
				next.Stats.PerfectQuizzes++
			}
		}
		ch.Events = append(ch.Events, progress.Event{
			Type:      progress.EventQuizAttempted,
			RoadmapID: r.ID,
			NodeID:    n.ID,
			Score:     &score,
			XP:        out.XP,
			Data:      map[string]any{"correct": attempt.Correct, "total": attempt.Total, "improved": had},
		})
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	s.finish(&out, was)
	return out, nil
}

// Submission is an assignment hand-in.
type Submission struct {
	Content  string
	FileName string
	// Awards are rubric points per criterion. Ignored when AIGrade is set
	// or the assignment is peer graded.
	Awards  map[string]int
	AIGrade bool
}

// SubmitAssignment scores a rubric assignment or enters a peer-graded one
// into the review pool. A peer-graded assignment completes on a valid
// submission; its score comes later from the peer evaluation gate.
func (s *Service) SubmitAssignment(ctx context.Context, roadmapID, nodeID string, sub Submission) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, n, err := s.node(roadmapID, nodeID)
	if err != nil {
		return Outcome{}, err
	}
	a, ok := n.Payload.(*roadmap.Assignment)
	if !ok {
		return Outcome{}, errs.Invalid("node", "%s is not an assignment", n.ID)
	}
	if err := assessment.ValidateSubmission(sub.Content, a.MinLength); err != nil {
		return Outcome{}, err
	}

	was := s.cur.IsComplete(r.ID, n.ID)
	out := Outcome{RoadmapID: r.ID, NodeID: n.ID, Kind: n.Kind()}
	if a.Grading == roadmap.GradingPeer {
		return s.submitForPeers(ctx, r, n, sub, out, was)
	}

	awards := sub.Awards
	if sub.AIGrade {
		if s.reviewer == nil {
			return Outcome{}, ErrReviewUnavailable
		}
		draft, err := s.reviewer.Review(ctx, n, sub.Content)
		if err != nil {
			return Outcome{}, err
		}
		out.Draft = draft
		awards = draft.Awards
	}
	res, err := assessment.ScoreRubric(a, awards)
	if err != nil {
		return Outcome{}, err
	}
	out.Rubric = &res
	if !res.Passed {
		out.Completed, out.AlreadyComplete = was, was
		return out, nil
	}

	score := res.Score
	out.Score = &score
	out.Achievements, err = s.mutate(ctx, "submit assignment", func(next *progress.LearnerProgress, ch *progress.Change) error {
		prev, _ := next.Record(r.ID, n.ID)
		first := next.Complete(r.ID, n.ID, &score, s.now())
		if !first && prev.Score != nil && *prev.Score >= score {
			return errUnchanged
		}
		if first {
			out.XP = next.AwardXP(xp.Event{Source: xp.SourceAssignment, Score: score})
			next.Stats.Assignments++
		}
		ch.Events = append(ch.Events, progress.Event{
			Type:      progress.EventAssignmentSubmitted,
			RoadmapID: r.ID,
			NodeID:    n.ID,
			Score:     &score,
			XP:        out.XP,
			Data:      map[string]any{"grading": string(a.Grading), "ai": sub.AIGrade},
		})
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	s.finish(&out, was)
	return out, nil
}

func (s *Service) submitForPeers(ctx context.Context, r *roadmap.Roadmap, n roadmap.Node, sub Submission, out Outcome, was bool) (Outcome, error) {
	existing, found, err := s.ownSubmission(ctx, r.ID, n.ID)
	if err != nil {
		return Outcome{}, err
	}
	record := peer.Submission{
		ID:          uuid.NewString(),
		OwnerID:     s.cur.LearnerID,
		RoadmapID:   r.ID,
		NodeID:      n.ID,
		Content:     sub.Content,
		FileName:    sub.FileName,
		Status:      peer.StatusSubmitted,
		SubmittedAt: s.now().UTC(),
	}
	if found {
		// Resubmission keeps the id so earlier reviews stay attached.
		record.ID = existing.ID
		if existing.Status == peer.StatusEvaluated {
			record.Status = peer.StatusEvaluated
		}
	}
	out.SubmissionID = record.ID

	out.Achievements, err = s.mutate(ctx, "submit assignment", func(next *progress.LearnerProgress, ch *progress.Change) error {
		if next.Complete(r.ID, n.ID, nil, s.now()) {
			next.Stats.Assignments++
		}
		ch.Submissions = append(ch.Submissions, record)
		ch.Events = append(ch.Events, progress.Event{
			Type:      progress.EventAssignmentSubmitted,
			RoadmapID: r.ID,
			NodeID:    n.ID,
			Data:      map[string]any{"grading": string(roadmap.GradingPeer), "submission": record.ID, "resubmission": found},
		})
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	s.finish(&out, was)
	s.log.Info("submitted for peer review", zap.String("submission", record.ID))
	return out, nil
}

// Review asks the model for advisory rubric awards without recording
// anything.
func (s *Service) Review(ctx context.Context, roadmapID, nodeID, content string) (*review.Draft, error) {
	s.mu.Lock()
	_, n, err := s.node(roadmapID, nodeID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if s.reviewer == nil {
		return nil, ErrReviewUnavailable
	}
	return s.reviewer.Review(ctx, n, content)
}

// ownSubmission finds the learner's live submission for an assignment
// node. Submissions withdrawn by a reset are ignored.
func (s *Service) ownSubmission(ctx context.Context, roadmapID, nodeID string) (peer.Submission, bool, error) {
	subs, err := s.repo.Submissions(ctx)
	if err != nil {
		return peer.Submission{}, false, &errs.RemoteSyncError{Op: "load submissions", Err: err}
	}
	for _, sub := range subs {
		if sub.OwnerID == s.cur.LearnerID && sub.RoadmapID == roadmapID && sub.NodeID == nodeID && sub.Status != peer.StatusWithdrawn {
			return sub, true, nil
		}
	}
	return peer.Submission{}, false, nil
}
