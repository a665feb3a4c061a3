package learning

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/skillquest/internal/achievements"
	"github.com/abhisek/skillquest/internal/errs"
	"github.com/abhisek/skillquest/internal/peer"
	"github.com/abhisek/skillquest/internal/progress"
	"github.com/abhisek/skillquest/internal/xp"
)

// PeerReview is an evaluation of someone else's submission. Score may be left
// nil when Criteria is given; it is then derived from the criteria.
type PeerReview struct {
	SubmissionID string
	Score        *int
	Feedback     string
	Criteria     *peer.Criteria
}

// EvaluationOutcome reports a recorded evaluation.
type EvaluationOutcome struct {
	Evaluation   peer.Evaluation
	XP           int
	Achievements []achievements.Award
}

// EvaluatePeer records the learner's review of another learner's
// submission and awards the flat peer-evaluation experience.
func (s *Service) EvaluatePeer(ctx context.Context, in PeerReview) (EvaluationOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.repo.Submission(ctx, in.SubmissionID)
	if err != nil {
		if errs.IsNotFound(err) {
			return EvaluationOutcome{}, err
		}
		return EvaluationOutcome{}, &errs.RemoteSyncError{Op: "load submission", Err: err}
	}
	if sub.Status == peer.StatusWithdrawn {
		return EvaluationOutcome{}, errs.Invalid("submission", "%s was withdrawn by its owner", sub.ID)
	}

	score := 0
	switch {
	case in.Score != nil:
		score = *in.Score
	case in.Criteria != nil:
		score = peer.ScoreFromCriteria(*in.Criteria)
	default:
		return EvaluationOutcome{}, errs.Invalid("score", "a score or criteria breakdown is required")
	}

	e := peer.Evaluation{
		ID:           uuid.NewString(),
		SubmissionID: sub.ID,
		EvaluatorID:  s.cur.LearnerID,
		OwnerID:      sub.OwnerID,
		Score:        score,
		Feedback:     in.Feedback,
		Criteria:     in.Criteria,
		CreatedAt:    s.now().UTC(),
	}
	if err := peer.ValidateEvaluation(e); err != nil {
		return EvaluationOutcome{}, err
	}
	prior, err := s.repo.EvaluationsFor(ctx, sub.ID)
	if err != nil {
		return EvaluationOutcome{}, &errs.RemoteSyncError{Op: "load evaluations", Err: err}
	}
	if peer.HasEvaluated(prior, e.EvaluatorID, sub.ID) {
		return EvaluationOutcome{}, errs.Invalid("evaluation", "you have already evaluated this submission")
	}

	out := EvaluationOutcome{Evaluation: e}
	sub.Status = peer.StatusEvaluated
	out.Achievements, err = s.mutate(ctx, "evaluate submission", func(next *progress.LearnerProgress, ch *progress.Change) error {
		out.XP = next.AwardXP(xp.Event{Source: xp.SourcePeerEvaluation})
		next.Stats.EvaluationsGiven++
		ch.Submissions = append(ch.Submissions, sub)
		ch.Evaluations = append(ch.Evaluations, e)
		ch.Events = append(ch.Events, progress.Event{
			Type:      progress.EventPeerEvaluationGiven,
			RoadmapID: sub.RoadmapID,
			NodeID:    sub.NodeID,
			Score:     &score,
			XP:        out.XP,
			Data:      map[string]any{"submission": sub.ID, "owner": sub.OwnerID},
		})
		return nil
	})
	if err != nil {
		return EvaluationOutcome{}, err
	}
	s.metrics.PeerEvaluation()
	s.log.Info("peer evaluation recorded", zap.String("submission", sub.ID), zap.Int("score", score))
	return out, nil
}

// PendingEvaluations lists submissions the learner can still review.
func (s *Service) PendingEvaluations(ctx context.Context) ([]peer.Submission, error) {
	subs, evals, err := s.pool(ctx)
	if err != nil {
		return nil, err
	}
	return peer.Pending(s.LearnerID(), subs, evals), nil
}

// CompletedEvaluations lists the reviews the learner has given.
func (s *Service) CompletedEvaluations(ctx context.Context) ([]peer.Evaluation, error) {
	evals, err := s.repo.Evaluations(ctx)
	if err != nil {
		return nil, &errs.RemoteSyncError{Op: "load evaluations", Err: err}
	}
	return peer.Completed(s.LearnerID(), evals), nil
}

// Feedback aggregates the reviews of the learner's own submission for an
// assignment node.
func (s *Service) Feedback(ctx context.Context, roadmapID, nodeID string) (peer.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.roadmap(roadmapID)
	if err != nil {
		return peer.Result{}, err
	}
	sub, ok, err := s.ownSubmission(ctx, r.ID, nodeID)
	if err != nil {
		return peer.Result{}, err
	}
	if !ok {
		return peer.Result{}, &errs.NotFoundError{Kind: "submission", ID: roadmapID + "/" + nodeID}
	}
	evals, err := s.repo.EvaluationsFor(ctx, sub.ID)
	if err != nil {
		return peer.Result{}, &errs.RemoteSyncError{Op: "load evaluations", Err: err}
	}
	return peer.Aggregate(evals, peer.Policy{
		RequiredPassing: r.Certificate.RequiredPassing,
		PassingScore:    r.Certificate.PassingScore,
	}), nil
}

func (s *Service) pool(ctx context.Context) ([]peer.Submission, []peer.Evaluation, error) {
	subs, err := s.repo.Submissions(ctx)
	if err != nil {
		return nil, nil, &errs.RemoteSyncError{Op: "load submissions", Err: err}
	}
	evals, err := s.repo.Evaluations(ctx)
	if err != nil {
		return nil, nil, &errs.RemoteSyncError{Op: "load evaluations", Err: err}
	}
	return subs, evals, nil
}
