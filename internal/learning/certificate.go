package learning

import (
	"context"

	"github.com/abhisek/skillquest/internal/certificate"
	"github.com/abhisek/skillquest/internal/errs"
	"github.com/abhisek/skillquest/internal/peer"
	"github.com/abhisek/skillquest/internal/progress"
	"github.com/abhisek/skillquest/internal/roadmap"
	"github.com/abhisek/skillquest/internal/unlock"
)

// CertificateStatus is where a learner stands on a roadmap's certificate.
type CertificateStatus struct {
	RoadmapID         string
	NodeID            string
	Decision          certificate.Decision
	AncestorsComplete bool
	Blocking          []string
	Issued            *certificate.Certificate
}

// Unlockable reports whether the certificate can be issued now.
func (c CertificateStatus) Unlockable() bool {
	return c.Issued == nil && c.AncestorsComplete && c.Decision.Eligible
}

// CertificateStatus evaluates a roadmap's certificate policy without
// issuing anything.
func (s *Service) CertificateStatus(ctx context.Context, roadmapID string) (CertificateStatus, error) {
	r, err := s.roadmap(roadmapID)
	if err != nil {
		return CertificateStatus{}, err
	}
	n, err := certificateNode(r)
	if err != nil {
		return CertificateStatus{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.decide(ctx, r, s.cur)
	if err != nil {
		return CertificateStatus{}, err
	}
	done := s.cur.Done(r.ID)
	st := CertificateStatus{
		RoadmapID:         r.ID,
		NodeID:            n.ID,
		Decision:          d,
		AncestorsComplete: unlock.AncestorsComplete(r, done, n.ID),
		Issued:            s.cur.Certificate(r.ID),
	}
	for _, a := range r.Ancestors(n.ID) {
		if !done[a] {
			st.Blocking = append(st.Blocking, a)
		}
	}
	return st, nil
}

// IssueCertificate completes the roadmap's certificate node. Issuance is
// latched: an issued certificate is returned unchanged on later calls.
func (s *Service) IssueCertificate(ctx context.Context, roadmapID string) (Outcome, error) {
	r, err := s.roadmap(roadmapID)
	if err != nil {
		return Outcome{}, err
	}
	n, err := certificateNode(r)
	if err != nil {
		return Outcome{}, err
	}
	return s.Complete(ctx, r.ID, n.ID)
}

func certificateNode(r *roadmap.Roadmap) (roadmap.Node, error) {
	nodes := r.OfKind(roadmap.KindCertificate)
	if len(nodes) == 0 {
		return roadmap.Node{}, &errs.NotFoundError{Kind: "certificate node", ID: r.ID}
	}
	return nodes[len(nodes)-1], nil
}

// decide evaluates the roadmap's policy over p. For the peer-evaluation
// policy the reviews of the learner's final submission are loaded.
func (s *Service) decide(ctx context.Context, r *roadmap.Roadmap, p *progress.LearnerProgress) (certificate.Decision, error) {
	in := certificate.Inputs{Scores: p.Scores(r.ID)}
	if r.Certificate.Policy == roadmap.PolicyPeerEvaluation && r.Certificate.FinalSubmission != "" {
		sub, ok, err := s.ownSubmission(ctx, r.ID, r.Certificate.FinalSubmission)
		if err != nil {
			return certificate.Decision{}, err
		}
		if ok {
			evals, err := s.repo.EvaluationsFor(ctx, sub.ID)
			if err != nil {
				return certificate.Decision{}, &errs.RemoteSyncError{Op: "load evaluations", Err: err}
			}
			in.Final = peer.Aggregate(evals, peer.Policy{
				RequiredPassing: r.Certificate.RequiredPassing,
				PassingScore:    r.Certificate.PassingScore,
			})
		}
	}
	return certificate.Evaluate(r, in), nil
}
