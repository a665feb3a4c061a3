package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/skillquest/internal/errs"
	"github.com/abhisek/skillquest/internal/peer"
	"github.com/abhisek/skillquest/internal/progress"
)

var submissionFields = []string{"id", "owner_id", "roadmap_id", "node_id", "content", "file_name", "status", "submitted_at"}

var evaluationFields = []string{"id", "submission_id", "evaluator_id", "owner_id", "score", "feedback", "criteria", "created_at"}

func saveSubmission(ctx context.Context, tx *sql.Tx, sub peer.Submission) error {
	query, args := builder().Insert(submissionsTable.Name).
		Columns(submissionFields...).
		Values(sub.ID, sub.OwnerID, sub.RoadmapID, sub.NodeID, sub.Content, nullString(sub.FileName), string(sub.Status), toNanos(sub.SubmittedAt)).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save submission %s: %w", sub.ID, err)
	}
	return nil
}

func insertEvaluation(ctx context.Context, tx *sql.Tx, e peer.Evaluation) error {
	var criteria any
	if e.Criteria != nil {
		b, err := json.Marshal(e.Criteria)
		if err != nil {
			return fmt.Errorf("encode criteria: %w", err)
		}
		criteria = string(b)
	}

	query, args := builder().Insert(evaluationsTable.Name).
		Columns(evaluationFields...).
		Values(e.ID, e.SubmissionID, e.EvaluatorID, e.OwnerID, e.Score, e.Feedback, criteria, toNanos(e.CreatedAt)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return progress.ErrDuplicateEvaluation
		}
		return fmt.Errorf("insert evaluation %s: %w", e.ID, err)
	}
	return nil
}

// Submissions returns every submission in the pool, oldest first.
func (s *Store) Submissions(ctx context.Context) ([]peer.Submission, error) {
	query, args := builder().Select(submissionFields...).
		From(entsql.Table(submissionsTable.Name)).
		OrderBy("submitted_at", "id").
		Query()
	return s.querySubmissions(ctx, query, args)
}

// Submission returns one submission by ID.
func (s *Store) Submission(ctx context.Context, id string) (peer.Submission, error) {
	query, args := builder().Select(submissionFields...).
		From(entsql.Table(submissionsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()
	subs, err := s.querySubmissions(ctx, query, args)
	if err != nil {
		return peer.Submission{}, err
	}
	if len(subs) == 0 {
		return peer.Submission{}, &errs.NotFoundError{Kind: "submission", ID: id}
	}
	return subs[0], nil
}

func (s *Store) querySubmissions(ctx context.Context, query string, args []any) ([]peer.Submission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var out []peer.Submission
	for rows.Next() {
		var (
			sub      peer.Submission
			fileName sql.NullString
			status   string
			at       int64
		)
		if err := rows.Scan(&sub.ID, &sub.OwnerID, &sub.RoadmapID, &sub.NodeID, &sub.Content, &fileName, &status, &at); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.FileName = fileName.String
		sub.Status = peer.Status(status)
		sub.SubmittedAt = fromNanos(at)
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Evaluations returns every recorded evaluation, oldest first.
func (s *Store) Evaluations(ctx context.Context) ([]peer.Evaluation, error) {
	query, args := builder().Select(evaluationFields...).
		From(entsql.Table(evaluationsTable.Name)).
		OrderBy("created_at", "id").
		Query()
	return s.queryEvaluations(ctx, query, args)
}

// EvaluationsFor returns the evaluations of one submission.
func (s *Store) EvaluationsFor(ctx context.Context, submissionID string) ([]peer.Evaluation, error) {
	query, args := builder().Select(evaluationFields...).
		From(entsql.Table(evaluationsTable.Name)).
		Where(entsql.EQ("submission_id", submissionID)).
		OrderBy("created_at", "id").
		Query()
	return s.queryEvaluations(ctx, query, args)
}

func (s *Store) queryEvaluations(ctx context.Context, query string, args []any) ([]peer.Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var out []peer.Evaluation
	for rows.Next() {
		var (
			e        peer.Evaluation
			criteria sql.NullString
			at       int64
		)
		if err := rows.Scan(&e.ID, &e.SubmissionID, &e.EvaluatorID, &e.OwnerID, &e.Score, &e.Feedback, &criteria, &at); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		if criteria.Valid && criteria.String != "" {
			var c peer.Criteria
			if err := json.Unmarshal([]byte(criteria.String), &c); err != nil {
				return nil, fmt.Errorf("decode criteria: %w", err)
			}
			e.Criteria = &c
		}
		e.CreatedAt = fromNanos(at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CertificateRecord is an issued certificate together with its holder.
type CertificateRecord struct {
	LearnerID string
	RoadmapID string
	Serial    string
	Policy    string
	Grade     int
	IssuedAt  time.Time
}

// Certificate looks up an issued certificate by serial.
func (s *Store) Certificate(ctx context.Context, serial string) (CertificateRecord, error) {
	query, args := builder().Select("serial", "learner_id", "roadmap_id", "policy", "grade", "issued_at").
		From(entsql.Table(certificatesTable.Name)).
		Where(entsql.EQ("serial", serial)).
		Query()

	var (
		rec    CertificateRecord
		grade  sql.NullInt64
		issued int64
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&rec.Serial, &rec.LearnerID, &rec.RoadmapID, &rec.Policy, &grade, &issued)
	if errors.Is(err, sql.ErrNoRows) {
		return CertificateRecord{}, &errs.NotFoundError{Kind: "certificate", ID: serial}
	}
	if err != nil {
		return CertificateRecord{}, fmt.Errorf("query certificate: %w", err)
	}
	rec.Grade = int(grade.Int64)
	rec.IssuedAt = fromNanos(issued)
	return rec, nil
}
