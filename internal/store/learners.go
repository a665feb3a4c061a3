package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/skillquest/internal/peer"
	"github.com/abhisek/skillquest/internal/progress"
)

var _ progress.Repository = (*Store)(nil)

// Load returns a learner's progress, or fresh progress if none is stored.
func (s *Store) Load(ctx context.Context, learnerID string) (*progress.LearnerProgress, error) {
	query, args := builder().Select("data").
		From(entsql.Table(learnersTable.Name)).
		Where(entsql.EQ("learner_id", learnerID)).
		Query()

	var data string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return progress.New(learnerID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress for %s: %w", learnerID, err)
	}

	var p progress.LearnerProgress
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decode progress for %s: %w", learnerID, err)
	}
	return p.Normalize(), nil
}

// Commit persists the change in a single transaction.
func (s *Store) Commit(ctx context.Context, c progress.Change) (err error) {
	if c.Empty() {
		return nil
	}
	for i, e := range c.Evaluations {
		if peer.HasEvaluated(c.Evaluations[:i], e.EvaluatorID, e.SubmissionID) {
			return progress.ErrDuplicateEvaluation
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, p := range c.Learners {
		if err = s.saveLearner(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, sub := range c.Submissions {
		if err = saveSubmission(ctx, tx, sub); err != nil {
			return err
		}
	}
	for _, e := range c.Evaluations {
		if err = insertEvaluation(ctx, tx, e); err != nil {
			return err
		}
	}
	for _, e := range c.Events {
		if e.At.IsZero() {
			e.At = s.now()
		}
		if err = s.appendEvent(ctx, tx, e); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) saveLearner(ctx context.Context, tx *sql.Tx, p *progress.LearnerProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress for %s: %w", p.LearnerID, err)
	}
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}

	query, args := builder().Insert(learnersTable.Name).
		Columns("learner_id", "xp", "data", "updated_at").
		Values(p.LearnerID, p.XP, string(data), toNanos(updated)).
		OnConflict(entsql.ConflictColumns("learner_id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save progress for %s: %w", p.LearnerID, err)
	}

	// Issued certificates are mirrored into their own table so a serial can
	// be verified without decoding learner snapshots.
	for _, cert := range p.Certificates {
		var grade any
		if cert.Grade > 0 {
			grade = cert.Grade
		}
		query, args := builder().Insert(certificatesTable.Name).
			Columns("serial", "learner_id", "roadmap_id", "policy", "grade", "issued_at").
			Values(cert.Serial, p.LearnerID, cert.RoadmapID, string(cert.Policy), grade, toNanos(cert.IssuedAt)).
			OnConflict(entsql.ConflictColumns("learner_id", "roadmap_id"), entsql.DoNothing()).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save certificate %s: %w", cert.Serial, err)
		}
	}
	return nil
}

// Reset deletes a learner's progress, events and certificates. The
// learner's submissions are marked withdrawn rather than deleted so the
// evaluations other learners gave stay on record.
func (s *Store) Reset(ctx context.Context, learnerID string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	withdraw := builder().Update(submissionsTable.Name).
		Set("status", string(peer.StatusWithdrawn)).
		Where(entsql.EQ("owner_id", learnerID))

	stmts := []entsql.Querier{
		withdraw,
		builder().Delete(eventsTable.Name).Where(entsql.EQ("learner_id", learnerID)),
		builder().Delete(certificatesTable.Name).Where(entsql.EQ("learner_id", learnerID)),
		builder().Delete(learnersTable.Name).Where(entsql.EQ("learner_id", learnerID)),
	}
	for _, st := range stmts {
		query, args := st.Query()
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("reset %s: %w", learnerID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
