package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/skillquest/internal/progress"
)

// sequenceCounter hands out the global, monotonic sequence number shared by
// learner events and LLM request records, so the two logs interleave in a
// single order. The mutex serializes within the process; the RETURNING
// clause makes the increment atomic in the database.
type sequenceCounter struct {
	mu sync.Mutex
}

// newSequenceCounter ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{}, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Next returns the next sequence number, incrementing the counter through q
// so the increment commits or rolls back with the caller's transaction.
func (sc *sequenceCounter) Next(ctx context.Context, q querier) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := q.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

func (s *Store) appendEvent(ctx context.Context, tx *sql.Tx, e progress.Event) error {
	seq, err := s.seq.Next(ctx, tx)
	if err != nil {
		return err
	}

	var data any
	if len(e.Data) > 0 {
		b, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("encode event data: %w", err)
		}
		data = string(b)
	}

	query, args := builder().Insert(eventsTable.Name).
		Columns("sequence", "learner_id", "type", "roadmap_id", "node_id", "score", "xp", "data", "at").
		Values(seq, e.LearnerID, string(e.Type), nullString(e.RoadmapID), nullString(e.NodeID), nullInt(e.Score), e.XP, data, toNanos(e.At)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s event: %w", e.Type, err)
	}
	return nil
}

// History returns a learner's most recent events, newest first.
func (s *Store) History(ctx context.Context, learnerID string, limit int) ([]progress.Event, error) {
	sel := builder().Select("sequence", "learner_id", "type", "roadmap_id", "node_id", "score", "xp", "data", "at").
		From(entsql.Table(eventsTable.Name)).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy(entsql.Desc("sequence"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []progress.Event
	for rows.Next() {
		var (
			e                progress.Event
			typ              string
			roadmapID, node  sql.NullString
			score            sql.NullInt64
			data             sql.NullString
			at               int64
		)
		if err := rows.Scan(&e.Sequence, &e.LearnerID, &typ, &roadmapID, &node, &score, &e.XP, &data, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = progress.EventType(typ)
		e.RoadmapID = roadmapID.String
		e.NodeID = node.String
		if score.Valid {
			v := int(score.Int64)
			e.Score = &v
		}
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &e.Data); err != nil {
				return nil, fmt.Errorf("decode event data: %w", err)
			}
		}
		e.At = fromNanos(at)
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
