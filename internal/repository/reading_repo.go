package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	rt "resin_tracker"

	"github.com/google/uuid"
)

type ReadingSQLite struct {
	db *sql.DB
}

func NewReadingSQLite(db *sql.DB) *ReadingSQLite { return &ReadingSQLite{db: db} }

var _ Readings = (*ReadingSQLite)(nil)

const (
	insertReadingSQL = `INSERT INTO readings (id, occurred_ns, tag, value, kind) VALUES (?, ?, ?, ?, ?)`
	selectReadingSQL = `SELECT id, occurred_ns, tag, value, kind FROM readings`
)

// AppendBatch inserts all events in one transaction. Missing ids are
// generated. Returns the number of rows written.
func (r *ReadingSQLite) AppendBatch(ctx context.Context, events []rt.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin readings batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertReadingSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare reading insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range events {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		kind := e.Kind
		if kind == "" {
			kind = rt.KindCounterSample
		}
		if _, err := stmt.ExecContext(ctx, id, e.Timestamp.UTC().UnixNano(), strings.TrimSpace(e.Tag), e.Value, string(kind)); err != nil {
			return 0, fmt.Errorf("insert reading %d (%s): %w", i, e.Tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit readings batch: %w", err)
	}
	return len(events), nil
}

// List returns readings in [from, to] (inclusive; zero means unbounded)
// restricted to tags when non-empty, ordered by time ascending.
func (r *ReadingSQLite) List(ctx context.Context, from, to time.Time, tags []string) ([]rt.Event, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "occurred_ns >= ?")
		args = append(args, from.UTC().UnixNano())
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_ns <= ?")
		args = append(args, to.UTC().UnixNano())
	}
	if len(tags) > 0 {
		conds = append(conds, "tag IN ("+strings.TrimSuffix(strings.Repeat("?, ", len(tags)), ", ")+")")
		for _, t := range tags {
			args = append(args, t)
		}
	}

	q := selectReadingSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_ns ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	out := make([]rt.Event, 0, 256)
	for rows.Next() {
		var (
			ev   rt.Event
			ns   int64
			kind string
		)
		if err := rows.Scan(&ev.ID, &ns, &ev.Tag, &ev.Value, &kind); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		ev.Timestamp = time.Unix(0, ns).UTC()
		ev.Kind = rt.EventKind(kind)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
