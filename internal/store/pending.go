package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/juakali/scanflow/internal/model"
)

// InsertPending inserts a pending action record.
// Uses ON CONFLICT(token) DO NOTHING for idempotency: writing the same token
// twice is silently ignored and inserted=false is returned.
func (s *Store) InsertPending(ctx context.Context, pa model.PendingAction, fingerprint string) (inserted bool, err error) {
	operatorJSON, err := json.Marshal(pa.Operator)
	if err != nil {
		return false, fmt.Errorf("insert pending: marshal operator: %w", err)
	}
	metadataJSON, err := json.Marshal(pa.Metadata)
	if err != nil {
		return false, fmt.Errorf("insert pending: marshal metadata: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_actions
		(token, code, action, fingerprint, operator, metadata, seq, queued_at, attempts, needs_attention)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		pa.Token,
		pa.Code,
		string(pa.Action),
		fingerprint,
		string(operatorJSON),
		string(metadataJSON),
		pa.Seq,
		pa.QueuedAt.Unix(),
		pa.Attempts,
		boolToInt(pa.NeedsAttention),
	)
	if err != nil {
		return false, fmt.Errorf("insert pending: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert pending: rows affected: %w", err)
	}
	return n > 0, nil
}

// ListPending returns every pending action in enqueue (seq) order.
func (s *Store) ListPending(ctx context.Context) ([]model.PendingAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, code, action, operator, metadata, seq, queued_at, attempts, needs_attention
		FROM pending_actions
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	return scanPendingRows(rows)
}

// ListPendingByCode returns the pending actions for one package code in
// enqueue order. Reconciliation depends on this order: a later action for a
// code only makes sense after the earlier one has been applied.
func (s *Store) ListPendingByCode(ctx context.Context, code string) ([]model.PendingAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, code, action, operator, metadata, seq, queued_at, attempts, needs_attention
		FROM pending_actions
		WHERE code = ?
		ORDER BY seq
	`, code)
	if err != nil {
		return nil, fmt.Errorf("list pending by code: %w", err)
	}
	defer rows.Close()

	return scanPendingRows(rows)
}

// PeekPending returns the oldest pending action, if any.
func (s *Store) PeekPending(ctx context.Context) (model.PendingAction, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, code, action, operator, metadata, seq, queued_at, attempts, needs_attention
		FROM pending_actions
		ORDER BY seq
		LIMIT 1
	`)
	pa, err := scanPendingRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PendingAction{}, false, nil
	}
	if err != nil {
		return model.PendingAction{}, false, fmt.Errorf("peek pending: %w", err)
	}
	return pa, true, nil
}

// LatestPendingForCode returns the newest pending action for a code together
// with its scan fingerprint. Used to coalesce offline double-taps.
func (s *Store) LatestPendingForCode(ctx context.Context, code string) (model.PendingAction, string, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, code, action, operator, metadata, seq, queued_at, attempts, needs_attention, fingerprint
		FROM pending_actions
		WHERE code = ?
		ORDER BY seq DESC
		LIMIT 1
	`, code)

	var (
		pa           model.PendingAction
		action       string
		operatorJSON string
		metadataJSON string
		queuedAt     int64
		attention    int
		fingerprint  string
	)
	err := row.Scan(&pa.Token, &pa.Code, &action, &operatorJSON, &metadataJSON,
		&pa.Seq, &queuedAt, &pa.Attempts, &attention, &fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PendingAction{}, "", false, nil
	}
	if err != nil {
		return model.PendingAction{}, "", false, fmt.Errorf("latest pending for code: %w", err)
	}
	if err := hydratePending(&pa, action, operatorJSON, metadataJSON, queuedAt, attention); err != nil {
		return model.PendingAction{}, "", false, fmt.Errorf("latest pending for code: %w", err)
	}
	return pa, fingerprint, true, nil
}

// RemovePending deletes a pending action by token.
// Removing an absent token is a no-op; acknowledged actions may already have
// been removed by an earlier sweep.
func (s *Store) RemovePending(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("remove pending: %w", err)
	}
	return nil
}

// CountPending returns the number of queued actions.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

// IncrementAttempts bumps the replay attempt counter for a token.
func (s *Store) IncrementAttempts(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE pending_actions SET attempts = attempts + 1 WHERE token = ?
	`, token); err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

// MarkNeedsAttention flags a pending action for operator review.
// Flagged actions stay queued but are skipped by reconciliation sweeps.
func (s *Store) MarkNeedsAttention(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE pending_actions SET needs_attention = 1 WHERE token = ?
	`, token); err != nil {
		return fmt.Errorf("mark needs attention: %w", err)
	}
	return nil
}

// MaxPendingSeq returns the highest seq ever assigned to a queued action, or
// zero for an empty queue. Used to resume the logical clock after restart.
func (s *Store) MaxPendingSeq(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM pending_actions`).Scan(&max); err != nil {
		return 0, fmt.Errorf("max pending seq: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPendingRow(row rowScanner) (model.PendingAction, error) {
	var (
		pa           model.PendingAction
		action       string
		operatorJSON string
		metadataJSON string
		queuedAt     int64
		attention    int
	)
	if err := row.Scan(&pa.Token, &pa.Code, &action, &operatorJSON, &metadataJSON,
		&pa.Seq, &queuedAt, &pa.Attempts, &attention); err != nil {
		return model.PendingAction{}, err
	}
	if err := hydratePending(&pa, action, operatorJSON, metadataJSON, queuedAt, attention); err != nil {
		return model.PendingAction{}, err
	}
	return pa, nil
}

func scanPendingRows(rows *sql.Rows) ([]model.PendingAction, error) {
	var out []model.PendingAction
	for rows.Next() {
		pa, err := scanPendingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		out = append(out, pa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending rows: %w", err)
	}
	return out, nil
}

func hydratePending(pa *model.PendingAction, action, operatorJSON, metadataJSON string, queuedAt int64, attention int) error {
	pa.Action = model.ActionType(action)
	pa.QueuedAt = time.Unix(queuedAt, 0).UTC()
	pa.NeedsAttention = attention != 0
	if err := json.Unmarshal([]byte(operatorJSON), &pa.Operator); err != nil {
		return fmt.Errorf("unmarshal operator: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &pa.Metadata); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
