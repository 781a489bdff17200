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

// PutSnapshot upserts the snapshot for its package code and stamps the fetch
// time. The previous row for the code, if any, is fully replaced: a snapshot
// is the latest word from the authority, never a merge.
func (s *Store) PutSnapshot(ctx context.Context, snap model.Snapshot, fetchedAt time.Time) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("put snapshot: marshal payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (code, state, delivery_type, payload, fetched_at, accessed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			state = excluded.state,
			delivery_type = excluded.delivery_type,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at,
			accessed_at = excluded.accessed_at
	`,
		snap.Code,
		string(snap.State),
		string(snap.DeliveryType),
		string(payload),
		fetchedAt.Unix(),
		fetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// GetSnapshot reads the snapshot for a code, if present, and returns the time
// it was fetched from the authority. The row's access time is bumped so LRU
// eviction keeps recently scanned packages.
func (s *Store) GetSnapshot(ctx context.Context, code string, now time.Time) (model.Snapshot, time.Time, bool, error) {
	var (
		payload   string
		fetchedAt int64
	)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT payload, fetched_at FROM snapshots WHERE code = ?
		`, code)
		if err := row.Scan(&payload, &fetchedAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE snapshots SET accessed_at = ? WHERE code = ?
		`, now.Unix(), code)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, time.Time{}, false, nil
	}
	if err != nil {
		return model.Snapshot{}, time.Time{}, false, fmt.Errorf("get snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return model.Snapshot{}, time.Time{}, false, fmt.Errorf("get snapshot: unmarshal payload: %w", err)
	}
	return snap, time.Unix(fetchedAt, 0).UTC(), true, nil
}

// DeleteSnapshot removes the snapshot for a code. Missing codes are a no-op.
func (s *Store) DeleteSnapshot(ctx context.Context, code string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE code = ?`, code); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// CountSnapshots returns the number of cached snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

// EvictSnapshotsLRU deletes least-recently-accessed snapshots until at most
// keep rows remain. Returns the number of rows evicted.
func (s *Store) EvictSnapshotsLRU(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE code NOT IN (
			SELECT code FROM snapshots ORDER BY accessed_at DESC, code LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("evict snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("evict snapshots: rows affected: %w", err)
	}
	return int(n), nil
}
