package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WriteRun records a run and assigns its Seq.
//
// Writing a run whose id already exists is a no-op; run.Seq is set to the
// stored value. The run and its rows are written in one transaction.
func (s *Store) WriteRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		return fmt.Errorf("write run: id is required")
	}

	unknownJSON, err := marshalStrings(run.Unknown)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	errorsJSON, err := marshalStrings(run.Errors)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&existing)
	switch {
	case err == nil:
		run.Seq = existing
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("write run: lookup: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, label, snapshot_digest, catalogue_digest, unknown_keys, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		seq,
		run.Label,
		run.SnapshotDigest,
		run.CatalogueDigest,
		unknownJSON,
		errorsJSON,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	for _, res := range run.Resolutions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO resolutions
			(run_id, alias, registry_key, resolution_order, fingerprint)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, res.Alias, res.Key, res.Order, res.Fingerprint)
		if err != nil {
			return fmt.Errorf("write resolution %q: %w", res.Alias, err)
		}
	}

	for i, miss := range run.Misses {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO misses (run_id, alias, reason, position)
			VALUES (?, ?, ?, ?)
		`, run.ID, miss.Alias, string(miss.Reason), i)
		if err != nil {
			return fmt.Errorf("write miss %q: %w", miss.Alias, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	run.Seq = seq
	return nil
}
