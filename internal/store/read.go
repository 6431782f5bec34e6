package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReadRun returns a recorded run with its resolutions and misses.
// Returns ErrRunNotFound if no run has the id.
func (s *Store) ReadRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{ID: id}
	var unknownJSON, errorsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, label, snapshot_digest, catalogue_digest, unknown_keys, errors
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.Seq, &run.Label, &run.SnapshotDigest, &run.CatalogueDigest, &unknownJSON, &errorsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %q: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %q: %w", id, err)
	}

	if run.Unknown, err = unmarshalStrings(unknownJSON); err != nil {
		return nil, fmt.Errorf("read run %q: %w", id, err)
	}
	if run.Errors, err = unmarshalStrings(errorsJSON); err != nil {
		return nil, fmt.Errorf("read run %q: %w", id, err)
	}
	if run.Resolutions, err = s.readResolutions(ctx, id); err != nil {
		return nil, err
	}
	if run.Misses, err = s.readMisses(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

// readResolutions returns the resolutions of a run with deterministic ordering.
func (s *Store) readResolutions(ctx context.Context, runID string) ([]Resolution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT alias, registry_key, resolution_order, fingerprint
		FROM resolutions
		WHERE run_id = ?
		ORDER BY resolution_order ASC, alias COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query resolutions: %w", err)
	}
	defer rows.Close()

	out := []Resolution{}
	for rows.Next() {
		var r Resolution
		if err := rows.Scan(&r.Alias, &r.Key, &r.Order, &r.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolutions: %w", err)
	}
	return out, nil
}

func (s *Store) readMisses(ctx context.Context, runID string) ([]Miss, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT alias, reason
		FROM misses
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query misses: %w", err)
	}
	defer rows.Close()

	out := []Miss{}
	for rows.Next() {
		var m Miss
		var reason string
		if err := rows.Scan(&m.Alias, &reason); err != nil {
			return nil, fmt.Errorf("scan miss: %w", err)
		}
		m.Reason = MissReason(reason)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate misses: %w", err)
	}
	return out, nil
}

// ListRuns returns every recorded run, oldest first.
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.seq, r.label, r.snapshot_digest, r.catalogue_digest,
		       (SELECT COUNT(*) FROM resolutions WHERE run_id = r.id),
		       (SELECT COUNT(*) FROM misses WHERE run_id = r.id)
		FROM runs r
		ORDER BY r.seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Seq, &r.Label, &r.SnapshotDigest, &r.CatalogueDigest, &r.Resolved, &r.Missed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// LatestRun returns the most recently written run.
// Returns ErrRunNotFound if nothing was recorded.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY seq DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return s.ReadRun(ctx, id)
}

// AliasHistory returns, oldest run first, the key an alias resolved to in
// every run that resolved it.
func (s *Store) AliasHistory(ctx context.Context, alias string) ([]Resolution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT res.alias, res.registry_key, res.resolution_order, res.fingerprint
		FROM resolutions res
		JOIN runs r ON r.id = res.run_id
		WHERE res.alias = ?
		ORDER BY r.seq ASC
	`, alias)
	if err != nil {
		return nil, fmt.Errorf("query alias history: %w", err)
	}
	defer rows.Close()

	out := []Resolution{}
	for rows.Next() {
		var r Resolution
		if err := rows.Scan(&r.Alias, &r.Key, &r.Order, &r.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alias history: %w", err)
	}
	return out, nil
}
