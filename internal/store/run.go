package store

import (
	"errors"

	"github.com/roach88/plugmods/internal/finder"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// MissReason says why an alias did not resolve.
type MissReason string

const (
	MissNotFound MissReason = "not_found"
	MissDeferred MissReason = "deferred"
)

// Run is one recorded resolution.
type Run struct {
	ID string `json:"id"`

	// Seq orders runs; assigned by WriteRun.
	Seq int64 `json:"seq"`

	// Label is free text supplied by the caller, e.g. the snapshot path.
	Label string `json:"label"`

	SnapshotDigest  string `json:"snapshot_digest"`
	CatalogueDigest string `json:"catalogue_digest"`

	Resolutions []Resolution `json:"resolutions"`
	Misses      []Miss       `json:"misses"`
	Unknown     []string     `json:"unknown"`
	Errors      []string     `json:"errors"`
}

// Resolution is one alias resolved in a run.
type Resolution struct {
	Alias       string `json:"alias"`
	Key         string `json:"key"`
	Order       int64  `json:"order"`
	Fingerprint string `json:"fingerprint"`
}

// Miss is one alias a run did not resolve.
type Miss struct {
	Alias  string     `json:"alias"`
	Reason MissReason `json:"reason"`
}

// RunSummary is a run without its per-alias rows.
type RunSummary struct {
	ID              string `json:"id"`
	Seq             int64  `json:"seq"`
	Label           string `json:"label"`
	SnapshotDigest  string `json:"snapshot_digest"`
	CatalogueDigest string `json:"catalogue_digest"`
	Resolved        int    `json:"resolved"`
	Missed          int    `json:"missed"`
}

// NewRun converts a finder report into a Run with a fresh id.
func NewRun(ids RunIDGenerator, r *finder.Report, snapshotDigest, catalogueDigest, label string) *Run {
	run := &Run{
		ID:              ids.Generate(),
		Label:           label,
		SnapshotDigest:  snapshotDigest,
		CatalogueDigest: catalogueDigest,
		Resolutions:     make([]Resolution, 0, len(r.Resolved)),
		Misses:          make([]Miss, 0, len(r.NotFound)+len(r.Deferred)),
		Unknown:         append([]string{}, r.Unknown...),
		Errors:          append([]string{}, r.Errors...),
	}
	for _, res := range r.Resolved {
		run.Resolutions = append(run.Resolutions, Resolution(res))
	}
	for _, alias := range r.NotFound {
		run.Misses = append(run.Misses, Miss{Alias: alias, Reason: MissNotFound})
	}
	for _, alias := range r.Deferred {
		run.Misses = append(run.Misses, Miss{Alias: alias, Reason: MissDeferred})
	}
	return run
}
