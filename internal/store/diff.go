package store

import (
	"context"
	"sort"
)

// Change describes one alias that differs between two runs.
type Change struct {
	Alias           string `json:"alias"`
	FromKey         string `json:"from_key,omitempty"`
	ToKey           string `json:"to_key,omitempty"`
	FromFingerprint string `json:"from_fingerprint,omitempty"`
	ToFingerprint   string `json:"to_fingerprint,omitempty"`
}

// Diff compares the resolutions of two runs. Every list is sorted by
// alias.
type Diff struct {
	From string `json:"from"`
	To   string `json:"to"`

	// Found lists aliases resolved only in To.
	Found []Change `json:"found"`

	// Lost lists aliases resolved only in From.
	Lost []Change `json:"lost"`

	// Moved lists aliases resolved to a different registry key.
	Moved []Change `json:"moved"`

	// Reshaped lists aliases resolved to the same key whose module
	// fingerprint changed.
	Reshaped []Change `json:"reshaped"`
}

// Empty reports whether the runs resolved identically.
func (d *Diff) Empty() bool {
	return len(d.Found) == 0 && len(d.Lost) == 0 && len(d.Moved) == 0 && len(d.Reshaped) == 0
}

// DiffRuns compares run from with run to.
func (s *Store) DiffRuns(ctx context.Context, from, to string) (*Diff, error) {
	a, err := s.ReadRun(ctx, from)
	if err != nil {
		return nil, err
	}
	b, err := s.ReadRun(ctx, to)
	if err != nil {
		return nil, err
	}
	return CompareRuns(a, b), nil
}

// CompareRuns compares two runs already in memory.
func CompareRuns(a, b *Run) *Diff {
	d := &Diff{
		From:     a.ID,
		To:       b.ID,
		Found:    []Change{},
		Lost:     []Change{},
		Moved:    []Change{},
		Reshaped: []Change{},
	}

	before := make(map[string]Resolution, len(a.Resolutions))
	for _, r := range a.Resolutions {
		before[r.Alias] = r
	}
	after := make(map[string]Resolution, len(b.Resolutions))
	for _, r := range b.Resolutions {
		after[r.Alias] = r
	}

	for alias, old := range before {
		cur, ok := after[alias]
		switch {
		case !ok:
			d.Lost = append(d.Lost, Change{Alias: alias, FromKey: old.Key, FromFingerprint: old.Fingerprint})
		case cur.Key != old.Key:
			d.Moved = append(d.Moved, Change{Alias: alias, FromKey: old.Key, ToKey: cur.Key, FromFingerprint: old.Fingerprint, ToFingerprint: cur.Fingerprint})
		case cur.Fingerprint != old.Fingerprint:
			d.Reshaped = append(d.Reshaped, Change{Alias: alias, FromKey: old.Key, ToKey: cur.Key, FromFingerprint: old.Fingerprint, ToFingerprint: cur.Fingerprint})
		}
	}
	for alias, cur := range after {
		if _, ok := before[alias]; !ok {
			d.Found = append(d.Found, Change{Alias: alias, ToKey: cur.Key, ToFingerprint: cur.Fingerprint})
		}
	}

	for _, list := range [][]Change{d.Found, d.Lost, d.Moved, d.Reshaped} {
		sort.Slice(list, func(i, j int) bool { return list[i].Alias < list[j].Alias })
	}
	return d
}
