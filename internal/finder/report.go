package finder

import (
	"sort"

	"github.com/roach88/plugmods/internal/module"
)

// Resolution is one resolved alias in a Report.
type Resolution struct {
	Alias       string `json:"alias"`
	Key         string `json:"key"`
	Order       int64  `json:"order"`
	Fingerprint string `json:"fingerprint"`
}

// Report is a deterministic summary of a context after Run.
type Report struct {
	Resolved []Resolution `json:"resolved"`
	NotFound []string     `json:"not_found"`
	Deferred []string     `json:"deferred"`
	Unknown  []string     `json:"unknown"`
	Errors   []string     `json:"errors"`
}

// Report summarizes the context. Resolved aliases are listed in resolution
// order; aliases defined by hand (order 0) come first, in definition order.
func (c *Context) Report() *Report {
	r := &Report{
		Resolved: []Resolution{},
		NotFound: c.NotFound(),
		Deferred: c.Deferred(),
		Unknown:  c.UnknownModules(),
		Errors:   []string{},
	}
	for _, a := range c.Aliases() {
		v, ok := c.resolved(a.Name)
		if !ok {
			continue
		}
		r.Resolved = append(r.Resolved, Resolution{
			Alias:       a.Name,
			Key:         a.Key,
			Order:       c.order[a.Name],
			Fingerprint: module.Fingerprint(v),
		})
	}
	sort.SliceStable(r.Resolved, func(i, j int) bool {
		return r.Resolved[i].Order < r.Resolved[j].Order
	})
	for _, err := range c.errs {
		r.Errors = append(r.Errors, err.Error())
	}
	return r
}

// resolved returns the module an alias currently names without
// attempting any detective.
func (c *Context) resolved(name string) (module.Value, bool) {
	if c.registry == nil {
		return nil, false
	}
	return c.literal(c.ResolveName(name))
}

// Keys returns alias -> registry key for every resolved alias.
func (r *Report) Keys() map[string]string {
	out := make(map[string]string, len(r.Resolved))
	for _, res := range r.Resolved {
		out[res.Alias] = res.Key
	}
	return out
}

// Canonical returns the report as canonical JSON, stable across runs.
func (r *Report) Canonical() ([]byte, error) {
	resolved := make([]any, len(r.Resolved))
	for i, res := range r.Resolved {
		resolved[i] = map[string]any{
			"alias":       res.Alias,
			"key":         res.Key,
			"order":       res.Order,
			"fingerprint": res.Fingerprint,
		}
	}
	return module.MarshalCanonical(map[string]any{
		"resolved":  resolved,
		"not_found": r.NotFound,
		"deferred":  r.Deferred,
		"unknown":   r.Unknown,
		"errors":    r.Errors,
	})
}
