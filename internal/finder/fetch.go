package finder

import "github.com/roach88/plugmods/internal/module"

// Fetch returns a detective that derives the module directly, typically by
// reading a member of an already resolved module, and finds its key by
// identity in the registry.
//
// A falsy result is ErrNotFound. So is a scalar result: only objects,
// functions and arrays have identity to look up.
func Fetch(fn func(c *Context) module.Value) Detective {
	return DetectiveFunc(func(c *Context) (string, error) {
		v := fn(c)
		if !module.Truthy(v) {
			return "", ErrNotFound
		}
		key, ok := c.KeyOf(v)
		if !ok {
			return "", ErrNotFound
		}
		return key, nil
	})
}

// KeyOf returns the first registry key holding exactly v.
//
// The identity index is built on first use and rebuilt on a miss, since
// the host may define new modules between runs.
func (c *Context) KeyOf(v module.Value) (string, bool) {
	if c.registry == nil || !module.IsReference(v) {
		return "", false
	}
	if c.identity != nil {
		if key, ok := c.identity[v]; ok {
			return key, true
		}
	}
	c.reindex()
	key, ok := c.identity[v]
	return key, ok
}

func (c *Context) reindex() {
	keys := c.registry.Keys()
	c.identity = make(map[module.Value]string, len(keys))
	for _, key := range keys {
		v, ok := c.registry.Get(key)
		if !ok || !module.IsReference(v) {
			continue
		}
		if _, seen := c.identity[v]; !seen {
			c.identity[v] = key
		}
	}
}
