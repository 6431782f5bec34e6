package finder

import "github.com/roach88/plugmods/internal/module"

// Factory builds a detective from resolved prerequisites, passed in the
// order they were declared.
type Factory func(deps ...module.Value) Detective

// Depends returns a detective that requires each of names in order and,
// once all are resolved, evaluates the detective factory builds from them.
// While any prerequisite is missing the result is ErrDeferred, which is
// not a permanent failure.
func Depends(names []string, factory Factory) Detective {
	needs := make([]string, len(names))
	copy(needs, names)
	return &dependent{needs: needs, factory: factory}
}

type dependent struct {
	needs   []string
	factory Factory
}

// Needs returns the prerequisite names.
func (d *dependent) Needs() []string {
	out := make([]string, len(d.needs))
	copy(out, d.needs)
	return out
}

func (d *dependent) Detect(c *Context) (string, error) {
	deps := make([]module.Value, len(d.needs))
	for i, name := range d.needs {
		v, ok := c.Require(name)
		if !ok {
			return "", ErrDeferred
		}
		deps[i] = v
	}
	inner := d.factory(deps...)
	if inner == nil {
		return "", ErrNotFound
	}
	return inner.Detect(c)
}

// Needer is implemented by detectives that declare prerequisites.
type Needer interface {
	Needs() []string
}
