package predicate

import "github.com/roach88/plugmods/internal/module"

// Renderer instantiates the view class stored under a registry key against
// a throwaway container, renders it, and reports whether an element
// matching selector appeared. Implementations dispose the view afterwards.
type Renderer interface {
	Render(key, selector string) (bool, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(key, selector string) (bool, error)

// Render implements Renderer.
func (f RendererFunc) Render(key, selector string) (bool, error) {
	return f(key, selector)
}

// ViewHasElement reports whether rendering the view class under key
// produces an element matching selector. Any error or panic raised while
// instantiating or rendering counts as a non-match. Candidates that are
// not view classes are not rendered at all.
func ViewHasElement(r Renderer, v module.Value, key, selector string) (has bool) {
	if r == nil || !IsView(v) {
		return false
	}
	defer func() {
		if recover() != nil {
			has = false
		}
	}()
	ok, err := r.Render(key, selector)
	return err == nil && ok
}
