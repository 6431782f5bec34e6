package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/roach88/plugmods/internal/predicate"
)

// PageRenderer renders view classes inside a session's page. It
// implements predicate.Renderer for catalogue element conditions.
type PageRenderer struct {
	ctx     context.Context
	session *Session
}

var _ predicate.Renderer = (*PageRenderer)(nil)

// Renderer returns a renderer bound to ctx.
func (s *Session) Renderer(ctx context.Context) *PageRenderer {
	return &PageRenderer{ctx: ctx, session: s}
}

// Render instantiates the view class registered under key against a
// detached container, renders it and reports whether an element matching
// selector appeared. The view is destroyed afterwards; no page element is
// removed.
func (r *PageRenderer) Render(key, selector string) (bool, error) {
	s := r.session
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return false, errors.New("browser: session closed")
	}
	res, err := s.page.Context(r.ctx).Evaluate(&rod.EvalOptions{
		JS: renderJS,
		JSArgs: []interface{}{map[string]interface{}{
			"require":  s.cfg.requireExpr(),
			"key":      key,
			"selector": selector,
		}},
		ByValue: true,
	})
	if err != nil {
		return false, fmt.Errorf("render %s: %w", key, err)
	}
	return res.Value.Bool(), nil
}
