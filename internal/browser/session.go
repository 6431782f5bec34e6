package browser

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/roach88/plugmods/internal/snapshot"
)

//go:embed capture.js
var captureJS string

//go:embed render.js
var renderJS string

// Session is one application page in a connected browser.
//
// Thread-safety: Session methods are safe for concurrent use; page
// evaluations are serialized.
type Session struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// Open connects to (or launches) Chrome, opens cfg.URL and waits until
// the registry expression yields an object.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Session, error) {
	if cfg.URL == "" {
		return nil, errors.New("browser: url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{cfg: cfg, logger: logger}

	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		url, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		s.launcher = l
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		s.cleanupLauncher()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: cfg.URL})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open %s: %w", cfg.URL, err)
	}
	s.page = page

	timed := page.Context(ctx).Timeout(cfg.NavigationTimeout())
	defer timed.CancelTimeout()
	if err := timed.WaitLoad(); err != nil {
		s.Close()
		return nil, fmt.Errorf("load %s: %w", cfg.URL, err)
	}
	err = timed.Wait(&rod.EvalOptions{
		JS:      `(expr) => { try { const v = (0, eval)(expr); return !!v && typeof v === 'object'; } catch (e) { return false; } }`,
		JSArgs:  []interface{}{cfg.registryExpr()},
		ByValue: true,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("wait for registry %q: %w", cfg.registryExpr(), err)
	}

	logger.Info("browser session ready",
		"url", cfg.URL,
		"launched", s.launcher != nil,
	)
	return s, nil
}

// Capture serializes the page's module registry as a snapshot document
// (JSON, which the YAML snapshot decoder reads directly).
func (s *Session) Capture(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return nil, errors.New("browser: session closed")
	}
	res, err := s.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: captureJS,
		JSArgs: []interface{}{map[string]interface{}{
			"registry": s.cfg.registryExpr(),
			"bases":    s.cfg.Bases,
			"maxDepth": s.cfg.maxDepth(),
		}},
		ByValue: true,
	})
	if err != nil {
		return nil, fmt.Errorf("capture registry: %w", err)
	}
	if res == nil || res.Value.Nil() {
		return nil, errors.New("capture registry: no result")
	}
	data := []byte(res.Value.Str())
	s.logger.Debug("registry captured", "bytes", len(data))
	return data, nil
}

// CaptureSnapshot captures and decodes the registry.
func (s *Session) CaptureSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	data, err := s.Capture(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := snapshot.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode captured registry: %w", err)
	}
	return snap, nil
}

// Close closes the page and the browser, and kills a launched Chrome.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.page != nil {
		errs = append(errs, s.page.Close())
		s.page = nil
	}
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
		s.browser = nil
	}
	s.cleanupLauncher()
	return errors.Join(errs...)
}

func (s *Session) cleanupLauncher() {
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launcher = nil
	}
}
