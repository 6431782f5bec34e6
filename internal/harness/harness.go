package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/roach88/plugmods/internal/catalogue"
	"github.com/roach88/plugmods/internal/finder"
	"github.com/roach88/plugmods/internal/snapshot"
)

// Harness runs scenarios. The zero value is not usable; use New.
type Harness struct {
	logger  *slog.Logger
	catOpts catalogue.Options
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to each run's finder context.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// WithCatalogueOptions sets the hooks and renderer catalogue entries
// compile against.
func WithCatalogueOptions(opts catalogue.Options) Option {
	return func(h *Harness) {
		h.catOpts = opts
	}
}

// New creates a harness. Logs are discarded unless WithLogger is given.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(scenario)
}

// Run executes a test scenario and returns the result.
//
// Each scenario gets a fresh registry and context.
//
// Execution flow:
// 1. Decode the snapshot into a registry
// 2. Compile the catalogue and install its detectives
// 3. Apply hand definitions
// 4. Run the context to a fix point
// 5. Evaluate expectations against the report
//
// An error means the scenario could not run; failed expectations are
// reported in the Result.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	snap, err := loadSnapshot(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	cat, err := h.loadCatalogue(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	opts := []finder.Option{finder.WithLogger(h.logger.With("scenario", scenario.Name))}
	if scenario.Exclude != nil {
		opts = append(opts, finder.WithExcludedPrefixes(scenario.Exclude...))
	}
	ctx := finder.New(snap.Registry, opts...)

	if err := cat.Install(ctx); err != nil {
		return nil, fmt.Errorf("scenario %s: install catalogue: %w", scenario.Name, err)
	}
	for _, d := range scenario.Define {
		if err := ctx.Define(d.Alias, d.Target); err != nil {
			return nil, fmt.Errorf("scenario %s: define %s: %w", scenario.Name, d.Alias, err)
		}
	}

	report := ctx.Run().Report()

	result := NewResult()
	result.Report = report
	for _, msg := range EvaluateExpectations(report, scenario.Expect) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"resolved", len(report.Resolved),
		"not_found", len(report.NotFound),
	)
	return result, nil
}

func loadSnapshot(s *Scenario) (*snapshot.Snapshot, error) {
	if s.Snapshot != "" {
		return snapshot.Load(s.Snapshot)
	}
	data, err := yaml.Marshal(&s.Registry)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	snap, err := snapshot.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return snap, nil
}

func (h *Harness) loadCatalogue(s *Scenario) (*catalogue.Catalogue, error) {
	var (
		cat  *catalogue.Catalogue
		errs []error
	)
	if s.CataloguePath != "" {
		cat, errs = catalogue.LoadPath(s.CataloguePath, h.catOpts, catalogue.CollectAll)
	} else {
		cat, errs = catalogue.CompileString(s.Catalogue, h.catOpts, catalogue.CollectAll)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("catalogue: %w", errors.Join(errs...))
	}
	return cat, nil
}
