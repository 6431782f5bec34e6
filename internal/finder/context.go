package finder

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/plugmods/internal/module"
	"github.com/roach88/plugmods/internal/predicate"
)

// DefaultExcludedPrefixes are the registry namespaces UnknownModules
// ignores: the application's own named modules and compiled templates.
var DefaultExcludedPrefixes = []string{"plug/", "hbs!"}

// maxAliasChain bounds alias chain walks. Define refuses to create
// cycles, so this only trips on a corrupted table.
const maxAliasChain = 256

var _ predicate.Resolver = (*Context)(nil)

// entry is the state of one named detective.
type entry struct {
	detective Detective
	attempted bool
	found     bool
	deferrals int
}

// Context resolves named detectives against a registry.
//
// INVARIANTS:
//   - names keeps declaration order; every pass walks it in that order
//   - the alias table is append-only; an alias maps to one target forever
//   - a module is claimed by at most one alias (by key and by identity)
//   - a detective is attempted at most once; deferral is not an attempt
type Context struct {
	registry Registry
	log      *slog.Logger

	names      []string
	detectives map[string]*entry

	aliases    map[string]string // alias -> registry key or other alias
	aliasOrder []string

	claimedKeys   map[string]string       // registry key -> alias
	claimedValues map[module.Value]string // module identity -> alias

	identity map[module.Value]string // module identity -> first key, for Fetch

	notFound []string
	order    map[string]int64
	clock    *Clock
	guard    *cycleGuard
	cycles   map[string]bool
	errs     []*ResolveError

	excluded        []string
	predicatePanics int
	ran             bool
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for per-attempt diagnostics.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// WithExcludedPrefixes replaces the namespaces UnknownModules ignores.
func WithExcludedPrefixes(prefixes ...string) Option {
	return func(c *Context) {
		c.excluded = slices.Clone(prefixes)
	}
}

// WithClock sets the resolution clock. Used in tests to start stamps at a
// known value.
func WithClock(clock *Clock) Option {
	return func(c *Context) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New creates a Context over reg. A nil reg is allowed: detectives can
// still be added, every Require yields absent and Run records a
// REGISTRY_UNAVAILABLE diagnostic. A nil *MapRegistry counts as nil.
func New(reg Registry, opts ...Option) *Context {
	if m, ok := reg.(*MapRegistry); ok && m == nil {
		reg = nil
	}
	c := &Context{
		registry:      reg,
		log:           slog.Default(),
		detectives:    make(map[string]*entry),
		aliases:       make(map[string]string),
		claimedKeys:   make(map[string]string),
		claimedValues: make(map[module.Value]string),
		order:         make(map[string]int64),
		clock:         NewClock(),
		guard:         newCycleGuard(),
		cycles:        make(map[string]bool),
		excluded:      slices.Clone(DefaultExcludedPrefixes),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add registers a detective under name. Adding a second detective under
// the same name is a catalogue bug and returns a DUPLICATE_ALIAS error.
func (c *Context) Add(name string, d Detective) error {
	if name == "" {
		return &ResolveError{Code: ErrCodeDetectiveFailed, Message: "detective name is empty"}
	}
	if d == nil {
		return &ResolveError{Code: ErrCodeDetectiveFailed, Alias: name, Message: "detective is nil"}
	}
	if _, exists := c.detectives[name]; exists {
		return newDuplicateAlias(name)
	}
	c.detectives[name] = &entry{detective: d}
	c.names = append(c.names, name)
	return nil
}

// MustAdd is like Add but panics on error. Use for catalogues built in
// code, where a duplicate is a programming error.
func (c *Context) MustAdd(name string, d Detective) *Context {
	if err := c.Add(name, d); err != nil {
		panic(err)
	}
	return c
}

// Require returns the module for name, resolving it on demand.
//
// Lookup order: a literal registry key named name, then the alias table
// (following chains), then the detective registered under name. The
// result is absent when nothing resolves; callers must always handle that.
func (c *Context) Require(name string) (module.Value, bool) {
	if c.registry == nil {
		return nil, false
	}
	if v, ok := c.literal(name); ok {
		return v, true
	}
	if target := c.ResolveName(name); target != name {
		if v, ok := c.Require(target); ok {
			return v, true
		}
	}
	return c.findModule(name)
}

// literal returns a truthy registry entry stored under key.
func (c *Context) literal(key string) (module.Value, bool) {
	v, ok := c.registry.Get(key)
	if !ok || !module.Truthy(v) {
		return nil, false
	}
	return v, true
}

// findModule attempts the detective registered under name.
func (c *Context) findModule(name string) (module.Value, bool) {
	e, ok := c.detectives[name]
	if !ok || e.attempted {
		return nil, false
	}
	if !c.guard.enter(name) {
		c.recordCycle(name)
		return nil, false
	}
	defer c.guard.leave(name)

	key, err := c.detect(name, e.detective)

	switch {
	case err == nil && key != "":
		if _, present := c.literal(key); !present {
			e.attempted = true
			c.notFound = append(c.notFound, name)
			c.record(&ResolveError{
				Code:    ErrCodeDetectiveFailed,
				Alias:   name,
				Message: fmt.Sprintf("detective returned key %q which the registry does not hold", key),
			})
			return nil, false
		}
		if derr := c.Define(name, key); derr != nil {
			e.attempted = true
			c.notFound = append(c.notFound, name)
			c.record(asResolveError(name, derr))
			return nil, false
		}
		e.attempted = true
		e.found = true
		c.order[name] = c.clock.Next()
		c.log.Debug("module resolved",
			"alias", name,
			"key", key,
			"order", c.order[name],
		)
		return c.Require(name)

	case errors.Is(err, ErrDeferred):
		e.deferrals++
		c.log.Debug("module deferred",
			"alias", name,
			"deferrals", e.deferrals,
		)
		return nil, false

	default:
		e.attempted = true
		c.notFound = append(c.notFound, name)
		if err != nil && !errors.Is(err, ErrNotFound) {
			c.record(asResolveError(name, err))
		}
		c.log.Debug("module not found", "alias", name)
		return nil, false
	}
}

// detect runs a detective, converting a panic into a DETECTIVE_PANIC
// error so the context stays consistent.
func (c *Context) detect(name string, d Detective) (key string, err error) {
	defer func() {
		if r := recover(); r != nil {
			key = ""
			err = newPanicError(name, r)
			c.log.Warn("detective panicked",
				"alias", name,
				"panic", r,
			)
		}
	}()
	return d.Detect(c)
}

// evaluate applies a predicate to one candidate; a panic is a non-match.
func (c *Context) evaluate(pred predicate.Func, v module.Value, key string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			c.predicatePanics++
			c.log.Debug("predicate panicked",
				"alias", c.current(),
				"key", key,
				"panic", r,
			)
		}
	}()
	return pred(v, key, c)
}

// Run attempts every declared detective. Passes over the declaration list
// repeat while a pass attempted something new, so the result does not
// depend on declaration order. Run is idempotent: later calls return
// immediately.
func (c *Context) Run() *Context {
	if c.ran {
		return c
	}
	if c.registry == nil {
		c.record(&ResolveError{
			Code:    ErrCodeRegistryUnavailable,
			Message: "no module registry; every require yields absent",
		})
		c.ran = true
		return c
	}

	passes := 0
	for {
		passes++
		before := c.attemptedCount()
		for _, name := range c.names {
			c.Require(name)
		}
		if c.attemptedCount() == before {
			break
		}
	}
	c.ran = true

	c.log.Info("resolution finished",
		"detectives", len(c.names),
		"resolved", c.resolvedCount(),
		"not_found", len(c.notFound),
		"deferred", len(c.Deferred()),
		"passes", passes,
	)
	return c
}

func (c *Context) attemptedCount() int {
	n := 0
	for _, e := range c.detectives {
		if e.attempted {
			n++
		}
	}
	return n
}

func (c *Context) resolvedCount() int {
	n := 0
	for _, e := range c.detectives {
		if e.found {
			n++
		}
	}
	return n
}

// Define records alias as a name for target, a registry key or another
// alias. Defining the same pair again is a no-op. Redefining alias to a
// different target, creating a chain back to alias, or claiming a module
// another alias already owns is an error and changes nothing.
func (c *Context) Define(alias, target string) error {
	if alias == "" || target == "" {
		return &ResolveError{Code: ErrCodeAliasConflict, Alias: alias, Message: "alias and target must be non-empty"}
	}
	if existing, ok := c.aliases[alias]; ok {
		if existing == target {
			return nil
		}
		return &ResolveError{
			Code:    ErrCodeAliasConflict,
			Alias:   alias,
			Message: fmt.Sprintf("already defined as %q, cannot redefine as %q", existing, target),
		}
	}
	if alias == target || c.ResolveName(target) == alias {
		return &ResolveError{
			Code:    ErrCodeAliasConflict,
			Alias:   alias,
			Message: fmt.Sprintf("defining %q as %q would form an alias cycle", alias, target),
		}
	}

	var claimed module.Value
	if c.registry != nil {
		if _, isAlias := c.aliases[target]; !isAlias {
			if v, ok := c.literal(target); ok {
				if owner, taken := c.claimOwner(target, v); taken && owner != alias {
					return &ResolveError{
						Code:    ErrCodeAlreadyClaimed,
						Alias:   alias,
						Message: fmt.Sprintf("module %q is already aliased as %q", target, owner),
					}
				}
				claimed = v
			}
		}
	}

	c.aliases[alias] = target
	c.aliasOrder = append(c.aliasOrder, alias)
	if claimed != nil {
		c.claimedKeys[target] = alias
		if module.IsReference(claimed) {
			c.claimedValues[claimed] = alias
		}
	}
	return nil
}

// claimOwner returns the alias that claimed key or the module v.
func (c *Context) claimOwner(key string, v module.Value) (string, bool) {
	if owner, ok := c.claimedKeys[key]; ok {
		return owner, true
	}
	if module.IsReference(v) {
		if owner, ok := c.claimedValues[v]; ok {
			return owner, true
		}
	}
	return "", false
}

// AliasOf returns the alias that claimed the registry entry under key.
func (c *Context) AliasOf(key string) (string, bool) {
	if c.registry == nil {
		return "", false
	}
	v, ok := c.literal(key)
	if !ok {
		return "", false
	}
	return c.claimOwner(key, v)
}

// isClaimed reports whether a registry entry must be skipped by scans:
// it is claimed, or it is an alias published by Register.
func (c *Context) isClaimed(key string, v module.Value) bool {
	if _, ok := c.claimOwner(key, v); ok {
		return true
	}
	_, isAlias := c.aliases[key]
	return isAlias
}

// ResolveName follows the alias chain from name and returns the final
// target. Names without an alias are returned unchanged.
func (c *Context) ResolveName(name string) string {
	cur := name
	for i := 0; i < maxAliasChain; i++ {
		next, ok := c.aliases[cur]
		if !ok {
			return cur
		}
		cur = next
	}
	return cur
}

// IsDefined reports whether Require(name) yields a module. It may trigger
// resolution.
func (c *Context) IsDefined(name string) bool {
	_, ok := c.Require(name)
	return ok
}

// IsInSameNamespace reports whether name and the name other resolves to
// share a namespace: everything before the last "/". It does not trigger
// resolution of other; an unresolved alias is compared as written.
func (c *Context) IsInSameNamespace(name, other string) bool {
	otherName := c.ResolveName(other)
	if otherName == "" {
		return false
	}
	return namespace(otherName) == namespace(name)
}

func namespace(full string) string {
	i := strings.LastIndex(full, "/")
	if i < 0 {
		return ""
	}
	return full[:i]
}

// UnknownModules lists registry keys, in enumeration order, that hold a
// module, are not claimed by any alias and are outside the excluded
// namespaces. It supports catalogue maintenance.
func (c *Context) UnknownModules() []string {
	out := []string{}
	if c.registry == nil {
		return out
	}
	for _, key := range c.registry.Keys() {
		if c.isExcluded(key) {
			continue
		}
		v, ok := c.literal(key)
		if !ok || c.isClaimed(key, v) {
			continue
		}
		out = append(out, key)
	}
	return out
}

func (c *Context) isExcluded(key string) bool {
	for _, p := range c.excluded {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// Register publishes every resolved alias into the registry, so the alias
// can be required through the host's own loader. The registry must be a
// Publisher.
func (c *Context) Register() error {
	if c.registry == nil {
		return &ResolveError{Code: ErrCodeRegistryUnavailable, Message: "no module registry to publish into"}
	}
	pub, ok := c.registry.(Publisher)
	if !ok {
		return &ResolveError{
			Code:    ErrCodeRegistryReadOnly,
			Message: fmt.Sprintf("registry %T does not accept new entries", c.registry),
		}
	}
	published := 0
	for _, alias := range c.aliasOrder {
		v, ok := c.Require(alias)
		if !ok {
			continue
		}
		pub.Set(alias, v)
		published++
	}
	c.log.Info("aliases registered", "count", published)
	return nil
}

// Load is the loader-plugin entry point: it returns the module for name or
// an error naming it.
func (c *Context) Load(name string) (module.Value, error) {
	if v, ok := c.Require(name); ok {
		return v, nil
	}
	return nil, fmt.Errorf("module %q not found", name)
}

// Names returns the detective names in declaration order.
func (c *Context) Names() []string {
	return slices.Clone(c.names)
}

// NotFound returns the names whose detectives ran and failed, in the
// order they failed.
func (c *Context) NotFound() []string {
	return append([]string{}, c.notFound...)
}

// Deferred returns, in declaration order, the names whose detectives were
// never attempted because a prerequisite never resolved, and which do not
// resolve some other way.
func (c *Context) Deferred() []string {
	out := []string{}
	for _, name := range c.names {
		if c.detectives[name].attempted {
			continue
		}
		if c.registry != nil {
			if _, ok := c.literal(name); ok {
				continue
			}
		}
		if _, ok := c.aliases[name]; ok {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Alias is one entry of the alias table.
type Alias struct {
	Name   string
	Target string
	Key    string // final registry key after following chains
}

// Aliases returns the alias table in definition order.
func (c *Context) Aliases() []Alias {
	out := make([]Alias, 0, len(c.aliasOrder))
	for _, name := range c.aliasOrder {
		out = append(out, Alias{
			Name:   name,
			Target: c.aliases[name],
			Key:    c.ResolveName(name),
		})
	}
	return out
}

// Order returns the resolution stamp of a name resolved by its detective.
func (c *Context) Order(name string) (int64, bool) {
	n, ok := c.order[name]
	return n, ok
}

// Errors returns the diagnostics recorded so far.
func (c *Context) Errors() []*ResolveError {
	return slices.Clone(c.errs)
}

// PredicatePanics returns how many candidate evaluations panicked.
func (c *Context) PredicatePanics() int {
	return c.predicatePanics
}

// Attempts reports whether the detective for name has been attempted and
// how many times it was deferred before that.
func (c *Context) Attempts(name string) (attempted bool, deferrals int) {
	e, ok := c.detectives[name]
	if !ok {
		return false, 0
	}
	return e.attempted, e.deferrals
}

func (c *Context) record(err *ResolveError) {
	c.errs = append(c.errs, err)
	c.log.Warn("resolution diagnostic",
		"code", err.Code,
		"alias", err.Alias,
		"message", err.Message,
	)
}

func (c *Context) recordCycle(name string) {
	if c.cycles[name] {
		return
	}
	c.cycles[name] = true
	c.record(newCycleError(name, c.guard.path(name)))
}

// current returns the innermost running detective name.
func (c *Context) current() string {
	if n := c.guard.depth(); n > 0 {
		return c.guard.stack[n-1]
	}
	return ""
}

func asResolveError(name string, err error) *ResolveError {
	var re *ResolveError
	if errors.As(err, &re) {
		if re.Alias == "" {
			re.Alias = name
		}
		return re
	}
	return &ResolveError{
		Code:    ErrCodeDetectiveFailed,
		Alias:   name,
		Message: "detective failed",
		Err:     err,
	}
}
