package catalogue

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/plugmods/internal/finder"
	"github.com/roach88/plugmods/internal/module"
	"github.com/roach88/plugmods/internal/predicate"
)

// Options supplies the Go side of a catalogue.
type Options struct {
	// Setups and Cleanups hold the hooks entries may name in setup and
	// cleanup.
	Setups   map[string]finder.SetupFunc
	Cleanups map[string]finder.CleanupFunc

	// Renderer backs element conditions. Without one they never hold.
	Renderer predicate.Renderer
}

// Entry is one compiled catalogue entry.
type Entry struct {
	Name      string
	Detective finder.Detective

	// Needs lists the prerequisites the detective requires before it can
	// run, in declaration order.
	Needs []string

	Pos token.Pos
}

// Catalogue is a compiled catalogue.
type Catalogue struct {
	Entries []Entry

	// Digest identifies the catalogue source.
	Digest string

	// FileCount is the number of CUE files the catalogue was loaded from.
	FileCount int
}

// Names returns the entry names in declaration order.
func (c *Catalogue) Names() []string {
	names := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		names[i] = e.Name
	}
	return names
}

// Install adds every entry to ctx in declaration order.
func (c *Catalogue) Install(ctx *finder.Context) error {
	var errs []error
	for _, e := range c.Entries {
		if err := ctx.Add(e.Name, e.Detective); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var entryFields = []string{"needs", "match", "both", "fetch", "action", "handler", "setup", "cleanup"}

var detectiveFields = []string{"match", "both", "fetch", "action", "handler"}

// Compile compiles the "module" struct of v. In FailFast mode it returns
// at the first error.
func Compile(v cue.Value, opts Options, mode LoadMode) (*Catalogue, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	modules := v.LookupPath(cue.ParsePath("module"))
	if !modules.Exists() {
		return nil, []error{&CompileError{Field: "module", Message: "no module entries declared", Pos: v.Pos()}}
	}

	iter, err := modules.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	cat := &Catalogue{}
	var errs []error
	for iter.Next() {
		entry, err := CompileEntry(iter.Value(), opts)
		if err != nil {
			errs = append(errs, err)
			if mode == FailFast {
				return cat, errs
			}
			continue
		}
		cat.Entries = append(cat.Entries, *entry)
	}

	for _, err := range checkCycles(cat.Entries) {
		errs = append(errs, err)
		if mode == FailFast {
			return cat, errs
		}
	}

	if len(cat.Entries) == 0 && len(errs) == 0 {
		errs = append(errs, &CompileError{Field: "module", Message: "no module entries declared", Pos: modules.Pos()})
	}
	return cat, errs
}

// CompileEntry compiles one entry. The entry name is the last selector of
// v's path, e.g. "plug/models/Media" for module."plug/models/Media".
func CompileEntry(v cue.Value, opts Options) (*Entry, error) {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return nil, &CompileError{Field: "module", Message: "entry has no name", Pos: v.Pos()}
	}
	name := label(sels[len(sels)-1])
	entry, err := compileEntry(name, v, opts)
	if err != nil {
		return nil, withEntry(err, name)
	}
	return entry, nil
}

func compileEntry(name string, v cue.Value, opts Options) (*Entry, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: "module", Message: "entry must be a struct", Pos: v.Pos()}
	}

	fields, err := fieldsOf(v, entryFields)
	if err != nil {
		return nil, err
	}

	var kind string
	for _, f := range detectiveFields {
		if _, ok := fields[f]; !ok {
			continue
		}
		if kind != "" {
			return nil, &CompileError{Field: f, Message: fmt.Sprintf("only one of %s may be set, found %s and %s", strings.Join(detectiveFields, ", "), kind, f), Pos: fields[f].Pos()}
		}
		kind = f
	}
	if kind == "" {
		return nil, &CompileError{Field: "module", Message: fmt.Sprintf("one of %s is required", strings.Join(detectiveFields, ", ")), Pos: v.Pos()}
	}

	var needs []string
	if nv, ok := fields["needs"]; ok {
		if needs, err = stringsOf(nv, "needs"); err != nil {
			return nil, err
		}
	}

	setup, cleanup, err := hooks(fields, opts)
	if err != nil {
		return nil, err
	}

	entry := &Entry{Name: name, Pos: v.Pos()}
	var inner finder.Detective
	var intrinsic []string

	switch kind {
	case "match":
		pred, err := compileMatch(fields["match"], "match", opts)
		if err != nil {
			return nil, err
		}
		inner = finder.Match(pred)

	case "both":
		inner, err = compileBoth(fields["both"], opts)
		if err != nil {
			return nil, err
		}

	case "action":
		inner, err = compileAction(fields["action"])
		if err != nil {
			return nil, err
		}

	case "fetch":
		from, path, err := compileFetch(fields["fetch"])
		if err != nil {
			return nil, err
		}
		intrinsic = []string{from}
		entry.Needs = mergeNeeds(intrinsic, needs)
		entry.Detective = finder.Depends(entry.Needs, func(deps ...module.Value) finder.Detective {
			source := deps[0]
			return finder.Stepwise(setup, finder.Fetch(func(*finder.Context) module.Value {
				return module.Lookup(source, path)
			}), cleanup)
		})

	case "handler":
		manager, event, err := compileHandler(fields["handler"])
		if err != nil {
			return nil, err
		}
		intrinsic = []string{manager}
		inner = finder.FetchHandlerFrom(manager, event)
	}

	if entry.Detective == nil {
		entry.Needs = mergeNeeds(intrinsic, needs)
		stepped := finder.Stepwise(setup, inner, cleanup)
		entry.Detective = stepped
		if len(needs) > 0 {
			entry.Detective = finder.Depends(needs, func(...module.Value) finder.Detective { return stepped })
		}
	}

	if slices.Contains(entry.Needs, name) {
		return nil, &CompileError{Field: "needs", Message: "entry cannot need itself", Pos: v.Pos()}
	}
	return entry, nil
}

func hooks(fields map[string]cue.Value, opts Options) (finder.SetupFunc, finder.CleanupFunc, error) {
	var setup finder.SetupFunc
	var cleanup finder.CleanupFunc
	if sv, ok := fields["setup"]; ok {
		name, err := sv.String()
		if err != nil {
			return nil, nil, formatCUEError(err)
		}
		if setup = opts.Setups[name]; setup == nil {
			return nil, nil, &CompileError{Field: "setup", Message: fmt.Sprintf("unknown setup hook %q", name), Pos: sv.Pos()}
		}
	}
	if cv, ok := fields["cleanup"]; ok {
		name, err := cv.String()
		if err != nil {
			return nil, nil, formatCUEError(err)
		}
		if cleanup = opts.Cleanups[name]; cleanup == nil {
			return nil, nil, &CompileError{Field: "cleanup", Message: fmt.Sprintf("unknown cleanup hook %q", name), Pos: cv.Pos()}
		}
	}
	return setup, cleanup, nil
}

func compileBoth(v cue.Value, opts Options) (finder.Detective, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: "both", Message: "must be a list of two match conditions", Pos: v.Pos()}
	}
	var matchers []*finder.Matcher
	for iter.Next() {
		pred, err := compileMatch(iter.Value(), "both", opts)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, finder.Match(pred))
	}
	if len(matchers) != 2 {
		return nil, &CompileError{Field: "both", Message: fmt.Sprintf("must hold exactly two match conditions, found %d", len(matchers)), Pos: v.Pos()}
	}
	return finder.Both(matchers[0], matchers[1]), nil
}

func compileAction(v cue.Value) (finder.Detective, error) {
	fields, err := fieldsOf(v, []string{"method", "route", "prefix", "pattern"})
	if err != nil {
		return nil, withField(err, "action")
	}
	mv, ok := fields["method"]
	if !ok {
		return nil, &CompileError{Field: "action.method", Message: "method is required", Pos: v.Pos()}
	}
	method, err := mv.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var set []string
	for _, f := range []string{"route", "prefix", "pattern"} {
		if _, ok := fields[f]; ok {
			set = append(set, f)
		}
	}
	if len(set) != 1 {
		return nil, &CompileError{Field: "action", Message: "exactly one of route, prefix, pattern is required", Pos: v.Pos()}
	}

	value, err := fields[set[0]].String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	switch set[0] {
	case "route":
		return finder.MatchAction(method, value), nil
	case "prefix":
		return finder.MatchActionPrefix(method, value), nil
	}
	re, err := regexp.Compile(value)
	if err != nil {
		return nil, &CompileError{Field: "action.pattern", Message: err.Error(), Pos: fields["pattern"].Pos()}
	}
	return finder.MatchActionPattern(method, re), nil
}

func compileFetch(v cue.Value) (from, path string, err error) {
	fields, err := fieldsOf(v, []string{"from", "path"})
	if err != nil {
		return "", "", withField(err, "fetch")
	}
	fv, ok := fields["from"]
	if !ok {
		return "", "", &CompileError{Field: "fetch.from", Message: "from is required", Pos: v.Pos()}
	}
	if from, err = fv.String(); err != nil {
		return "", "", formatCUEError(err)
	}
	if pv, ok := fields["path"]; ok {
		if path, err = pv.String(); err != nil {
			return "", "", formatCUEError(err)
		}
	}
	return from, path, nil
}

// compileHandler accepts "Event:name" or {event, manager}.
func compileHandler(v cue.Value) (manager, event string, err error) {
	if s, serr := v.String(); serr == nil {
		return finder.EventManagerAlias, s, nil
	}
	fields, err := fieldsOf(v, []string{"event", "manager"})
	if err != nil {
		return "", "", withField(err, "handler")
	}
	ev, ok := fields["event"]
	if !ok {
		return "", "", &CompileError{Field: "handler.event", Message: "event is required", Pos: v.Pos()}
	}
	if event, err = ev.String(); err != nil {
		return "", "", formatCUEError(err)
	}
	manager = finder.EventManagerAlias
	if mv, ok := fields["manager"]; ok {
		if manager, err = mv.String(); err != nil {
			return "", "", formatCUEError(err)
		}
	}
	return manager, event, nil
}

// compileMatch turns a match struct into the conjunction of its
// conditions, in declaration order.
func compileMatch(v cue.Value, field string, opts Options) (predicate.Func, error) {
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: field, Message: "match must be a struct of conditions", Pos: v.Pos()}
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var preds []predicate.Func
	for iter.Next() {
		key := label(iter.Selector())
		val := iter.Value()
		at := field + "." + key

		switch key {
		case "callable", "has", "truthy", "protoCallable", "protoOwn", "bases":
			names, err := stringsOf(val, at)
			if err != nil {
				return nil, err
			}
			build := map[string]func(string) predicate.Func{
				"callable":      predicate.Callable,
				"has":           predicate.HasKey,
				"truthy":        predicate.Truthy,
				"protoCallable": predicate.ProtoCallable,
				"protoOwn":      predicate.ProtoOwn,
				"bases":         predicate.Instance,
			}[key]
			for _, n := range names {
				preds = append(preds, build(n))
			}

		case "equals":
			err := eachField(val, at, func(path string, sv cue.Value) error {
				want, err := scalarOf(sv, at+"."+path)
				if err != nil {
					return err
				}
				preds = append(preds, predicate.Equals(path, want))
				return nil
			})
			if err != nil {
				return nil, err
			}

		case "source":
			s, err := val.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			preds = append(preds, predicate.SourceContains("", s))

		case "contains", "seemsEqual":
			err := eachField(val, at, func(path string, sv cue.Value) error {
				s, err := sv.String()
				if err != nil {
					return formatCUEError(err)
				}
				if key == "contains" {
					preds = append(preds, predicate.SourceContains(path, s))
				} else {
					preds = append(preds, predicate.SourceSeemsEqual(path, s))
				}
				return nil
			})
			if err != nil {
				return nil, err
			}

		case "matches":
			err := eachField(val, at, func(path string, sv cue.Value) error {
				s, err := sv.String()
				if err != nil {
					return formatCUEError(err)
				}
				re, err := regexp.Compile(s)
				if err != nil {
					return &CompileError{Field: at + "." + path, Message: err.Error(), Pos: sv.Pos()}
				}
				preds = append(preds, predicate.SourceMatches(path, re))
				return nil
			})
			if err != nil {
				return nil, err
			}

		case "view", "dialog", "defaults":
			want, err := val.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			p := map[string]predicate.Func{
				"view":     predicate.View(),
				"dialog":   predicate.Dialog(),
				"defaults": predicate.Defaults(),
			}[key]
			if !want {
				p = predicate.Not(p)
			}
			preds = append(preds, p)

		case "attributes":
			names, err := stringsOf(val, at)
			if err != nil {
				return nil, err
			}
			preds = append(preds, predicate.Attributes(names...))

		case "collectionOf", "sameNamespaceAs", "element":
			s, err := val.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			switch key {
			case "collectionOf":
				preds = append(preds, predicate.CollectionOf(s))
			case "sameNamespaceAs":
				preds = append(preds, predicate.SameNamespaceAs(s))
			default:
				preds = append(preds, predicate.Element(opts.Renderer, s))
			}

		case "refEquals":
			err := eachField(val, at, func(path string, sv cue.Value) error {
				ref, err := sv.String()
				if err != nil {
					return formatCUEError(err)
				}
				alias, refPath := SplitRef(ref)
				preds = append(preds, predicate.RefEquals(path, alias, refPath))
				return nil
			})
			if err != nil {
				return nil, err
			}

		case "notRef":
			aliases, err := stringsOf(val, at)
			if err != nil {
				return nil, err
			}
			for _, a := range aliases {
				preds = append(preds, predicate.NotRef(a))
			}

		case "not":
			p, err := compileMatch(val, at, opts)
			if err != nil {
				return nil, err
			}
			preds = append(preds, predicate.Not(p))

		case "any":
			list, err := val.List()
			if err != nil {
				return nil, &CompileError{Field: at, Message: "must be a list of match conditions", Pos: val.Pos()}
			}
			var alts []predicate.Func
			for list.Next() {
				p, err := compileMatch(list.Value(), at, opts)
				if err != nil {
					return nil, err
				}
				alts = append(alts, p)
			}
			if len(alts) == 0 {
				return nil, &CompileError{Field: at, Message: "needs at least one alternative", Pos: val.Pos()}
			}
			preds = append(preds, predicate.Or(alts...))

		default:
			return nil, &CompileError{Field: at, Message: "unknown match condition", Pos: val.Pos()}
		}
	}

	if len(preds) == 0 {
		return nil, &CompileError{Field: field, Message: "needs at least one condition", Pos: v.Pos()}
	}
	return predicate.And(preds...), nil
}

// SplitRef splits "plug/core/Class.prototype.x" into the alias
// "plug/core/Class" and the member path "prototype.x". The path starts at
// the first dot after the last slash.
func SplitRef(ref string) (alias, path string) {
	slash := strings.LastIndex(ref, "/")
	dot := strings.Index(ref[slash+1:], ".")
	if dot < 0 {
		return ref, ""
	}
	i := slash + 1 + dot
	return ref[:i], ref[i+1:]
}

func mergeNeeds(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		for _, n := range l {
			if !slices.Contains(out, n) {
				out = append(out, n)
			}
		}
	}
	return out
}

// fieldsOf returns the regular fields of a struct, rejecting any label not
// in allowed.
func fieldsOf(v cue.Value, allowed []string) (map[string]cue.Value, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := make(map[string]cue.Value)
	for iter.Next() {
		name := label(iter.Selector())
		if !slices.Contains(allowed, name) {
			return nil, &CompileError{Field: name, Message: fmt.Sprintf("unknown field (allowed: %s)", strings.Join(allowed, ", ")), Pos: iter.Value().Pos()}
		}
		out[name] = iter.Value()
	}
	return out, nil
}

func eachField(v cue.Value, field string, fn func(name string, v cue.Value) error) error {
	if v.IncompleteKind() != cue.StructKind {
		return &CompileError{Field: field, Message: "must be a struct of member paths", Pos: v.Pos()}
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(label(iter.Selector()), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

// stringsOf accepts a string or a list of strings.
func stringsOf(v cue.Value, field string) ([]string, error) {
	if s, err := v.String(); err == nil {
		return []string{s}, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a string or a list of strings", Pos: v.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a string or a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

func scalarOf(v cue.Value, field string) (module.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return module.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		return module.Bool(b), formatCUEError(err)
	case cue.StringKind:
		s, err := v.String()
		return module.String(s), formatCUEError(err)
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		return module.Number(f), formatCUEError(err)
	}
	return nil, &CompileError{Field: field, Message: "must be a concrete string, number, bool or null", Pos: v.Pos()}
}

func label(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel && sel.ConstraintType() == 0 {
		return sel.Unquoted()
	}
	return sel.String()
}

func withField(err error, parent string) error {
	if ce, ok := err.(*CompileError); ok {
		ce.Field = parent + "." + ce.Field
	}
	return err
}
