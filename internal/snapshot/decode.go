package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/plugmods/internal/finder"
	"github.com/roach88/plugmods/internal/module"
)

// Reserved mapping keys.
const (
	KeyFunc  = "$func"
	KeyName  = "$name"
	KeyBases = "$bases"
	KeyProto = "$proto"
	KeyRef   = "$ref"
	KeyPath  = "$path"
)

// Snapshot is a decoded registry together with the digest of the bytes it
// was decoded from.
type Snapshot struct {
	Registry *finder.MapRegistry
	Digest   string
}

// DecodeError reports a malformed snapshot document.
type DecodeError struct {
	// Path locates the offending value, e.g. "modules.de369/a.prototype".
	Path string

	// Line is the 1-based source line, or 0 when unknown.
	Line int

	Message string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Load reads a snapshot file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	snap, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// Decode parses a YAML or JSON snapshot document.
func Decode(data []byte) (*Snapshot, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &DecodeError{Path: "modules", Message: "empty document"}
		}
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &DecodeError{Path: "(root)", Line: root.Line, Message: "expected a mapping"}
	}

	var modules *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if key != "modules" {
			return nil, &DecodeError{Path: key, Line: root.Content[i].Line, Message: "unknown field"}
		}
		modules = root.Content[i+1]
	}
	if modules == nil {
		return nil, &DecodeError{Path: "modules", Message: "field is required"}
	}

	d := &decoder{
		registry: finder.NewMapRegistry(),
		entries:  make(map[string]module.Value),
		memo:     make(map[*yaml.Node]module.Value),
	}
	if err := d.decodeModules(modules); err != nil {
		return nil, err
	}
	if err := d.link(); err != nil {
		return nil, err
	}

	return &Snapshot{
		Registry: d.registry,
		Digest:   module.Digest(module.DomainSnapshot, data),
	}, nil
}

// fixup is a $ref waiting for its target.
type fixup struct {
	path   string
	line   int
	key    string
	member string
	assign func(module.Value) error
}

type decoder struct {
	registry *finder.MapRegistry
	entries  map[string]module.Value
	memo     map[*yaml.Node]module.Value
	fixups   []fixup
}

func (d *decoder) decodeModules(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return &DecodeError{Path: "modules", Line: n.Line, Message: "expected a mapping of registry keys"}
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		path := "modules." + key
		if _, dup := d.entries[key]; dup {
			return &DecodeError{Path: path, Line: n.Content[i].Line, Message: "duplicate registry key"}
		}
		// Reserve the position so enumeration follows the document.
		d.registry.Set(key, nil)
		d.entries[key] = nil

		err := d.value(n.Content[i+1], path, func(v module.Value) error {
			d.entries[key] = v
			d.registry.Set(key, v)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// value decodes n and hands the result to assign, immediately or, for a
// reference, once the target is known.
func (d *decoder) value(n *yaml.Node, path string, assign func(module.Value) error) error {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if v, ok := d.memo[n]; ok {
		return assign(v)
	}

	switch n.Kind {
	case yaml.ScalarNode:
		v, err := scalar(n, path)
		if err != nil {
			return err
		}
		return assign(v)

	case yaml.SequenceNode:
		arr := &module.Array{Items: make([]module.Value, len(n.Content))}
		d.memo[n] = arr
		for i, item := range n.Content {
			err := d.value(item, path+"."+strconv.Itoa(i), func(v module.Value) error {
				arr.Items[i] = v
				return nil
			})
			if err != nil {
				return err
			}
		}
		return assign(arr)

	case yaml.MappingNode:
		if ref, ok := lookupKey(n, KeyRef); ok {
			return d.reference(n, ref, path, assign)
		}
		if _, ok := lookupKey(n, KeyFunc); ok {
			fn, err := d.function(n, path)
			if err != nil {
				return err
			}
			return assign(fn)
		}
		obj, err := d.object(n, path)
		if err != nil {
			return err
		}
		return assign(obj)
	}
	return &DecodeError{Path: path, Line: n.Line, Message: "unsupported node"}
}

func (d *decoder) reference(n, ref *yaml.Node, path string, assign func(module.Value) error) error {
	f := fixup{path: path, line: n.Line, key: ref.Value, assign: assign}
	for i := 0; i+1 < len(n.Content); i += 2 {
		switch name := n.Content[i].Value; name {
		case KeyRef:
		case KeyPath:
			f.member = n.Content[i+1].Value
		default:
			return &DecodeError{Path: path, Line: n.Content[i].Line, Message: fmt.Sprintf("%s cannot be combined with %q", KeyRef, name)}
		}
	}
	if ref.Kind != yaml.ScalarNode || ref.Value == "" {
		return &DecodeError{Path: path, Line: ref.Line, Message: KeyRef + " must name a registry key"}
	}
	d.fixups = append(d.fixups, f)
	return nil
}

func (d *decoder) function(n *yaml.Node, path string) (*module.Func, error) {
	fn := &module.Func{Statics: module.NewObject()}
	d.memo[n] = fn
	for i := 0; i+1 < len(n.Content); i += 2 {
		name, val := n.Content[i].Value, n.Content[i+1]
		switch name {
		case KeyFunc:
			if val.Kind != yaml.ScalarNode {
				return nil, &DecodeError{Path: path, Line: val.Line, Message: KeyFunc + " must be the function source"}
			}
			fn.Source = val.Value
		case KeyName:
			fn.Name = val.Value
		case "prototype":
			err := d.value(val, path+".prototype", func(v module.Value) error {
				proto, ok := module.AsObject(v)
				if !ok {
					return &DecodeError{Path: path + ".prototype", Line: val.Line, Message: "prototype must be an object"}
				}
				fn.Proto = proto
				return nil
			})
			if err != nil {
				return nil, err
			}
		case KeyBases, KeyProto, KeyPath:
			return nil, &DecodeError{Path: path, Line: n.Content[i].Line, Message: fmt.Sprintf("%q is not allowed on a function", name)}
		default:
			if err := d.member(fn.Statics, name, val, path); err != nil {
				return nil, err
			}
		}
	}
	return fn, nil
}

func (d *decoder) object(n *yaml.Node, path string) (*module.Object, error) {
	obj := module.NewObject()
	d.memo[n] = obj
	for i := 0; i+1 < len(n.Content); i += 2 {
		name, val := n.Content[i].Value, n.Content[i+1]
		switch name {
		case KeyBases:
			var bases []string
			if err := val.Decode(&bases); err != nil {
				return nil, &DecodeError{Path: path, Line: val.Line, Message: KeyBases + " must be a list of names"}
			}
			obj.Bases = bases
		case KeyProto:
			err := d.value(val, path+"."+KeyProto, func(v module.Value) error {
				proto, ok := module.AsObject(v)
				if !ok {
					return &DecodeError{Path: path + "." + KeyProto, Line: val.Line, Message: "prototype must be an object"}
				}
				obj.Proto = proto
				return nil
			})
			if err != nil {
				return nil, err
			}
		case KeyName, KeyPath:
			return nil, &DecodeError{Path: path, Line: n.Content[i].Line, Message: fmt.Sprintf("%q is only allowed with %s or %s", name, KeyFunc, KeyRef)}
		default:
			if err := d.member(obj, name, val, path); err != nil {
				return nil, err
			}
		}
	}
	return obj, nil
}

func (d *decoder) member(obj *module.Object, name string, val *yaml.Node, path string) error {
	obj.Set(name, nil)
	return d.value(val, path+"."+name, func(v module.Value) error {
		obj.Set(name, v)
		return nil
	})
}

// link resolves references. A reference whose target is itself pending
// waits for a later round; a round without progress leaves only dangling
// or circular references.
func (d *decoder) link() error {
	pending := d.fixups
	for len(pending) > 0 {
		var next []fixup
		for _, f := range pending {
			target, ok := d.entries[f.key]
			if !ok {
				return &DecodeError{Path: f.path, Line: f.line, Message: fmt.Sprintf("reference to unknown registry key %q", f.key)}
			}
			if f.member != "" {
				target = module.Lookup(target, f.member)
			}
			if target == nil {
				next = append(next, f)
				continue
			}
			if err := f.assign(target); err != nil {
				return err
			}
		}
		if len(next) == len(pending) {
			f := next[0]
			msg := fmt.Sprintf("reference to %q never resolves", f.key)
			if f.member != "" {
				msg = fmt.Sprintf("reference to %q path %q never resolves", f.key, f.member)
			}
			return &DecodeError{Path: f.path, Line: f.line, Message: msg}
		}
		pending = next
	}
	return nil
}

func scalar(n *yaml.Node, path string) (module.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return module.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, &DecodeError{Path: path, Line: n.Line, Message: err.Error()}
		}
		return module.Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, &DecodeError{Path: path, Line: n.Line, Message: err.Error()}
		}
		return module.Number(f), nil
	}
	return module.String(n.Value), nil
}

func lookupKey(n *yaml.Node, name string) (*yaml.Node, bool) {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == name {
			return n.Content[i+1], true
		}
	}
	return nil, false
}

// addressable reports whether name can be addressed by a $path segment.
func addressable(name string) bool {
	return name != "" && !strings.Contains(name, ".")
}
