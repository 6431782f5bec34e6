package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/plugmods/internal/finder"
	"github.com/roach88/plugmods/internal/module"
)

// address is where a composite value is first reachable: a registry key
// and a member path below it ("" for the entry itself).
type address struct {
	key  string
	path string
}

func (a address) child(name string) (address, bool) {
	if !addressable(name) {
		return address{}, false
	}
	if a.path == "" {
		return address{key: a.key, path: name}, true
	}
	return address{key: a.key, path: a.path + "." + name}, true
}

// Marshal encodes reg as a YAML snapshot.
func Marshal(reg finder.Registry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, reg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes reg as a YAML snapshot. Each composite value is written
// in full once, at the first address it is reachable from in key order,
// and as a $ref everywhere else.
func Encode(w io.Writer, reg finder.Registry) error {
	e := &encoder{
		reg:       reg,
		addresses: make(map[module.Value]address),
		seen:      make(map[module.Value]bool),
		active:    make(map[module.Value]bool),
	}

	keys := reg.Keys()
	for _, key := range keys {
		v, _ := reg.Get(key)
		e.assign(v, address{key: key}, true)
	}

	modules := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range keys {
		v, _ := reg.Get(key)
		node, err := e.node(v, address{key: key}, true)
		if err != nil {
			return fmt.Errorf("modules.%s: %w", key, err)
		}
		modules.Content = append(modules.Content, strNode(key), node)
	}

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{
		Kind:    yaml.MappingNode,
		Content: []*yaml.Node{strNode("modules"), modules},
	}}}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return enc.Close()
}

type encoder struct {
	reg       finder.Registry
	addresses map[module.Value]address
	seen      map[module.Value]bool
	active    map[module.Value]bool
}

// assign walks v in the same order node does and records the first
// addressable location of every composite value.
func (e *encoder) assign(v module.Value, at address, ok bool) {
	if !module.IsReference(v) {
		return
	}
	if _, done := e.addresses[v]; done {
		return
	}
	if ok {
		e.addresses[v] = at
	} else {
		if e.seen[v] {
			return
		}
		e.seen[v] = true
	}

	each(v, func(name string, child module.Value) {
		if !ok {
			e.assign(child, address{}, false)
			return
		}
		sub, subOK := at.child(name)
		e.assign(child, sub, subOK)
	})
}

// each visits the members of v that node writes, with the member path
// segment that addresses them. An Object prototype has no member path.
func each(v module.Value, visit func(name string, child module.Value)) {
	switch val := v.(type) {
	case *module.Array:
		for i, item := range val.Items {
			visit(strconv.Itoa(i), item)
		}
	case *module.Object:
		for _, name := range val.Keys() {
			child, _ := val.Own(name)
			visit(name, child)
		}
		if val.Proto != nil {
			visit("", val.Proto)
		}
	case *module.Func:
		if val.Proto != nil {
			visit("prototype", val.Proto)
		}
		for _, name := range val.Statics.Keys() {
			child, _ := val.Statics.Own(name)
			visit(name, child)
		}
	}
}

func (e *encoder) node(v module.Value, at address, ok bool) (*yaml.Node, error) {
	switch val := v.(type) {
	case nil, module.Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case module.String:
		return strNode(string(val)), nil
	case module.Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(bool(val))}, nil
	case module.Number:
		return numberNode(float64(val)), nil
	}

	if home, has := e.addresses[v]; has && (!ok || home != at) {
		return refNode(home), nil
	}
	if e.active[v] {
		return nil, fmt.Errorf("cycle through a member that cannot be referenced")
	}
	e.active[v] = true
	defer delete(e.active, v)

	out := &yaml.Node{Kind: yaml.MappingNode}
	if arr, isArr := v.(*module.Array); isArr {
		out.Kind = yaml.SequenceNode
		for i, item := range arr.Items {
			sub, subOK := at.child(strconv.Itoa(i))
			n, err := e.node(item, sub, ok && subOK)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, n)
		}
		return out, nil
	}

	if fn, isFn := v.(*module.Func); isFn {
		out.Content = append(out.Content, strNode(KeyFunc), literalNode(fn.Source))
		if fn.Name != "" {
			out.Content = append(out.Content, strNode(KeyName), strNode(fn.Name))
		}
	}
	if obj, isObj := v.(*module.Object); isObj && len(obj.Bases) > 0 {
		bases := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, b := range obj.Bases {
			bases.Content = append(bases.Content, strNode(b))
		}
		out.Content = append(out.Content, strNode(KeyBases), bases)
	}

	var err error
	each(v, func(name string, child module.Value) {
		if err != nil {
			return
		}
		label := name
		if name == "" {
			label = KeyProto
		}
		sub, subOK := at.child(name)
		var n *yaml.Node
		n, err = e.node(child, sub, ok && subOK)
		if err == nil {
			out.Content = append(out.Content, strNode(label), n)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func refNode(at address) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
	n.Content = append(n.Content, strNode(KeyRef), strNode(at.key))
	if at.path != "" {
		n.Content = append(n.Content, strNode(KeyPath), strNode(at.path))
	}
	return n
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// literalNode writes multi-line function sources as block literals.
func literalNode(s string) *yaml.Node {
	n := strNode(s)
	if bytes.ContainsRune([]byte(s), '\n') {
		n.Style = yaml.LiteralStyle
	}
	return n
}

func numberNode(f float64) *yaml.Node {
	switch {
	case math.IsNaN(f):
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: ".nan"}
	case math.IsInf(f, 1):
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: ".inf"}
	case math.IsInf(f, -1):
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: "-.inf"}
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatFloat(f, 'f', -1, 64)}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(f, 'g', -1, 64)}
}
