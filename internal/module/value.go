package module

import (
	"math"
	"strconv"
	"strings"
)

// Value is a sealed interface over the shapes a module of the host
// application can take. Only Null, String, Number, Bool, *Array, *Object
// and *Func implement it.
//
// Composite values are pointers: two registry entries are "the same
// module" exactly when their Values compare equal with ==, which mirrors
// the identity semantics of the host runtime. A nil Value means
// "undefined" (an absent member), Null means an explicit null.
type Value interface {
	moduleValue() // Sealed - only these types implement it
}

// Null represents an explicit null member.
type Null struct{}

func (Null) moduleValue() {}

// String represents a string value.
type String string

func (String) moduleValue() {}

// Number represents a numeric value. The host runtime has a single
// floating point number type, so Number does too.
type Number float64

func (Number) moduleValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) moduleValue() {}

// Array represents an ordered list of values.
type Array struct {
	Items []Value
}

func (*Array) moduleValue() {}

// Object represents a plain object or a class instance.
//
// Fields keep their insertion order so that enumeration is deterministic.
// Proto is the prototype the object inherits members from (nil for plain
// objects) and Bases lists the names of the known base types the object
// is an instance of (e.g. "Backbone.Collection").
type Object struct {
	keys   []string
	fields map[string]Value

	Proto *Object
	Bases []string
}

func (*Object) moduleValue() {}

// Func represents a function or class constructor.
//
// Source is the textual source of the function as reported by the host.
// Statics holds members set on the function itself and Proto is the
// object reachable as `prototype`.
type Func struct {
	Name    string
	Source  string
	Statics *Object
	Proto   *Object
}

func (*Func) moduleValue() {}

// Field is a name/value pair for ordered Object construction.
type Field struct {
	Name  string
	Value Value
}

// F is a shorthand for Field.
// Example: NewObject(F("id", String("room")), F("render", NewFunc("function(){}")))
func F(name string, value Value) Field {
	return Field{Name: name, Value: value}
}

// NewObject creates an Object from ordered fields.
func NewObject(fields ...Field) *Object {
	obj := &Object{fields: make(map[string]Value, len(fields))}
	for _, f := range fields {
		obj.Set(f.Name, f.Value)
	}
	return obj
}

// NewFunc creates a Func with the given source and no members.
func NewFunc(source string) *Func {
	return &Func{Source: source}
}

// NewArray creates an Array from values.
func NewArray(items ...Value) *Array {
	return &Array{Items: items}
}

// Set assigns a field, appending the name to the enumeration order on
// first assignment.
func (o *Object) Set(name string, v Value) {
	if o.fields == nil {
		o.fields = make(map[string]Value)
	}
	if _, exists := o.fields[name]; !exists {
		o.keys = append(o.keys, name)
	}
	o.fields[name] = v
}

// Own returns an own field of the object (not inherited).
func (o *Object) Own(name string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.fields[name]
	return v, ok
}

// Keys returns the own field names in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of own fields.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// lookup walks the prototype chain. The depth bound protects against a
// malformed snapshot that links a prototype back to itself.
func (o *Object) lookup(name string) (Value, bool) {
	for cur, depth := o, 0; cur != nil && depth < 64; cur, depth = cur.Proto, depth+1 {
		if v, ok := cur.fields[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// WithProto sets the prototype object of a function and returns it.
func (f *Func) WithProto(proto *Object) *Func {
	f.Proto = proto
	return f
}

// WithStatics sets the static members of a function and returns it.
func (f *Func) WithStatics(statics *Object) *Func {
	f.Statics = statics
	return f
}

// Get returns the member `name` of v, following prototype chains, or nil
// when v has no such member. It never panics.
//
// For functions, "prototype" yields Proto, "name" yields the function
// name when no static member shadows it, and "length" is not modelled.
// For arrays, numeric names index Items and "length" yields the count.
func Get(v Value, name string) Value {
	switch val := v.(type) {
	case *Object:
		if val == nil {
			return nil
		}
		if m, ok := val.lookup(name); ok {
			return m
		}
	case *Func:
		if val == nil {
			return nil
		}
		if name == "prototype" {
			if val.Proto == nil {
				return nil
			}
			return val.Proto
		}
		if m, ok := val.Statics.lookup(name); ok {
			return m
		}
		if name == "name" && val.Name != "" {
			return String(val.Name)
		}
	case *Array:
		if val == nil {
			return nil
		}
		if name == "length" {
			return Number(len(val.Items))
		}
		if i, err := strconv.Atoi(name); err == nil && i >= 0 && i < len(val.Items) {
			return val.Items[i]
		}
	case String:
		if name == "length" {
			return Number(len(val))
		}
	}
	return nil
}

// Lookup follows a dot-separated member path from v. An empty path
// returns v itself. Missing intermediate members yield nil.
func Lookup(v Value, path string) Value {
	if path == "" {
		return v
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		cur = Get(cur, seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Has reports whether v has a member `name`, own or inherited, with the
// semantics of the `in` operator.
func Has(v Value, name string) bool {
	switch val := v.(type) {
	case *Object:
		_, ok := val.lookup(name)
		return ok
	case *Func:
		if val == nil {
			return false
		}
		if name == "prototype" {
			return val.Proto != nil
		}
		_, ok := val.Statics.lookup(name)
		return ok
	case *Array:
		return Get(val, name) != nil
	}
	return false
}

// HasOwn reports whether v has an own (not inherited) member `name`.
func HasOwn(v Value, name string) bool {
	switch val := v.(type) {
	case *Object:
		_, ok := val.Own(name)
		return ok
	case *Func:
		if val == nil {
			return false
		}
		if name == "prototype" {
			return val.Proto != nil
		}
		_, ok := val.Statics.Own(name)
		return ok
	}
	return false
}

// IsFunc reports whether v is a function.
func IsFunc(v Value) bool {
	f, ok := v.(*Func)
	return ok && f != nil
}

// IsObject reports whether v is an object.
func IsObject(v Value) bool {
	o, ok := v.(*Object)
	return ok && o != nil
}

// Len returns the number of own members of an object, items of an array,
// static members of a function or bytes of a string. Other values have
// length 0.
func Len(v Value) int {
	switch val := v.(type) {
	case *Object:
		return val.Len()
	case *Array:
		if val == nil {
			return 0
		}
		return len(val.Items)
	case *Func:
		if val == nil {
			return 0
		}
		return val.Statics.Len()
	case String:
		return len(val)
	}
	return 0
}

// AsFunc returns v as a function.
func AsFunc(v Value) (*Func, bool) {
	f, ok := v.(*Func)
	return f, ok && f != nil
}

// AsObject returns v as an object.
func AsObject(v Value) (*Object, bool) {
	o, ok := v.(*Object)
	return o, ok && o != nil
}

// Source returns the textual source of a function value.
func Source(v Value) (string, bool) {
	f, ok := AsFunc(v)
	if !ok {
		return "", false
	}
	return f.Source, true
}

// StringOf returns the string held by v, if v is a String.
func StringOf(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// Truthy reports whether v would be truthy in the host runtime.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return false
	case String:
		return val != ""
	case Number:
		return val != 0 && !math.IsNaN(float64(val))
	case Bool:
		return bool(val)
	case *Object:
		return val != nil
	case *Func:
		return val != nil
	case *Array:
		return val != nil
	}
	return false
}

// Same reports strict equality: identity for composite values and value
// equality for scalars.
func Same(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}

// IsReference reports whether v has identity (object, function or array).
func IsReference(v Value) bool {
	switch val := v.(type) {
	case *Object:
		return val != nil
	case *Func:
		return val != nil
	case *Array:
		return val != nil
	}
	return false
}

// InstanceOf reports whether v is an instance of the named base type,
// checking the object's own Bases and those of its prototype chain.
func InstanceOf(v Value, base string) bool {
	obj, ok := AsObject(v)
	if !ok {
		return false
	}
	for cur, depth := obj, 0; cur != nil && depth < 64; cur, depth = cur.Proto, depth+1 {
		for _, b := range cur.Bases {
			if b == base {
				return true
			}
		}
	}
	return false
}

// Kind returns a short name for the dynamic type of v.
func Kind(v Value) string {
	switch v.(type) {
	case nil:
		return "undefined"
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "boolean"
	case *Array:
		return "array"
	case *Object:
		return "object"
	case *Func:
		return "function"
	}
	return "unknown"
}
