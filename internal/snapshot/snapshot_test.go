package snapshot

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plugmods/internal/finder"
	"github.com/roach88/plugmods/internal/module"
	"github.com/roach88/plugmods/internal/testutil"
)

const sample = `
modules:
  a1b2c3:
    $bases: [Backbone.Collection]
    model: { $ref: de369/d86c0 }
    comparator: position
  de369/d86c0:
    $func: "function(){return r.apply(this,arguments)}"
    $name: Media
    prototype:
      $bases: [Backbone.Model]
      defaults: { cid: "", duration: 0 }
    TYPE: 1
  de369/render:
    $ref: de369/d86c0
    $path: prototype.defaults
  hbs!templates/dialog: "<div class=\"dialog\"></div>"
`

func TestDecode(t *testing.T) {
	snap, err := Decode([]byte(sample))
	require.NoError(t, err)

	reg := snap.Registry
	assert.Equal(t, []string{"a1b2c3", "de369/d86c0", "de369/render", "hbs!templates/dialog"}, reg.Keys())

	media, _ := reg.Get("de369/d86c0")
	fn, ok := module.AsFunc(media)
	require.True(t, ok)
	assert.Equal(t, "Media", fn.Name)
	assert.Equal(t, module.Number(1), module.Get(media, "TYPE"))
	assert.Equal(t, module.Number(0), module.Lookup(media, "prototype.defaults.duration"))
	assert.Equal(t, []string{"Backbone.Model"}, fn.Proto.Bases)

	coll, _ := reg.Get("a1b2c3")
	assert.True(t, module.InstanceOf(coll, "Backbone.Collection"))
	assert.True(t, module.Same(media, module.Get(coll, "model")), "$ref must share identity")
	assert.Equal(t, module.String("position"), module.Get(coll, "comparator"))

	defaults, _ := reg.Get("de369/render")
	assert.True(t, module.Same(module.Lookup(media, "prototype.defaults"), defaults))

	tpl, _ := reg.Get("hbs!templates/dialog")
	assert.Equal(t, module.String(`<div class="dialog"></div>`), tpl)

	assert.Len(t, snap.Digest, 64)
}

func TestDecode_Scalars(t *testing.T) {
	snap, err := Decode([]byte(`
modules:
  s: hello
  n: 16
  f: 1.5
  neg: -3
  nan: .nan
  t: true
  z: null
  list: [1, two, false]
`))
	require.NoError(t, err)

	get := func(k string) module.Value {
		v, _ := snap.Registry.Get(k)
		return v
	}
	assert.Equal(t, module.String("hello"), get("s"))
	assert.Equal(t, module.Number(16), get("n"))
	assert.Equal(t, module.Number(1.5), get("f"))
	assert.Equal(t, module.Number(-3), get("neg"))
	assert.True(t, math.IsNaN(float64(get("nan").(module.Number))))
	assert.Equal(t, module.Bool(true), get("t"))
	assert.Equal(t, module.Null{}, get("z"))
	assert.Equal(t, module.NewArray(module.Number(1), module.String("two"), module.Bool(false)), get("list"))
}

func TestDecode_JSON(t *testing.T) {
	snap, err := Decode([]byte(`{"modules": {
		"k1": {"$func": "function(){}", "prototype": {"render": {"$func": "function(){return this}"}}},
		"k2": {"view": {"$ref": "k1"}}
	}}`))
	require.NoError(t, err)

	k1, _ := snap.Registry.Get("k1")
	k2, _ := snap.Registry.Get("k2")
	assert.True(t, module.IsFunc(module.Lookup(k1, "prototype.render")))
	assert.True(t, module.Same(k1, module.Get(k2, "view")))
}

func TestDecode_AnchorsShareIdentity(t *testing.T) {
	snap, err := Decode([]byte(`
modules:
  a:
    shared: &shared { x: 1 }
  b:
    again: *shared
`))
	require.NoError(t, err)

	a, _ := snap.Registry.Get("a")
	b, _ := snap.Registry.Get("b")
	assert.True(t, module.Same(module.Get(a, "shared"), module.Get(b, "again")))
}

func TestDecode_ChainedAndCircularReferences(t *testing.T) {
	snap, err := Decode([]byte(`
modules:
  first: { $ref: second }
  second: { $ref: third }
  third:
    self: { $ref: third }
`))
	require.NoError(t, err)

	third, _ := snap.Registry.Get("third")
	first, _ := snap.Registry.Get("first")
	assert.True(t, module.Same(third, first))
	assert.True(t, module.Same(third, module.Get(third, "self")))
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", ``, "empty document"},
		{"not a mapping", `- a`, "expected a mapping"},
		{"unknown field", "modules: {}\nextra: 1", "unknown field"},
		{"missing modules", "{}", "field is required"},
		{"dangling ref", "modules:\n  a: { x: { $ref: nope } }", `unknown registry key "nope"`},
		{"ref loop", "modules:\n  a: { $ref: b }\n  b: { $ref: a }", "never resolves"},
		{"bad path", "modules:\n  a: { x: 1 }\n  b: { $ref: a, $path: y.z }", `path "y.z" never resolves`},
		{"ref with members", "modules:\n  a: {}\n  b: { $ref: a, x: 1 }", "cannot be combined"},
		{"bases on func", "modules:\n  a: { $func: f, $bases: [X] }", "not allowed on a function"},
		{"scalar prototype", "modules:\n  a: { $func: f, prototype: 3 }", "prototype must be an object"},
		{"duplicate key", "modules:\n  a: 1\n  a: 2", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeError_Line(t *testing.T) {
	_, err := Decode([]byte("modules:\n  a:\n    x: { $ref: nope }\n"))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "modules.a.x", de.Path)
	assert.Equal(t, 3, de.Line)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	snap, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Registry.Len())

	again, err := Decode([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, again.Digest, snap.Digest)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	media := testutil.ModelClass(module.F("duration", module.Number(0)))
	media.Name = "Media"
	view := testutil.ViewClass(module.F("className", module.String("dialog dialog-media")))
	coll := testutil.CollectionOf(media, module.F("ratio", module.Number(0.75)))
	inst := testutil.ModelInstance(module.F("title", module.String("multi\nline")))
	inst.Proto = media.Proto // instance of Media, reached before Media below

	reg := finder.NewMapRegistry()
	reg.Set("inst", inst)
	reg.Set("media", media)
	reg.Set("coll", coll)
	reg.Set("view", view)
	reg.Set("alias/media", media)
	reg.Set("list", module.NewArray(view, module.Null{}, module.Bool(true)))

	data, err := Marshal(reg)
	require.NoError(t, err)

	snap, err := Decode(data)
	require.NoError(t, err, string(data))

	got := snap.Registry
	assert.Equal(t, reg.Keys(), got.Keys())
	for _, key := range reg.Keys() {
		want, _ := reg.Get(key)
		have, _ := got.Get(key)
		assert.Equal(t, module.Fingerprint(want), module.Fingerprint(have), key)
	}

	gMedia, _ := got.Get("media")
	gAlias, _ := got.Get("alias/media")
	gColl, _ := got.Get("coll")
	gInst, _ := got.Get("inst")
	gView, _ := got.Get("view")
	gList, _ := got.Get("list")
	assert.True(t, module.Same(gMedia, gAlias))
	assert.True(t, module.Same(gMedia, module.Get(gColl, "model")))
	assert.True(t, module.Same(module.Get(gMedia, "prototype"), gInst.(*module.Object).Proto))
	assert.True(t, module.Same(gView, module.Get(gList, "0")))
	assert.Equal(t, "Media", gMedia.(*module.Func).Name)
}

func TestEncode_CycleThroughPrototypeIsReferenced(t *testing.T) {
	ctor := testutil.Fn("function(){}")
	proto := module.NewObject(module.F("constructor", ctor))
	ctor.WithProto(proto)

	reg := finder.NewMapRegistry()
	reg.Set("ctor", ctor)

	data, err := Marshal(reg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "$ref: ctor")

	snap, err := Decode(data)
	require.NoError(t, err)
	got, _ := snap.Registry.Get("ctor")
	assert.True(t, module.Same(got, module.Lookup(got, "prototype.constructor")))
}
