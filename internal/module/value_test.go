package module

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Number(4)
	var _ Value = Bool(true)
	var _ Value = NewArray(String("a"))
	var _ Value = NewObject(F("key", String("value")))
	var _ Value = NewFunc("function(){}")
}

func TestObjectKeepsInsertionOrder(t *testing.T) {
	obj := NewObject(F("zebra", Number(1)), F("apple", Number(2)))
	obj.Set("mango", Number(3))
	obj.Set("zebra", Number(4))

	assert.Equal(t, []string{"zebra", "apple", "mango"}, obj.Keys())
	assert.Equal(t, Number(4), Get(obj, "zebra"))
	assert.Equal(t, 3, obj.Len())
}

func TestGet_PrototypeChain(t *testing.T) {
	render := NewFunc("function(){return this}")
	proto := NewObject(F("render", render))
	inst := NewObject(F("id", String("room")))
	inst.Proto = proto

	assert.Same(t, render, Get(inst, "render"))
	assert.Equal(t, String("room"), Get(inst, "id"))
	assert.Nil(t, Get(inst, "missing"))

	assert.True(t, Has(inst, "render"))
	assert.False(t, HasOwn(inst, "render"))
	assert.True(t, HasOwn(inst, "id"))
}

func TestGet_Func(t *testing.T) {
	proto := NewObject(F("render", NewFunc("function(){}")))
	ctor := NewFunc("function View(){}").
		WithProto(proto).
		WithStatics(NewObject(F("extend", NewFunc("function(){}"))))
	ctor.Name = "View"

	assert.Same(t, proto, Get(ctor, "prototype"))
	assert.True(t, IsFunc(Get(ctor, "extend")))
	assert.Equal(t, String("View"), Get(ctor, "name"))
	assert.True(t, Has(ctor, "prototype"))
	assert.True(t, HasOwn(ctor, "extend"))

	bare := NewFunc("function(){}")
	assert.Nil(t, Get(bare, "prototype"))
	assert.False(t, Has(bare, "prototype"))
}

func TestGet_Array(t *testing.T) {
	arr := NewArray(String("a"), String("b"))

	assert.Equal(t, Number(2), Get(arr, "length"))
	assert.Equal(t, String("b"), Get(arr, "1"))
	assert.Nil(t, Get(arr, "2"))
	assert.Nil(t, Get(arr, "-1"))
}

func TestAccessorsNeverPanic(t *testing.T) {
	var nilObj *Object
	var nilFunc *Func
	var nilArr *Array

	values := []Value{nil, Null{}, String(""), Number(0), Bool(false), nilObj, nilFunc, nilArr}
	for _, v := range values {
		assert.NotPanics(t, func() {
			Get(v, "x")
			Lookup(v, "a.b.c")
			Has(v, "x")
			HasOwn(v, "x")
			IsFunc(v)
			IsObject(v)
			Len(v)
			Source(v)
			Truthy(v)
			InstanceOf(v, "Backbone.View")
			Kind(v)
		})
	}
}

func TestLookup(t *testing.T) {
	row := NewFunc("function Row(){}")
	view := NewFunc("function View(){}").WithProto(NewObject(F("RowClass", row)))
	root := NewObject(F("views", NewArray(view)))

	assert.Same(t, row, Lookup(root, "views.0.prototype.RowClass"))
	assert.Equal(t, root, Lookup(root, ""))
	assert.Nil(t, Lookup(root, "views.1.prototype"))
	assert.Nil(t, Lookup(root, "nope.deeper"))
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  bool
	}{
		{"undefined", nil, false},
		{"null", Null{}, false},
		{"empty string", String(""), false},
		{"string", String("x"), true},
		{"zero", Number(0), false},
		{"NaN", Number(math.NaN()), false},
		{"number", Number(-1), true},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"empty object", NewObject(), true},
		{"empty array", NewArray(), true},
		{"func", NewFunc(""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truthy(tt.value))
		})
	}
}

func TestSame(t *testing.T) {
	a := NewObject()
	b := NewObject()

	assert.True(t, Same(a, a))
	assert.False(t, Same(a, b), "structurally equal objects are distinct modules")
	assert.True(t, Same(String("x"), String("x")))
	assert.True(t, Same(nil, nil))
	assert.False(t, Same(nil, Null{}))
}

func TestInstanceOf(t *testing.T) {
	base := NewObject()
	base.Bases = []string{"Backbone.Collection"}
	inst := NewObject()
	inst.Proto = base

	assert.True(t, InstanceOf(inst, "Backbone.Collection"))
	assert.False(t, InstanceOf(inst, "Backbone.Model"))
	assert.False(t, InstanceOf(NewFunc(""), "Backbone.Collection"))
}

func TestLookupSurvivesPrototypeLoop(t *testing.T) {
	a := NewObject()
	b := NewObject()
	a.Proto = b
	b.Proto = a

	require.NotPanics(t, func() {
		assert.Nil(t, Get(a, "missing"))
		assert.False(t, InstanceOf(a, "X"))
	})
}

func TestIsReference(t *testing.T) {
	assert.True(t, IsReference(NewObject()))
	assert.True(t, IsReference(NewFunc("")))
	assert.True(t, IsReference(NewArray()))
	assert.False(t, IsReference(String("x")))
	assert.False(t, IsReference(nil))
}
