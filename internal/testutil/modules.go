// Package testutil provides fixtures shared by package tests: module
// builders shaped like the classes of a bundled Backbone application, and
// deterministic run ids.
package testutil

import (
	"github.com/roach88/plugmods/internal/module"
)

// Known base type names, matching predicate.Base*.
const (
	Collection = "Backbone.Collection"
	Model      = "Backbone.Model"
	View       = "Backbone.View"
)

// Fn returns a function value with the given source.
func Fn(source string) *module.Func {
	return module.NewFunc(source)
}

// ViewClass returns a view class: a function whose prototype has render
// and $ methods plus the given members.
func ViewClass(proto ...module.Field) *module.Func {
	fields := append([]module.Field{
		module.F("render", Fn("function(){this.$el.html(this.template());return this}")),
		module.F("$", Fn("function(s){return this.$el.find(s)}")),
	}, proto...)
	p := module.NewObject(fields...)
	p.Bases = []string{View}
	return Fn("function(){return r.apply(this,arguments)}").WithProto(p)
}

// ModelClass returns a model class whose prototype carries defaults.
func ModelClass(defaults ...module.Field) *module.Func {
	p := module.NewObject(module.F("defaults", module.NewObject(defaults...)))
	p.Bases = []string{Model}
	return Fn("function(){return r.apply(this,arguments)}").WithProto(p)
}

// Instance returns an object that is an instance of base.
func Instance(base string, fields ...module.Field) *module.Object {
	proto := module.NewObject()
	proto.Bases = []string{base}
	obj := module.NewObject(fields...)
	obj.Proto = proto
	return obj
}

// CollectionOf returns a collection instance whose model is model.
func CollectionOf(model module.Value, fields ...module.Field) *module.Object {
	return Instance(Collection, append([]module.Field{module.F("model", model)}, fields...)...)
}

// ModelInstance returns a model instance with the given attributes.
func ModelInstance(attrs ...module.Field) *module.Object {
	return Instance(Model, module.F("attributes", module.NewObject(attrs...)))
}

// ActionClass returns a server action class for method and route.
func ActionClass(method, route string) *module.Func {
	return Fn("function(){return r.apply(this,arguments)}").WithProto(module.NewObject(
		module.F("type", module.String(method)),
		module.F("route", module.String(route)),
		module.F("alert", Fn("function(){}")),
	))
}
