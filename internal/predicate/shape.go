package predicate

import (
	"strings"

	"github.com/roach88/plugmods/internal/module"
)

// Known base types recorded in snapshots.
const (
	BaseCollection = "Backbone.Collection"
	BaseModel      = "Backbone.Model"
	BaseView       = "Backbone.View"
)

// IsCallable reports whether v is a function.
func IsCallable(v module.Value) bool {
	return module.IsFunc(v)
}

// HasMethod reports whether the member `name` of v is a function.
func HasMethod(v module.Value, name string) bool {
	return module.IsFunc(module.Get(v, name))
}

// HasProtoMethod reports whether v.prototype[name] is a function.
func HasProtoMethod(v module.Value, name string) bool {
	return module.IsFunc(module.Get(module.Get(v, "prototype"), name))
}

// IsView reports whether v looks like a view class: its prototype has
// callable render and $ members.
func IsView(v module.Value) bool {
	return HasProtoMethod(v, "render") && HasProtoMethod(v, "$")
}

// IsDialog reports whether v is a view class whose prototype className
// mentions "dialog".
func IsDialog(v module.Value) bool {
	className, ok := module.StringOf(module.Lookup(v, "prototype.className"))
	return ok && strings.Contains(className, "dialog")
}

// HasDefaults reports whether v is a model class with truthy
// prototype.defaults.
func HasDefaults(v module.Value) bool {
	return module.Truthy(module.Lookup(v, "prototype.defaults"))
}

// HasAttributes reports whether v is a model instance whose attributes
// contain every one of attrs.
func HasAttributes(v module.Value, attrs ...string) bool {
	if !module.InstanceOf(v, BaseModel) {
		return false
	}
	attributes := module.Get(v, "attributes")
	for _, attr := range attrs {
		if !module.Has(attributes, attr) {
			return false
		}
	}
	return true
}

// IsCollectionOf reports whether v is a collection instance whose model
// class is exactly model.
func IsCollectionOf(v, model module.Value) bool {
	return module.Truthy(model) &&
		module.InstanceOf(v, BaseCollection) &&
		module.Same(module.Get(v, "model"), model)
}
