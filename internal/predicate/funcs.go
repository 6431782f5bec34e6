package predicate

import (
	"regexp"
	"strings"

	"github.com/roach88/plugmods/internal/module"
)

// Paths below are dot-separated member paths relative to the candidate;
// the empty path is the candidate itself.

// Callable holds when the member at path is a function.
func Callable(path string) Func {
	return Of(func(m module.Value) bool {
		return module.IsFunc(module.Lookup(m, path))
	})
}

// ProtoCallable holds when prototype[name] is a function.
func ProtoCallable(name string) Func {
	return Of(func(m module.Value) bool {
		return HasProtoMethod(m, name)
	})
}

// HasKey holds when the last segment of path is present (own or
// inherited) on the value at the preceding segments, like the `in`
// operator.
func HasKey(path string) Func {
	parent, name := splitPath(path)
	return Of(func(m module.Value) bool {
		return module.Has(module.Lookup(m, parent), name)
	})
}

// ProtoOwn holds when prototype has an own member name.
func ProtoOwn(name string) Func {
	return Of(func(m module.Value) bool {
		return module.HasOwn(module.Get(m, "prototype"), name)
	})
}

// Instance holds when the candidate is an instance of the named base type.
func Instance(base string) Func {
	return Of(func(m module.Value) bool {
		return module.InstanceOf(m, base)
	})
}

// Equals holds when the member at path strictly equals want.
func Equals(path string, want module.Value) Func {
	return Of(func(m module.Value) bool {
		return module.Same(module.Lookup(m, path), want)
	})
}

// Truthy holds when the member at path is truthy.
func Truthy(path string) Func {
	return Of(func(m module.Value) bool {
		return module.Truthy(module.Lookup(m, path))
	})
}

// SourceContains holds when the member at path is a function whose source
// contains substr.
func SourceContains(path, substr string) Func {
	return Of(func(m module.Value) bool {
		return FunctionContains(module.Lookup(m, path), substr)
	})
}

// SourceMatches holds when the member at path is a function whose source
// matches re.
func SourceMatches(path string, re *regexp.Regexp) Func {
	return Of(func(m module.Value) bool {
		return FunctionMatches(module.Lookup(m, path), re)
	})
}

// SourceSeemsEqual holds when the member at path is a function whose
// normalized source equals the normalized source given.
func SourceSeemsEqual(path, source string) Func {
	want := NormalizeSource(source)
	return Of(func(m module.Value) bool {
		src, ok := module.Source(module.Lookup(m, path))
		return ok && NormalizeSource(src) == want
	})
}

// View holds for view classes.
func View() Func { return Of(IsView) }

// Dialog holds for dialog view classes.
func Dialog() Func { return Of(IsDialog) }

// Defaults holds for model classes with defaults.
func Defaults() Func { return Of(HasDefaults) }

// Attributes holds for model instances carrying every attribute listed.
func Attributes(attrs ...string) Func {
	return Of(func(m module.Value) bool {
		return HasAttributes(m, attrs...)
	})
}

// CollectionOf holds for collection instances of the model class that
// alias resolves to. It never holds while alias is unresolved.
func CollectionOf(alias string) Func {
	return func(m module.Value, _ string, r Resolver) bool {
		if r == nil {
			return false
		}
		model, ok := r.Require(alias)
		return ok && IsCollectionOf(m, model)
	}
}

// SameNamespaceAs holds when the candidate's registry key shares a
// directory with the key alias resolves to.
func SameNamespaceAs(alias string) Func {
	return func(_ module.Value, key string, r Resolver) bool {
		return r != nil && r.IsInSameNamespace(key, alias)
	}
}

// RefEquals holds when the member at path is the very value found at
// refPath inside the module alias resolves to.
func RefEquals(path, alias, refPath string) Func {
	return func(m module.Value, _ string, r Resolver) bool {
		if r == nil {
			return false
		}
		target, ok := r.Require(alias)
		if !ok {
			return false
		}
		want := module.Lookup(target, refPath)
		return want != nil && module.Same(module.Lookup(m, path), want)
	}
}

// NotRef holds when the candidate is not the module alias resolves to.
// An unresolved alias excludes nothing.
func NotRef(alias string) Func {
	return func(m module.Value, _ string, r Resolver) bool {
		if r == nil {
			return true
		}
		other, ok := r.Require(alias)
		return !ok || !module.Same(m, other)
	}
}

// Element holds for view classes that render an element matching
// selector.
func Element(renderer Renderer, selector string) Func {
	return func(m module.Value, key string, _ Resolver) bool {
		return ViewHasElement(renderer, m, key, selector)
	}
}

// Action holds for action classes with the given method and fixed route.
func Action(method, route string) Func {
	return Of(func(m module.Value) bool {
		return IsAction(m, method, route)
	})
}

// ActionPrefix holds for action classes whose route starts with prefix.
func ActionPrefix(method, prefix string) Func {
	return Of(func(m module.Value) bool {
		return IsActionPrefix(m, method, prefix)
	})
}

// ActionPattern holds for action classes whose route matches re.
func ActionPattern(method string, re *regexp.Regexp) Func {
	return Of(func(m module.Value) bool {
		return IsActionPattern(m, method, re)
	})
}

func splitPath(path string) (parent, name string) {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}
