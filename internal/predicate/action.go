package predicate

import (
	"regexp"
	"strings"

	"github.com/roach88/plugmods/internal/module"
)

// Server actions are classes whose prototype carries an HTTP method in
// `type` and, for fixed endpoints, the endpoint in `route`. Actions with a
// parameterised endpoint build `route` inside `init`, so for those the
// string literals of prototype.init are tested instead.

// IsAction reports whether v is an action class for method with the fixed
// route.
func IsAction(v module.Value, method, route string) bool {
	if !actionMethod(v, method) {
		return false
	}
	got, ok := module.StringOf(module.Lookup(v, "prototype.route"))
	return ok && got == route
}

// IsActionPrefix reports whether v is an action class for method whose
// route starts with prefix.
func IsActionPrefix(v module.Value, method, prefix string) bool {
	return actionRoutes(v, method, func(route string) bool {
		return strings.HasPrefix(route, prefix)
	})
}

// IsActionPattern reports whether v is an action class for method whose
// route matches re.
func IsActionPattern(v module.Value, method string, re *regexp.Regexp) bool {
	if re == nil {
		return false
	}
	return actionRoutes(v, method, re.MatchString)
}

func actionMethod(v module.Value, method string) bool {
	got, ok := module.StringOf(module.Lookup(v, "prototype.type"))
	return ok && got == method
}

func actionRoutes(v module.Value, method string, test func(string) bool) bool {
	if !actionMethod(v, method) {
		return false
	}
	if route, ok := module.StringOf(module.Lookup(v, "prototype.route")); ok {
		return test(route)
	}
	for _, lit := range StringLiterals(module.Lookup(v, "prototype.init")) {
		if lit != "" && test(lit) {
			return true
		}
	}
	return false
}
