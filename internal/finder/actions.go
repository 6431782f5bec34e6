package finder

import (
	"regexp"

	"github.com/roach88/plugmods/internal/module"
	"github.com/roach88/plugmods/internal/predicate"
)

// EventManagerAlias is the alias under which the event manager, whose
// eventTypeMap links event names to handler classes, is resolved.
const EventManagerAlias = "plug/core/EventManager"

// MatchAction finds the action class for an HTTP method and fixed route.
func MatchAction(method, route string) *Matcher {
	return Match(predicate.Action(method, route))
}

// MatchActionPrefix finds the action class for method whose route starts
// with prefix.
func MatchActionPrefix(method, prefix string) *Matcher {
	return Match(predicate.ActionPrefix(method, prefix))
}

// MatchActionPattern finds the action class for method whose route
// matches re.
func MatchActionPattern(method string, re *regexp.Regexp) *Matcher {
	return Match(predicate.ActionPattern(method, re))
}

// FetchHandler finds the handler class registered first for eventName in
// the event manager's eventTypeMap.
func FetchHandler(eventName string) Detective {
	return FetchHandlerFrom(EventManagerAlias, eventName)
}

// FetchHandlerFrom is FetchHandler with an explicit event manager alias.
func FetchHandlerFrom(managerAlias, eventName string) Detective {
	return Depends([]string{managerAlias}, func(deps ...module.Value) Detective {
		manager := deps[0]
		return Fetch(func(*Context) module.Value {
			types := module.Get(module.Get(manager, "eventTypeMap"), eventName)
			return module.Get(types, "0")
		})
	})
}
