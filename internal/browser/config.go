package browser

import "time"

// Config holds browser configuration.
type Config struct {
	// URL is the application page to open.
	URL string `json:"url"`

	// DebuggerURL connects to a running Chrome instead of launching one.
	DebuggerURL string `json:"debugger_url"`

	Headless bool `json:"headless"`

	// Registry is a JS expression evaluating to the loader's map of
	// defined modules.
	Registry string `json:"registry"`

	// Require is a JS expression evaluating to the loader's require
	// function, used to instantiate views.
	Require string `json:"require"`

	// Bases maps base type names to JS expressions for their
	// constructors. Objects that are instances get the name in $bases.
	Bases map[string]string `json:"bases"`

	// MaxDepth bounds how deep members are serialized.
	MaxDepth int `json:"max_depth"`

	NavigationTimeoutMs int `json:"navigation_timeout_ms"`
}

// DefaultConfig returns defaults for a require.js application bundling
// Backbone.
func DefaultConfig() Config {
	return Config{
		Headless: true,
		Registry: "require.s.contexts._.defined",
		Require:  "require",
		Bases: map[string]string{
			"Backbone.Model":      "require('backbone').Model",
			"Backbone.Collection": "require('backbone').Collection",
			"Backbone.View":       "require('backbone').View",
		},
		MaxDepth:            6,
		NavigationTimeoutMs: 30000,
	}
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

func (c Config) registryExpr() string {
	if c.Registry == "" {
		return DefaultConfig().Registry
	}
	return c.Registry
}

func (c Config) requireExpr() string {
	if c.Require == "" {
		return DefaultConfig().Require
	}
	return c.Require
}

func (c Config) maxDepth() int {
	if c.MaxDepth <= 0 {
		return DefaultConfig().MaxDepth
	}
	return c.MaxDepth
}
