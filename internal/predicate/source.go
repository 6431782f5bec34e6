package predicate

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/plugmods/internal/module"
)

// minifier rewrites applied after whitespace is stripped, so that a
// minified build and a readable build of the same function compare equal.
var minifier = strings.NewReplacer(
	"void0", "undefined",
	"!0", "true",
	"!1", "false",
	";}", "}",
)

// stringLiteral matches single or double quoted literals without escapes.
var stringLiteral = regexp.MustCompile(`"([^"\\]*)"|'([^'\\]*)'`)

// FunctionContains reports whether fn is a function whose source
// contains substr. Non-functions never match.
func FunctionContains(fn module.Value, substr string) bool {
	src, ok := module.Source(fn)
	return ok && strings.Contains(src, substr)
}

// FunctionMatches reports whether fn is a function whose source matches re.
func FunctionMatches(fn module.Value, re *regexp.Regexp) bool {
	src, ok := module.Source(fn)
	return ok && re != nil && re.MatchString(src)
}

// NormalizeSource strips whitespace and common minifier artifacts from a
// function source.
func NormalizeSource(src string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, norm.NFC.String(src))
	return minifier.Replace(stripped)
}

// SourcesSeemEqual compares two function sources after normalization.
func SourcesSeemEqual(a, b string) bool {
	return NormalizeSource(a) == NormalizeSource(b)
}

// FunctionsSeemEqual reports whether fn is a function whose normalized
// source equals the normalized `source`. It is a heuristic stand-in for
// "the same function" across minified and readable builds.
func FunctionsSeemEqual(fn module.Value, source string) bool {
	src, ok := module.Source(fn)
	return ok && SourcesSeemEqual(src, source)
}

// StringLiterals returns the quoted string literals appearing in a
// function source, in order of appearance.
func StringLiterals(fn module.Value) []string {
	src, ok := module.Source(fn)
	if !ok {
		return nil
	}
	var out []string
	for _, m := range stringLiteral.FindAllStringSubmatch(src, -1) {
		if m[1] != "" {
			out = append(out, m[1])
		} else {
			out = append(out, m[2])
		}
	}
	return out
}
