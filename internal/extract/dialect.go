// Package extract implements the line-oriented route scanner. It never
// builds a syntax tree: every decision is made from single lines or small
// bounded windows of lines, so extraction is total and cannot fail.
package extract

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/autodocs/autodocs/internal/spec"
)

// ErrUnknownDialect is returned by Lookup for unsupported language names.
var ErrUnknownDialect = errors.New("unknown dialect")

// Dialect is one source ecosystem's convention for declaring routes. A
// dialect is selected once per file; the scanner never branches on the
// language name itself.
type Dialect interface {
	// Name is the canonical dialect name (express, flask).
	Name() string
	// Title is the heading of documents produced for this dialect.
	Title() string
	// Extensions lists the file extensions scanned for this dialect.
	Extensions() []string
	// SampleResponse is the placeholder response body shown for every route.
	SampleResponse() string
	// MatchDeclaration returns the route declarations made on line i, in
	// order. Most lines declare nothing.
	MatchDeclaration(lines []string, i int) []spec.RouteDeclaration
	// PathParameters extracts parameters embedded in the route path.
	PathParameters(decl spec.RouteDeclaration) []spec.Parameter
	// RequestParameters scans the declaration's window for query and body
	// parameter access idioms.
	RequestParameters(lines []string, decl spec.RouteDeclaration) []spec.Parameter
	// RecoverComment returns the description preceding line i.
	RecoverComment(lines []string, i int) spec.DescriptionBlock
	// ParseTags parses parameter tags out of a recovered comment.
	ParseTags(raw string) []spec.TagParameter
}

var dialects = map[string]func() Dialect{
	"express": func() Dialect { return NewExpress() },
	"flask":   func() Dialect { return NewFlask() },
}

var aliases = map[string]string{
	"js":         "express",
	"javascript": "express",
	"node":       "express",
	"express":    "express",
	"py":         "flask",
	"python":     "flask",
	"flask":      "flask",
}

// Lookup resolves a language or dialect name (js, py, express, flask, ...).
func Lookup(lang string) (Dialect, error) {
	name, ok := aliases[strings.ToLower(strings.TrimSpace(lang))]
	if !ok {
		return nil, fmt.Errorf("%w %q (allowed: %s)", ErrUnknownDialect, lang, strings.Join(Languages(), ", "))
	}
	return dialects[name](), nil
}

// Languages lists every name accepted by Lookup.
func Languages() []string {
	out := make([]string, 0, len(aliases))
	for k := range aliases {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// HasExtension reports whether path carries one of the dialect's extensions.
func HasExtension(d Dialect, path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range d.Extensions() {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// scanWindow bounds the lines searched for parameters of one declaration:
// [start, end) stops at the next declaration after declLine or after limit
// lines, whichever comes first.
func scanWindow(lines []string, start, declLine, limit int, isDecl func(string) bool) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > len(lines) {
		start = len(lines)
	}
	end := start + limit
	if end > len(lines) {
		end = len(lines)
	}
	from := start
	if declLine+1 > from {
		from = declLine + 1
	}
	for k := from; k < end; k++ {
		if isDecl(lines[k]) {
			return start, k
		}
	}
	return start, end
}
