package extract

import (
	"regexp"
	"strings"

	"github.com/autodocs/autodocs/internal/spec"
)

const (
	flaskWindow = 20
	// decorators stacked between the route and its def
	flaskDefLookahead = 5
)

var (
	flaskRouteRe   = regexp.MustCompile(`^\s*@\s*[A-Za-z_][\w.]*\.route\(\s*(?:'([^']+)'|"([^"]+)")(.*)$`)
	flaskVerbRe    = regexp.MustCompile(`^\s*@\s*[A-Za-z_][\w.]*\.(get|post|put|delete|patch)\(\s*(?:'([^']+)'|"([^"]+)")`)
	flaskMethodsRe = regexp.MustCompile(`\bmethods\s*=\s*[\[(]([^\])]*)[\])]`)
	flaskQuotedRe  = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)
	flaskDefRe     = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`)
	flaskParamRe   = regexp.MustCompile(`<(?:([A-Za-z_]\w*)(?:\([^)]*\))?:)?([A-Za-z_]\w*)>`)
)

var flaskRules = heuristicRules{
	fields: []fieldPattern{
		{expr: `request\.args`, in: spec.InQuery},
		{expr: `request\.values`, in: spec.InQuery},
		{expr: `request\.form`, in: spec.InBody},
		{expr: `request\.json`, in: spec.InBody},
		{expr: `request\.get_json\([^()]*\)`, in: spec.InBody},
		{expr: `request\.files`, in: spec.InBody},
	},
	accessors: []string{
		`{obj}\.get(?P<list>list)?\(\s*['"](?P<name>[^'"]+)['"](?P<rest>(?:[^()]|\([^()]*\))*)\)`,
		`{obj}\[\s*['"](?P<name>[^'"]+)['"]\s*\]`,
	},
	alias:       `^\s*(?P<var>[A-Za-z_]\w*)\s*=\s*{obj}(?:\s+or\s+\{\s*\})?\s*(?:#.*)?$`,
	fallbackOps: []string{"or"},
	negations: []string{
		`\bnot\s+{ref}`,
		`(?:^|[^\w$.]){ref}\s+is\s+None\b`,
	},
	usage: []usageRule{
		{tmpl: `(?:^|[^\w$.]){ref}(?:\.lower\(\))?\s*[!=]=\s*['"](?:true|false|True|False)['"]`, typ: spec.TypeBoolean},
		{tmpl: `['"](?:true|false|True|False)['"]\s*[!=]=\s*{ref}`, typ: spec.TypeBoolean},
		{tmpl: `\bfloat\s*\(\s*{ref}`, typ: spec.TypeNumber},
		{tmpl: `\bint\s*\(\s*{ref}`, typ: spec.TypeInteger},
		{tmpl: `\blen\s*\(\s*{ref}`, typ: spec.TypeArray},
		{tmpl: `\bin\s+{ref}`, typ: spec.TypeArray},
	},
	nulls: []string{"None"},
}

// Flask matches `@app.route(...)` decorators followed by a handler def.
type Flask struct {
	params *heuristics
}

func NewFlask() *Flask { return &Flask{params: newHeuristics(flaskRules)} }

func (*Flask) Name() string { return "flask" }
func (*Flask) Title() string { return "API Documentation (Python Flask)" }
func (*Flask) Extensions() []string { return []string{".py"} }
func (*Flask) SampleResponse() string { return "{\n  \"status\": \"ok\"\n}" }

func isFlaskDecl(line string) bool {
	return flaskRouteRe.MatchString(line) || flaskVerbRe.MatchString(line)
}

// MatchDeclaration yields one declaration per supported method listed in
// methods=[...]; a route without methods is a GET.
func (*Flask) MatchDeclaration(lines []string, i int) []spec.RouteDeclaration {
	if i < 0 || i >= len(lines) {
		return nil
	}
	line := lines[i]
	var (
		path    string
		methods []spec.HTTPMethod
	)
	if m := flaskRouteRe.FindStringSubmatch(line); m != nil {
		path = m[1] + m[2]
		methods = flaskMethods(m[3])
	} else if m := flaskVerbRe.FindStringSubmatch(line); m != nil {
		path = m[2] + m[3]
		if method, ok := spec.ParseMethod(m[1]); ok {
			methods = []spec.HTTPMethod{method}
		}
	} else {
		return nil
	}

	handler := flaskHandler(lines, i)
	template := flaskParamRe.ReplaceAllString(path, "{$2}")
	out := make([]spec.RouteDeclaration, 0, len(methods))
	for _, method := range methods {
		out = append(out, spec.RouteDeclaration{
			Method:   method,
			Path:     path,
			Template: template,
			Handler:  handler,
			Line:     i,
		})
	}
	return out
}

func flaskMethods(rest string) []spec.HTTPMethod {
	m := flaskMethodsRe.FindStringSubmatch(rest)
	if m == nil {
		return []spec.HTTPMethod{spec.GET}
	}
	var out []spec.HTTPMethod
	seen := map[spec.HTTPMethod]bool{}
	for _, q := range flaskQuotedRe.FindAllStringSubmatch(m[1], -1) {
		method, ok := spec.ParseMethod(q[1] + q[2])
		if !ok || seen[method] {
			continue
		}
		seen[method] = true
		out = append(out, method)
	}
	return out
}

func flaskHandler(lines []string, i int) string {
	for k := i + 1; k < len(lines) && k <= i+flaskDefLookahead; k++ {
		t := strings.TrimSpace(lines[k])
		if t == "" || strings.HasPrefix(t, "@") {
			continue
		}
		if m := flaskDefRe.FindStringSubmatch(t); m != nil {
			return m[1]
		}
		return ""
	}
	return ""
}

func (*Flask) PathParameters(decl spec.RouteDeclaration) []spec.Parameter {
	var out []spec.Parameter
	seen := map[string]bool{}
	for _, m := range flaskParamRe.FindAllStringSubmatch(decl.Path, -1) {
		name := m[2]
		if seen[name] {
			continue
		}
		seen[name] = true
		switch m[1] {
		case "int":
			out = append(out, pathParameter(name, spec.TypeInteger, true))
		case "float":
			out = append(out, pathParameter(name, spec.TypeNumber, true))
		default:
			out = append(out, pathParameter(name, spec.TypeString, m[1] != ""))
		}
	}
	return out
}

func (f *Flask) RequestParameters(lines []string, decl spec.RouteDeclaration) []spec.Parameter {
	start, end := scanWindow(lines, decl.Line+1, decl.Line, flaskWindow, isFlaskDecl)
	return f.params.extract(lines, start, end)
}

func (*Flask) RecoverComment(lines []string, i int) spec.DescriptionBlock {
	return hashComments.above(lines, i)
}

func (*Flask) ParseTags(raw string) []spec.TagParameter { return parseStructuredTags(raw) }
