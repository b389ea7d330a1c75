package extract

import (
	"regexp"

	"github.com/autodocs/autodocs/internal/render"
	"github.com/autodocs/autodocs/internal/spec"
)

const expressWindow = 25

var (
	expressRouteRe   = regexp.MustCompile("\\b(?:app|router)\\.(get|post|put|delete|patch)\\(\\s*(?:'([^']+)'|\"([^\"]+)\"|`([^`]+)`)\\s*,")
	expressHandlerRe = regexp.MustCompile(`,\s*([A-Za-z_$][\w$.]*)\s*\)\s*;?\s*$`)
	expressNamedRe   = regexp.MustCompile(`,\s*(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`)
	expressParamRe   = regexp.MustCompile(`:([A-Za-z_$][\w$]*)\??`)
)

var expressRules = heuristicRules{
	fields: []fieldPattern{
		{expr: `(?:req|request)\.query`, in: spec.InQuery},
		{expr: `(?:req|request)\.body`, in: spec.InBody},
	},
	accessors: []string{
		`{obj}\.(?P<name>[A-Za-z_$][\w$]*)`,
		"{obj}\\[\\s*['\"`](?P<name>[^'\"`\\]]+)['\"`]\\s*\\]",
	},
	destructure: `(?:const|let|var)\s*\{(?P<list>[^}]*)\}\s*=\s*{obj}\s*(?:;|\|\||\?\?|$)`,
	alias:       `(?:const|let|var)\s+(?P<var>[A-Za-z_$][\w$]*)\s*=\s*{obj}\s*(?:;|$)`,
	fallbackOps: []string{"||", "??"},
	negations:   []string{`!\s*{ref}`},
	usage: []usageRule{
		{tmpl: `(?:^|[^\w$.]){ref}\s*[!=]==?\s*['"\x60](?:true|false)['"\x60]`, typ: spec.TypeBoolean},
		{tmpl: `['"\x60](?:true|false)['"\x60]\s*[!=]==?\s*{ref}`, typ: spec.TypeBoolean},
		{tmpl: `\bparseFloat\s*\(\s*{ref}`, typ: spec.TypeNumber},
		{tmpl: `\b(?:parseInt|Number)\s*\(\s*{ref}`, typ: spec.TypeInteger},
		{tmpl: `(?:^|[^\w$.]){ref}\s*\.\s*(?:length|includes|indexOf|map|forEach|filter|some|every)\b`, typ: spec.TypeArray},
		{tmpl: `\bArray\.isArray\s*\(\s*{ref}`, typ: spec.TypeArray},
	},
	nulls: []string{"null", "undefined"},
}

// Express matches `app.get('/users/:id', handler)` style registrations.
type Express struct {
	params *heuristics
}

func NewExpress() *Express { return &Express{params: newHeuristics(expressRules)} }

func (*Express) Name() string { return "express" }
func (*Express) Title() string { return "API Documentation" }
func (*Express) Extensions() []string { return []string{".js", ".mjs", ".cjs", ".ts"} }
func (*Express) SampleResponse() string { return render.DefaultResponse }

func (*Express) MatchDeclaration(lines []string, i int) []spec.RouteDeclaration {
	if i < 0 || i >= len(lines) {
		return nil
	}
	line := lines[i]
	m := expressRouteRe.FindStringSubmatchIndex(line)
	if m == nil {
		return nil
	}
	method, ok := spec.ParseMethod(line[m[2]:m[3]])
	if !ok {
		return nil
	}
	var path string
	for g := 2; g <= 4; g++ {
		if m[2*g] >= 0 {
			path = line[m[2*g]:m[2*g+1]]
			break
		}
	}
	decl := spec.RouteDeclaration{
		Method:   method,
		Path:     path,
		Template: expressParamRe.ReplaceAllString(path, "{$1}"),
		Line:     i,
	}
	rest := "," + line[m[1]:]
	if hm := expressHandlerRe.FindStringSubmatch(rest); hm != nil {
		decl.Handler = hm[1]
	} else if hm := expressNamedRe.FindStringSubmatch(rest); hm != nil {
		decl.Handler = hm[1]
	}
	return []spec.RouteDeclaration{decl}
}

func (*Express) PathParameters(decl spec.RouteDeclaration) []spec.Parameter {
	var out []spec.Parameter
	seen := map[string]bool{}
	for _, m := range expressParamRe.FindAllStringSubmatch(decl.Path, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, pathParameter(m[1], spec.TypeString, false))
	}
	return out
}

func (e *Express) RequestParameters(lines []string, decl spec.RouteDeclaration) []spec.Parameter {
	start, end := scanWindow(lines, decl.Line, decl.Line, expressWindow, expressRouteRe.MatchString)
	return e.params.extract(lines, start, end)
}

func (*Express) RecoverComment(lines []string, i int) spec.DescriptionBlock {
	return slashComments.above(lines, i)
}

func (*Express) ParseTags(raw string) []spec.TagParameter { return parseInlineTags(raw) }

func pathParameter(name string, typ spec.ParamType, inferred bool) spec.Parameter {
	return spec.Parameter{
		Name:         name,
		In:           spec.InPath,
		Type:         typ,
		TypeInferred: inferred,
		Required:     true,
		Description:  spec.NoDescription,
		Origin:       spec.OriginPath,
	}
}
