package extract

import (
	"github.com/autodocs/autodocs/internal/render"
	"github.com/autodocs/autodocs/internal/spec"
)

// Routes sweeps lines once and documents every route declaration found,
// in source order.
func Routes(lines []string, d Dialect) []spec.RouteDocument {
	var out []spec.RouteDocument
	for i := range lines {
		decls := d.MatchDeclaration(lines, i)
		if len(decls) == 0 {
			continue
		}
		desc := d.RecoverComment(lines, i)
		tags := d.ParseTags(desc.RawText)
		for _, decl := range decls {
			params := Merge(d.PathParameters(decl), d.RequestParameters(lines, decl), tags)
			out = append(out, render.Route(decl, desc, params, d.SampleResponse()))
		}
	}
	return out
}

// Document extracts one source file. A file without routes yields an
// empty document, not an error.
func Document(src *spec.Source, d Dialect) spec.FileDocument {
	doc := spec.FileDocument{Dialect: d.Name(), Title: d.Title()}
	if src == nil {
		return doc
	}
	doc.Source = src.Path
	doc.Routes = Routes(src.Lines, d)
	return doc
}
