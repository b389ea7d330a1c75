package render

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/autodocs/autodocs/internal/spec"
)

var sectionTitles = map[spec.Location]string{
	spec.InPath:  "Path Parameters",
	spec.InQuery: "Query Parameters",
	spec.InBody:  "Body Parameters",
}

// Markdown serializes a file document. Output depends only on the document,
// so identical documents give identical bytes.
func Markdown(doc spec.FileDocument) []byte {
	var b strings.Builder
	title := doc.Title
	if title == "" {
		title = "API Documentation"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if doc.Source != "" {
		fmt.Fprintf(&b, "_Source: `%s`_\n\n", filepath.Base(doc.Source))
	}
	if doc.Empty() {
		b.WriteString("No routes found.\n")
		return []byte(b.String())
	}
	for _, r := range doc.Routes {
		writeRoute(&b, r)
	}
	return []byte(b.String())
}

func writeRoute(b *strings.Builder, r spec.RouteDocument) {
	decl := r.Declaration
	fmt.Fprintf(b, "## %s %s\n\n", decl.Method, decl.Path)
	handler := decl.Handler
	if handler == "" {
		handler = "unknown"
	}
	fmt.Fprintf(b, "**Function**: `%s`\n\n", handler)
	desc := r.Description.Description
	if desc == "" {
		desc = spec.NoRouteDescription
	}
	fmt.Fprintf(b, "**Description**: %s\n\n", desc)

	if len(r.Parameters) == 0 {
		b.WriteString("**Parameters**: None\n\n")
	}
	for _, loc := range spec.Locations {
		ps := r.ParametersIn(loc)
		if len(ps) == 0 {
			continue
		}
		fmt.Fprintf(b, "**%s**:\n\n", sectionTitles[loc])
		for _, p := range ps {
			fmt.Fprintf(b, "- %s\n", Parameter(p))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "**Sample Request**:\n\n```http\n%s\n```\n\n", r.SampleRequest)
	fmt.Fprintf(b, "**Sample Response**:\n\n```json\n%s\n```\n\n", r.SampleResponse)
}
