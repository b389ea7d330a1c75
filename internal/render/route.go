// Package render turns extracted routes into RouteDocuments and serializes
// file documents to Markdown. Nothing here fails: missing data degrades to
// placeholders.
package render

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/autodocs/autodocs/internal/spec"
)

// DefaultResponse is the placeholder sample response.
const DefaultResponse = "{\n  \"status\": \"success\"\n}"

// Route assembles the immutable document for one declaration.
func Route(decl spec.RouteDeclaration, desc spec.DescriptionBlock, params []spec.Parameter, response string) spec.RouteDocument {
	if desc.Description == "" {
		desc.Description = spec.NoRouteDescription
	}
	if decl.Template == "" {
		decl.Template = decl.Path
	}
	if response == "" {
		response = DefaultResponse
	}
	ps := make([]spec.Parameter, len(params))
	copy(ps, params)
	return spec.RouteDocument{
		Declaration:    decl,
		Description:    desc,
		Parameters:     ps,
		SampleRequest:  SampleRequest(decl, ps),
		SampleResponse: response,
	}
}

// Parameter formats one parameter line:
// `name (type) (required|optional)[ (default: value)] — description`.
func Parameter(p spec.Parameter) string {
	var b strings.Builder
	b.WriteString(p.Name)
	fmt.Fprintf(&b, " (%s)", typeOf(p))
	if p.Required {
		b.WriteString(" (required)")
	} else {
		b.WriteString(" (optional)")
	}
	if p.Default != nil {
		fmt.Fprintf(&b, " (default: %s)", *p.Default)
	}
	desc := p.Description
	if desc == "" {
		desc = spec.NoDescription
	}
	b.WriteString(" — ")
	b.WriteString(desc)
	return b.String()
}

func typeOf(p spec.Parameter) spec.ParamType {
	if p.Type == "" {
		return spec.TypeString
	}
	return p.Type
}

// SampleRequest renders the request line with {name} placeholders for path
// parameters, a query string, and for body-carrying methods a JSON body.
func SampleRequest(decl spec.RouteDeclaration, params []spec.Parameter) string {
	target := decl.Template
	if target == "" {
		target = decl.Path
	}
	var (
		query []string
		body  []spec.Parameter
	)
	for _, p := range params {
		switch p.In {
		case spec.InQuery:
			v := "{" + p.Name + "}"
			if p.Default != nil {
				v = url.QueryEscape(unquote(*p.Default))
			}
			query = append(query, url.QueryEscape(p.Name)+"="+v)
		case spec.InBody:
			body = append(body, p)
		}
	}
	if len(query) > 0 {
		target += "?" + strings.Join(query, "&")
	}
	line := string(decl.Method) + " " + target
	if !decl.Method.HasBody() || len(body) == 0 {
		return line
	}

	var b strings.Builder
	b.WriteString(line)
	b.WriteString("\nContent-Type: application/json\n\n{\n")
	for i, p := range body {
		key, _ := json.Marshal(p.Name)
		fmt.Fprintf(&b, "  %s: %s", key, sampleValue(p))
		if i < len(body)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}")
	return b.String()
}

func sampleValue(p spec.Parameter) string {
	if v, ok := DefaultValue(p); ok {
		if raw, err := json.Marshal(v); err == nil {
			return string(raw)
		}
	}
	switch typeOf(p) {
	case spec.TypeInteger:
		return "0"
	case spec.TypeNumber:
		return "0.0"
	case spec.TypeBoolean:
		return "false"
	case spec.TypeArray:
		return "[]"
	}
	return `"string"`
}

// DefaultValue converts a parameter's default source text into a value of
// its type. It reports false when there is no default or it is not a
// literal of that type.
func DefaultValue(p spec.Parameter) (any, bool) {
	if p.Default == nil {
		return nil, false
	}
	raw := strings.TrimSpace(*p.Default)
	switch typeOf(p) {
	case spec.TypeInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		return n, err == nil
	case spec.TypeNumber:
		f, err := strconv.ParseFloat(raw, 64)
		return f, err == nil
	case spec.TypeBoolean:
		b, err := strconv.ParseBool(strings.ToLower(raw))
		return b, err == nil
	case spec.TypeArray:
		var v []any
		if err := json.Unmarshal([]byte(strings.ReplaceAll(raw, "'", `"`)), &v); err != nil {
			return nil, false
		}
		if v == nil {
			v = []any{}
		}
		return v, true
	}
	if !isQuoted(raw) {
		return nil, false
	}
	return unquote(raw), true
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	q := s[0]
	return (q == '\'' || q == '"' || q == '`') && s[len(s)-1] == q
}

func unquote(s string) string {
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}
