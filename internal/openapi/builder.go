// Package openapi builds OpenAPI 3 and Swagger 2.0 documents from
// extracted file documents.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/hashicorp/go-hclog"
	"github.com/invopop/yaml"

	"github.com/autodocs/autodocs/internal/render"
	"github.com/autodocs/autodocs/internal/spec"
)

// DocumentVersion is the OpenAPI version emitted.
const DocumentVersion = "3.0.3"

// Info is the document metadata not recoverable from source.
type Info struct {
	Title       string
	Version     string
	Description string
}

var (
	templateParamRe = regexp.MustCompile(`\{[^}]*\}`)
	nonIdentRe      = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// builder holds the state of one Build call.
type builder struct {
	logger hclog.Logger
	model  *openapi3.T
	opIDs  map[string]bool
	shapes map[string]string // normalized template -> first template
}

// Build converts one file document into a validated OpenAPI 3 model.
// Routes whose path conflicts with an earlier route are skipped with a
// warning: the first declaration wins.
func Build(ctx context.Context, doc spec.FileDocument, info Info, logger hclog.Logger) (*openapi3.T, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	b := &builder{
		logger: logger,
		model: &openapi3.T{
			OpenAPI:    DocumentVersion,
			Info:       buildInfo(doc, info),
			Paths:      openapi3.Paths{},
			Components: &openapi3.Components{},
		},
		opIDs:  map[string]bool{},
		shapes: map[string]string{},
	}
	for _, r := range doc.Routes {
		b.addRoute(r)
	}
	if err := b.model.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: invalid document for %s: %w", doc.Source, err)
	}
	return b.model, nil
}

func buildInfo(doc spec.FileDocument, info Info) *openapi3.Info {
	out := &openapi3.Info{
		Title:       strings.TrimSpace(info.Title),
		Version:     strings.TrimSpace(info.Version),
		Description: strings.TrimSpace(info.Description),
	}
	if out.Title == "" {
		out.Title = doc.Title
	}
	if out.Title == "" {
		out.Title = "API Documentation"
	}
	if out.Version == "" {
		out.Version = "1.0.0"
	}
	if out.Description == "" && doc.Source != "" {
		out.Description = fmt.Sprintf("Routes extracted from %s.", filepath.Base(doc.Source))
	}
	return out
}

func (b *builder) addRoute(r spec.RouteDocument) {
	decl := r.Declaration
	path := decl.Template
	if path == "" {
		path = decl.Path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	shape := templateParamRe.ReplaceAllString(path, "{}")
	if first, ok := b.shapes[shape]; ok && first != path {
		b.logger.Warn("skipping route with conflicting path", "method", decl.Method, "path", path, "conflicts_with", first)
		return
	}
	b.shapes[shape] = path

	item := b.model.Paths[path]
	if item == nil {
		item = &openapi3.PathItem{}
		b.model.Paths[path] = item
	}
	if item.GetOperation(string(decl.Method)) != nil {
		b.logger.Warn("skipping duplicate route", "method", decl.Method, "path", path, "line", decl.Line+1)
		return
	}
	item.SetOperation(string(decl.Method), b.operation(r, path))
}

func (b *builder) operation(r spec.RouteDocument, path string) *openapi3.Operation {
	decl := r.Declaration
	op := openapi3.NewOperation()
	op.OperationID = b.operationID(decl, path)
	if d := r.Description.Description; d != "" && d != spec.NoRouteDescription {
		op.Summary = d
	}

	var (
		body     = openapi3.NewObjectSchema()
		required []string
		hasBody  bool
	)
	for _, p := range r.Parameters {
		switch p.In {
		case spec.InPath:
			param := openapi3.NewPathParameter(p.Name).WithSchema(schemaFor(p))
			param.Description = description(p)
			op.AddParameter(param)
		case spec.InQuery:
			param := openapi3.NewQueryParameter(p.Name).WithSchema(schemaFor(p))
			param.Description = description(p)
			param.Required = p.Required
			op.AddParameter(param)
		case spec.InBody:
			s := schemaFor(p)
			s.Description = description(p)
			body.WithProperty(p.Name, s)
			if p.Required {
				required = append(required, p.Name)
			}
			hasBody = true
		}
	}
	if hasBody {
		body.Required = required
		rb := openapi3.NewRequestBody().WithJSONSchema(body)
		rb.Required = len(required) > 0
		op.RequestBody = &openapi3.RequestBodyRef{Value: rb}
	}

	op.Responses = openapi3.Responses{"200": &openapi3.ResponseRef{Value: b.response(r)}}
	return op
}

func (b *builder) response(r spec.RouteDocument) *openapi3.Response {
	schema := openapi3.NewObjectSchema().WithProperty("status", openapi3.NewStringSchema())
	content := openapi3.NewContentWithJSONSchema(schema)
	var example any
	if err := json.Unmarshal([]byte(r.SampleResponse), &example); err == nil {
		content.Get("application/json").Example = example
	} else {
		b.logger.Debug("sample response is not JSON", "path", r.Declaration.Path, "error", err)
	}
	return openapi3.NewResponse().WithDescription("Successful response").WithContent(content)
}

// operationID prefers the handler name and falls back to method and path.
// IDs are unique within a document.
func (b *builder) operationID(decl spec.RouteDeclaration, path string) string {
	id := decl.Handler
	if id == "" || b.opIDs[id] {
		id = strings.ToLower(string(decl.Method)) + "_" + strings.Trim(nonIdentRe.ReplaceAllString(path, "_"), "_")
		id = strings.TrimSuffix(id, "_")
	}
	base := id
	for n := 2; b.opIDs[id]; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	b.opIDs[id] = true
	return id
}

func description(p spec.Parameter) string {
	if p.Description == spec.NoDescription {
		return ""
	}
	return p.Description
}

func schemaFor(p spec.Parameter) *openapi3.Schema {
	var s *openapi3.Schema
	switch p.Type {
	case spec.TypeInteger:
		s = openapi3.NewIntegerSchema()
	case spec.TypeNumber:
		s = openapi3.NewFloat64Schema()
	case spec.TypeBoolean:
		s = openapi3.NewBoolSchema()
	case spec.TypeArray:
		s = openapi3.NewArraySchema()
		s.Items = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	default:
		s = openapi3.NewStringSchema()
	}
	if v, ok := render.DefaultValue(p); ok {
		switch n := v.(type) {
		case int64:
			s.Default = float64(n)
		case []any:
			if allStrings(n) {
				s.Default = n
			}
		default:
			s.Default = v
		}
	}
	return s
}

func allStrings(vs []any) bool {
	for _, v := range vs {
		if _, ok := v.(string); !ok {
			return false
		}
	}
	return true
}

// YAML renders the model as OpenAPI YAML.
func YAML(model *openapi3.T) ([]byte, error) {
	raw, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("openapi: marshal: %w", err)
	}
	out, err := yaml.JSONToYAML(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: convert to yaml: %w", err)
	}
	return out, nil
}

// SwaggerJSON downgrades the model to Swagger 2.0 and renders it as JSON.
// The converter dereferences Components, so a model without them is
// converted through a shallow copy that carries an empty set.
func SwaggerJSON(model *openapi3.T) ([]byte, error) {
	if model.Components == nil {
		withComponents := *model
		withComponents.Components = &openapi3.Components{}
		model = &withComponents
	}
	v2, err := openapi2conv.FromV3(model)
	if err != nil {
		return nil, fmt.Errorf("openapi: convert to swagger 2.0: %w", err)
	}
	out, err := json.MarshalIndent(v2, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("openapi: marshal swagger: %w", err)
	}
	return append(out, '\n'), nil
}
