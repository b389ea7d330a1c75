package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/autodocs/autodocs/internal/extract"
	"github.com/autodocs/autodocs/internal/openapi"
	"github.com/autodocs/autodocs/internal/render"
	"github.com/autodocs/autodocs/internal/spec"
)

func sampleDoc(source string) spec.FileDocument {
	route := render.Route(
		spec.RouteDeclaration{Method: spec.GET, Path: "/hello/:name", Template: "/hello/{name}", Handler: "hello"},
		spec.DescriptionBlock{Description: "Say hello"},
		[]spec.Parameter{{Name: "name", In: spec.InPath, Type: spec.TypeString, Required: true, Description: spec.NoDescription, Origin: spec.OriginPath}},
		"",
	)
	return spec.FileDocument{Source: source, Dialect: "express", Title: "API Documentation", Routes: []spec.RouteDocument{route}}
}

func TestEmit_WriteFailureKeepsRenderErrors(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	out := t.TempDir()
	// a path template without its path parameter fails OpenAPI validation
	broken := spec.FileDocument{
		Source: filepath.Join(root, "broken.js"),
		Routes: []spec.RouteDocument{render.Route(spec.RouteDeclaration{Method: spec.GET, Path: "/items/:id", Template: "/items/{id}"}, spec.DescriptionBlock{}, nil, "")},
	}
	docs := []spec.FileDocument{broken, sampleDoc(filepath.Join(root, "users.js"))}
	if err := os.WriteFile(filepath.Join(out, "users-openapi.yaml"), []byte("old"), 0o644); err != nil {
		t.Fatalf("prewrite: %v", err)
	}

	res, err := Emit(context.Background(), docs, Options{OutDir: out, Root: root, Format: OpenAPI})
	if res != nil {
		t.Fatalf("expected no result when writing fails, got %+v", res)
	}
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if !strings.Contains(err.Error(), "broken.js") {
		t.Fatalf("render error for broken.js was dropped: %v", err)
	}
}

func TestEmit_DryRun_Plan(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	out := t.TempDir()
	docs := []spec.FileDocument{
		sampleDoc(filepath.Join(root, "api", "users.js")),
		{Source: filepath.Join(root, "empty.js"), Title: "API Documentation"},
	}
	res, err := Emit(context.Background(), docs, Options{OutDir: out, Root: root, DryRun: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(res.Planned) != 1 || res.Planned[0].RelPath != "api/users-docs.md" {
		t.Fatalf("unexpected plan: %+v", res.Planned)
	}
	if res.Planned[0].Routes != 1 || res.Planned[0].Size == 0 {
		t.Fatalf("plan missing details: %+v", res.Planned[0])
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("expected empty document to be skipped: %+v", res.Skipped)
	}
	if entries, _ := os.ReadDir(out); len(entries) != 0 {
		t.Fatalf("expected no files written on dry-run")
	}
}

func TestEmit_WriteAndForce(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	out := t.TempDir()
	docs := []spec.FileDocument{sampleDoc(filepath.Join(root, "users.js"))}
	opts := Options{OutDir: out, Root: root}

	if _, err := Emit(context.Background(), docs, opts); err != nil {
		t.Fatalf("emit: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(out, "users-docs.md"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "## GET /hello/:name") {
		t.Fatalf("markdown missing route heading: %s", data)
	}

	_, err = Emit(context.Background(), docs, opts)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists without force, got %v", err)
	}

	opts.Force = true
	if _, err := Emit(context.Background(), docs, opts); err != nil {
		t.Fatalf("forced emit: %v", err)
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestEmit_NameCollision(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	docs := []spec.FileDocument{
		sampleDoc(filepath.Join(root, "api.js")),
		sampleDoc(filepath.Join(root, "api.py")),
		sampleDoc(filepath.Join(root, "api.py")),
	}
	res, err := Emit(context.Background(), docs, Options{OutDir: t.TempDir(), Root: root, DryRun: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	want := []string{"api-docs.md", "api-py-docs.md", "api-py-2-docs.md"}
	for i, pf := range res.Planned {
		if pf.RelPath != want[i] {
			t.Fatalf("planned[%d] = %s, want %s", i, pf.RelPath, want[i])
		}
	}
}

func TestEmit_SourceOutsideRoot(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	res, err := Emit(context.Background(), []spec.FileDocument{sampleDoc("/elsewhere/app/routes.js")}, Options{OutDir: t.TempDir(), Root: root, DryRun: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if res.Planned[0].RelPath != "routes-docs.md" {
		t.Fatalf("unexpected path %s", res.Planned[0].RelPath)
	}
}

func TestEmit_Formats(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	out := t.TempDir()
	docs := []spec.FileDocument{sampleDoc(filepath.Join(root, "users.js"))}

	if _, err := Emit(context.Background(), docs, Options{OutDir: out, Root: root, Format: OpenAPI}); err != nil {
		t.Fatalf("emit openapi: %v", err)
	}
	y, err := os.ReadFile(filepath.Join(out, "users-openapi.yaml"))
	if err != nil {
		t.Fatalf("read yaml: %v", err)
	}
	if !strings.Contains(string(y), "operationId: hello") {
		t.Fatalf("yaml missing path: %s", y)
	}

	if _, err := Emit(context.Background(), docs, Options{OutDir: out, Root: root, Format: Swagger}); err != nil {
		t.Fatalf("emit swagger: %v", err)
	}
	j, err := os.ReadFile(filepath.Join(out, "users-swagger.json"))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal(j, &v); err != nil {
		t.Fatalf("swagger invalid: %v", err)
	}
	if v["swagger"] != "2.0" {
		t.Fatalf("unexpected swagger version: %v", v["swagger"])
	}

	// a document straight from the extractor renders without panicking
	doc := extract.Document(&spec.Source{Path: "api.js", Lines: []string{"app.get('/users/:id', h);"}}, extract.NewExpress())
	sw, err := Render(context.Background(), doc, Swagger, openapi.Info{}, nil)
	if err != nil {
		t.Fatalf("render swagger: %v", err)
	}
	if !strings.Contains(string(sw), `"/users/{id}"`) {
		t.Fatalf("swagger missing path: %s", sw)
	}
}

func TestEmit_Validation(t *testing.T) {
	t.Parallel()
	if _, err := Emit(context.Background(), nil, Options{}); err == nil {
		t.Fatalf("expected error for missing OutDir")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Emit(ctx, []spec.FileDocument{sampleDoc("a.js")}, Options{OutDir: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Format{"": Markdown, "MD": Markdown, "openapi": OpenAPI, "yaml": OpenAPI, "swagger": Swagger} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("html"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}
