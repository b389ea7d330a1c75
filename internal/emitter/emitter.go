// Package emitter renders file documents into one of the output formats and
// writes them under an output directory.
package emitter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/autodocs/autodocs/internal/openapi"
	"github.com/autodocs/autodocs/internal/render"
	"github.com/autodocs/autodocs/internal/spec"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown output format")

// ErrExists is returned when an output file exists and Force is not set.
var ErrExists = errors.New("output file exists")

type Format string

const (
	Markdown Format = "markdown"
	OpenAPI  Format = "openapi"
	Swagger  Format = "swagger"
)

// Formats lists the supported output formats.
var Formats = []Format{Markdown, OpenAPI, Swagger}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return Markdown, nil
	case "openapi", "openapi3", "yaml":
		return OpenAPI, nil
	case "swagger", "swagger2", "json":
		return Swagger, nil
	}
	return "", fmt.Errorf("%w %q (allowed: markdown, openapi, swagger)", ErrUnknownFormat, s)
}

// Suffix is appended to the source's base name to name the output file.
func (f Format) Suffix() string {
	switch f {
	case OpenAPI:
		return "-openapi.yaml"
	case Swagger:
		return "-swagger.json"
	}
	return "-docs.md"
}

// Options controls how documents are rendered and written.
type Options struct {
	OutDir string // required; target directory
	Root   string // input root; output paths mirror sources relative to it
	Format Format
	Info   openapi.Info
	Force  bool // overwrite existing files
	DryRun bool // don't write, only plan
	Logger hclog.Logger
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Source  string
	Routes  int
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and the sources that produced nothing.
type Result struct {
	OutDir  string
	Planned []PlannedFile
	Skipped []string
}

// Emit renders every non-empty document. Documents that fail to render are
// reported together; the others are still written.
func Emit(ctx context.Context, docs []spec.FileDocument, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("emitter: OutDir is required")
	}
	if opts.Format == "" {
		opts.Format = Markdown
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	abs, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("resolve out dir: %w", err)
	}

	var (
		res    = &Result{OutDir: abs}
		files  = map[string][]byte{}
		merr   *multierror.Error
		names  = newNamer()
		errCtx error
	)
	for _, doc := range docs {
		if errCtx = ctx.Err(); errCtx != nil {
			break
		}
		if doc.Empty() {
			logger.Debug("no routes found, skipping", "source", doc.Source)
			res.Skipped = append(res.Skipped, doc.Source)
			continue
		}
		content, err := Render(ctx, doc, opts.Format, opts.Info, logger)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", doc.Source, err))
			continue
		}
		rel := names.next(opts.Root, doc.Source, opts.Format.Suffix())
		files[rel] = content
		res.Planned = append(res.Planned, PlannedFile{
			RelPath: rel,
			Source:  doc.Source,
			Routes:  len(doc.Routes),
			Size:    len(content),
			Mode:    0o644,
		})
		logger.Debug("planned output", "source", doc.Source, "path", rel, "routes", len(doc.Routes))
	}
	if errCtx != nil {
		return nil, errCtx
	}

	if !opts.DryRun && len(files) > 0 {
		if err := writeFiles(abs, res.Planned, files, opts.Force); err != nil {
			return nil, multierror.Append(merr, err).ErrorOrNil()
		}
	}
	return res, merr.ErrorOrNil()
}

// Render serializes one document in the given format.
func Render(ctx context.Context, doc spec.FileDocument, format Format, info openapi.Info, logger hclog.Logger) ([]byte, error) {
	switch format {
	case Markdown, "":
		return render.Markdown(doc), nil
	case OpenAPI, Swagger:
		model, err := openapi.Build(ctx, doc, info, logger)
		if err != nil {
			return nil, err
		}
		if format == Swagger {
			return openapi.SwaggerJSON(model)
		}
		return openapi.YAML(model)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

// namer assigns output paths, disambiguating sources that share a base
// name in the same directory (api.js and api.py).
type namer struct {
	used map[string]bool
}

func newNamer() *namer { return &namer{used: map[string]bool{}} }

func (n *namer) next(root, source, suffix string) string {
	dir := relDir(root, source)
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidates := []string{stem}
	if ext != "" {
		candidates = append(candidates, stem+"-"+strings.TrimPrefix(ext, "."))
	}
	for _, c := range candidates {
		rel := filepath.ToSlash(filepath.Join(dir, c+suffix))
		if !n.used[rel] {
			n.used[rel] = true
			return rel
		}
	}
	for i := 2; ; i++ {
		rel := filepath.ToSlash(filepath.Join(dir, candidates[len(candidates)-1]+"-"+strconv.Itoa(i)+suffix))
		if !n.used[rel] {
			n.used[rel] = true
			return rel
		}
	}
}

// relDir is the source's directory relative to root, or "" when the source
// is the root itself or lies outside it.
func relDir(root, source string) string {
	if root == "" {
		return ""
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return ""
	}
	if st, err := os.Stat(rootAbs); err == nil && !st.IsDir() {
		return ""
	}
	srcAbs, err := filepath.Abs(source)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(rootAbs, filepath.Dir(srcAbs))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return rel
}

func writeFiles(outDir string, planned []PlannedFile, files map[string][]byte, force bool) error {
	// Pre-flight: refuse to clobber anything unless forced.
	if !force {
		var existing []string
		for _, pf := range planned {
			if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(pf.RelPath))); err == nil {
				existing = append(existing, pf.RelPath)
			}
		}
		if len(existing) > 0 {
			return fmt.Errorf("emitter: %w in %q: %s (use --force to overwrite)", ErrExists, outDir, strings.Join(existing, ", "))
		}
	}
	for _, pf := range planned {
		p := filepath.Join(outDir, filepath.FromSlash(pf.RelPath))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp, err := os.CreateTemp(filepath.Dir(p), filepath.Base(p)+".tmp-*")
		if err != nil {
			return fmt.Errorf("create temp %s: %w", pf.RelPath, err)
		}
		if _, err := tmp.Write(files[pf.RelPath]); err != nil {
			tmp.Close()
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("write temp %s: %w", pf.RelPath, err)
		}
		if err := tmp.Close(); err != nil {
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("close temp %s: %w", pf.RelPath, err)
		}
		if err := os.Chmod(tmp.Name(), pf.Mode); err != nil {
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("chmod %s: %w", pf.RelPath, err)
		}
		if err := os.Rename(tmp.Name(), p); err != nil {
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("rename %s: %w", pf.RelPath, err)
		}
	}
	return nil
}
