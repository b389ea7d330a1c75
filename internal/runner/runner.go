// Package runner discovers source files and extracts them concurrently.
package runner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/autodocs/autodocs/internal/extract"
	"github.com/autodocs/autodocs/internal/spec"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	"node_modules":  true,
	"__pycache__":   true,
	"venv":          true,
	"site-packages": true,
}

type Options struct {
	Input   string // file or directory
	Dialect extract.Dialect
	Workers int // defaults to the number of CPUs
	Logger  hclog.Logger
	Load    []spec.Option
}

// Batch is the outcome of one run. Documents are in discovery order and
// omit files that failed to load.
type Batch struct {
	Root      string
	Documents []spec.FileDocument
	Failed    []string
}

// Discover resolves input to the files to scan. A file is taken as is; a
// directory is walked recursively for files with the dialect's extensions.
func Discover(ctx context.Context, input string, d extract.Dialect) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &spec.SourceError{Code: spec.InputError, Message: "input path is empty"}
	}
	st, err := os.Stat(input)
	if err != nil {
		return nil, &spec.SourceError{Code: spec.InputError, Message: fmt.Sprintf("stat %s: %v", input, err), Location: input, Cause: err}
	}
	if !st.IsDir() {
		return []string{input}, nil
	}

	var files []string
	err = filepath.WalkDir(input, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			name := entry.Name()
			if path != input && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.Type().IsRegular() && extract.HasExtension(d, path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", input, err)
	}
	return files, nil
}

// Run extracts every discovered file, one goroutine per file under the
// worker limit. Extraction state is per file, so nothing is shared between
// goroutines except the result slots. Load failures are collected and
// returned together with the documents that did succeed.
func Run(ctx context.Context, opts Options) (*Batch, error) {
	if opts.Dialect == nil {
		return nil, fmt.Errorf("runner: dialect is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	files, err := Discover(ctx, opts.Input, opts.Dialect)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger.Debug("discovered sources", "input", opts.Input, "files", len(files), "workers", workers)

	docs := make([]*spec.FileDocument, len(files))
	errs := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range files {
		if ctx.Err() != nil {
			break
		}
		i, path := i, path
		g.Go(func() error {
			src, err := spec.LoadSource(ctx, path, opts.Load...)
			if err != nil {
				errs[i] = err
				return nil
			}
			doc := extract.Document(src, opts.Dialect)
			logger.Debug("extracted", "source", path, "routes", len(doc.Routes))
			docs[i] = &doc
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := &Batch{Root: opts.Input}
	var merr *multierror.Error
	for i, path := range files {
		if errs[i] != nil {
			logger.Warn("failed to load source", "source", path, "error", errs[i])
			batch.Failed = append(batch.Failed, path)
			merr = multierror.Append(merr, errs[i])
			continue
		}
		batch.Documents = append(batch.Documents, *docs[i])
	}
	return batch, merr.ErrorOrNil()
}
