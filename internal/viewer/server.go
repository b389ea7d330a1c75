// Package viewer serves generated Markdown documents as HTML. It only reads
// the output directory and never feeds back into extraction.
package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"
	"github.com/russross/blackfriday/v2"
	"golang.org/x/sync/errgroup"
)

const notFound = "File not found."

var indexPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>AutoDoc Viewer</title>
    <style>
      body { font-family: sans-serif; padding: 2rem; }
      ul { list-style: none; padding: 0; }
      li { margin: 0.5rem 0; }
      a { text-decoration: none; color: blue; }
    </style>
  </head>
  <body>
    <h1>Available Docs</h1>
    {{- if .}}
    <ul>
      {{- range .}}
      <li><a href="/view?file={{.}}">{{.}}</a></li>
      {{- end}}
    </ul>
    {{- else}}
    <p>No documents yet.</p>
    {{- end}}
  </body>
</html>
`))

var docPage = template.Must(template.New("doc").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>{{.Name}}</title>
    <style>
      body { font-family: sans-serif; padding: 2rem; max-width: 800px; margin: auto; line-height: 1.6; }
      pre { background: #f0f0f0; padding: 1rem; }
      code { background: #eee; padding: 2px 4px; border-radius: 4px; }
      h1, h2 { border-bottom: 1px solid #ddd; padding-bottom: 0.3em; }
    </style>
  </head>
  <body>
    <a href="/">&larr; Back to all docs</a>
    {{.Body}}
  </body>
</html>
`))

// Server renders the Markdown files under one directory.
type Server struct {
	dir    string
	logger hclog.Logger
	router chi.Router
}

func New(dir string, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Server{dir: dir, logger: logger}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, notFound, http.StatusNotFound)
	})
	r.Get("/", s.handleIndex)
	r.Get("/view", s.handleView)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(start))
	})
}

// Documents lists the .md files under the directory as slash-separated
// relative paths, sorted.
func (s *Server) Documents() ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		rel, err := filepath.Rel(s.dir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	docs, err := s.Documents()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("failed to list documents", "dir", s.dir, "error", err)
		http.Error(w, "Unable to list documents.", http.StatusInternalServerError)
		return
	}
	s.write(w, indexPage, docs)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	full, ok := s.resolve(name)
	if !ok {
		http.Error(w, notFound, http.StatusNotFound)
		return
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		http.Error(w, notFound, http.StatusNotFound)
		return
	}
	body := blackfriday.Run(raw)
	s.write(w, docPage, struct {
		Name string
		Body template.HTML
	}{Name: name, Body: template.HTML(body)})
}

// resolve maps a requested name to a Markdown file inside the directory.
// Absolute names and names escaping the directory are rejected.
func (s *Server) resolve(name string) (string, bool) {
	if name == "" || strings.Contains(name, "\\") || path.IsAbs(name) {
		return "", false
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") || !strings.HasSuffix(strings.ToLower(clean), ".md") {
		return "", false
	}
	full := filepath.Join(s.dir, filepath.FromSlash(clean))
	st, err := os.Stat(full)
	if err != nil || !st.Mode().IsRegular() {
		return "", false
	}
	return full, true
}

func (s *Server) write(w http.ResponseWriter, t *template.Template, data any) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		s.logger.Error("failed to render page", "template", t.Name(), "error", err)
		http.Error(w, "Unable to render page.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("serving docs", "dir", s.dir, "addr", "http://"+ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("viewer: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("viewer: shutdown: %w", err)
		}
		s.logger.Info("viewer stopped")
		return nil
	})
	return g.Wait()
}
