package spec

import (
    "context"
    "errors"
    "os"
    "path/filepath"
    "testing"
)

func TestLoadSource_Missing(t *testing.T) {
    t.Parallel()
    _, err := LoadSource(context.Background(), filepath.Join(t.TempDir(), "nope.js"))
    if err == nil {
        t.Fatalf("expected error for missing file")
    }
    var se *SourceError
    if !errors.As(err, &se) {
        t.Fatalf("expected SourceError, got %T", err)
    }
    if se.Code != InputError {
        t.Fatalf("expected InputError, got %v", se.Code)
    }
    if !errors.Is(err, os.ErrNotExist) {
        t.Fatalf("expected cause to wrap os.ErrNotExist, got %v", se.Cause)
    }
}

func TestLoadSource_Directory(t *testing.T) {
    t.Parallel()
    _, err := LoadSource(context.Background(), t.TempDir())
    var se *SourceError
    if !errors.As(err, &se) || se.Code != InputError {
        t.Fatalf("expected InputError, got %v (%T)", err, err)
    }
}

func TestLoadSource_Binary(t *testing.T) {
    t.Parallel()
    path := filepath.Join(t.TempDir(), "blob.js")
    if err := os.WriteFile(path, []byte{'a', 0, 'b'}, 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }
    _, err := LoadSource(context.Background(), path)
    var se *SourceError
    if !errors.As(err, &se) || se.Code != EncodingError {
        t.Fatalf("expected EncodingError, got %v (%T)", err, err)
    }
}

func TestLoadSource_Latin1Comment(t *testing.T) {
    t.Parallel()
    path := filepath.Join(t.TempDir(), "api.js")
    if err := os.WriteFile(path, []byte("// caf\xe9 list\napp.get('/users', h);\n"), 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }
    src, err := LoadSource(context.Background(), path)
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    if len(src.Lines) != 3 {
        t.Fatalf("lines: want 3 got %d (%q)", len(src.Lines), src.Lines)
    }
    if src.Lines[0] != "// caf\uFFFD list" {
        t.Errorf("line 0: got %q", src.Lines[0])
    }
    if src.Lines[1] != "app.get('/users', h);" {
        t.Errorf("line 1: got %q", src.Lines[1])
    }
}

func TestLoadSource_TooLarge(t *testing.T) {
    t.Parallel()
    path := filepath.Join(t.TempDir(), "big.py")
    if err := os.WriteFile(path, []byte("x = 1\ny = 2\n"), 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }
    _, err := LoadSource(context.Background(), path, WithMaxBytes(4))
    var se *SourceError
    if !errors.As(err, &se) || se.Code != InputError {
        t.Fatalf("expected InputError, got %v (%T)", err, err)
    }
}

func TestLoadSource_CRLF(t *testing.T) {
    t.Parallel()
    path := filepath.Join(t.TempDir(), "api.js")
    content := "\ufeff// list\r\napp.get('/a', h);\r\n"
    if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }
    src, err := LoadSource(context.Background(), path)
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    want := []string{"// list", "app.get('/a', h);", ""}
    if len(src.Lines) != len(want) {
        t.Fatalf("lines: want %d got %d (%q)", len(want), len(src.Lines), src.Lines)
    }
    for i := range want {
        if src.Lines[i] != want[i] {
            t.Errorf("line %d: want %q got %q", i, want[i], src.Lines[i])
        }
    }
    if src.Path != path {
        t.Errorf("path: want %q got %q", path, src.Path)
    }
}

func TestParseMethod(t *testing.T) {
    t.Parallel()
    for in, want := range map[string]HTTPMethod{"get": GET, " Post ": POST, "DELETE": DELETE, "patch": PATCH, "put": PUT} {
        got, ok := ParseMethod(in)
        if !ok || got != want {
            t.Errorf("ParseMethod(%q) = %q, %v", in, got, ok)
        }
    }
    if _, ok := ParseMethod("options"); ok {
        t.Errorf("options should not be a supported method")
    }
}
