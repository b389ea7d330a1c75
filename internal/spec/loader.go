package spec

import (
    "bytes"
    "context"
    "fmt"
    "os"
    "path/filepath"
    "strings"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
    InputError    ErrorCode = "InputError"
    EncodingError ErrorCode = "EncodingError"
)

// SourceError is a structured error describing why a source file could not
// be loaded. Extraction itself never fails; only loading does.
type SourceError struct {
    Code     ErrorCode
    Message  string
    Location string // file path
    Cause    error
}

func (e *SourceError) Error() string { return e.Message }
func (e *SourceError) Unwrap() error { return e.Cause }

// Source is one fully loaded file split into lines.
type Source struct {
    Path  string
    Lines []string
}

// Settings configures loader behavior.
type Settings struct {
    // MaxBytes rejects files larger than this many bytes. Zero disables the check.
    MaxBytes int64
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
    return Settings{MaxBytes: 16 << 20}
}

// Option mutates Settings.
type Option func(*Settings)

func WithMaxBytes(n int64) Option { return func(s *Settings) { s.MaxBytes = n } }

// LoadSource reads a file fully and splits it on line feeds. A trailing
// carriage return is dropped from every line and a leading UTF-8 byte
// order mark is removed.
func LoadSource(ctx context.Context, path string, opts ...Option) (*Source, error) {
    if strings.TrimSpace(path) == "" {
        return nil, &SourceError{Code: InputError, Message: "source: path is empty"}
    }
    if err := ctx.Err(); err != nil {
        return nil, err
    }

    settings := DefaultSettings()
    for _, opt := range opts {
        opt(&settings)
    }

    abs, err := filepath.Abs(path)
    if err != nil {
        return nil, &SourceError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: path, Cause: err}
    }

    st, err := os.Stat(abs)
    if err != nil {
        return nil, &SourceError{Code: InputError, Message: fmt.Sprintf("stat %s: %v", abs, err), Location: abs, Cause: err}
    }
    if st.IsDir() {
        return nil, &SourceError{Code: InputError, Message: fmt.Sprintf("source: %s is a directory", abs), Location: abs}
    }
    if settings.MaxBytes > 0 && st.Size() > settings.MaxBytes {
        return nil, &SourceError{Code: InputError, Message: fmt.Sprintf("source: %s is larger than %d bytes", abs, settings.MaxBytes), Location: abs}
    }

    raw, err := os.ReadFile(abs)
    if err != nil {
        return nil, &SourceError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
    }
    if bytes.IndexByte(raw, 0) >= 0 {
        return nil, &SourceError{Code: EncodingError, Message: fmt.Sprintf("source: %s is not a text file", abs), Location: abs}
    }

    // Invalid UTF-8 sequences (Latin-1 comments and the like) become U+FFFD.
    text := strings.ToValidUTF8(string(raw), "\uFFFD")
    return &Source{Path: path, Lines: SplitLines(text)}, nil
}

// SplitLines splits text on line feeds, tolerating CRLF endings.
func SplitLines(text string) []string {
    text = strings.TrimPrefix(text, "\ufeff")
    lines := strings.Split(text, "\n")
    for i, l := range lines {
        lines[i] = strings.TrimSuffix(l, "\r")
    }
    return lines
}
