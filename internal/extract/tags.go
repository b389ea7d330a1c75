package extract

import (
	"regexp"
	"strings"

	"github.com/autodocs/autodocs/internal/spec"
)

var (
	inlineParamRe = regexp.MustCompile(`^@(?:param|arg|argument)\s+(?:\{(?P<type>[^}]*)\}\s*)?(?P<name>\[[^\]]*\]|[A-Za-z_$][\w$.]*)\s*(?:-\s*)?(?P<desc>.*)$`)

	argsSectionRe = regexp.MustCompile(`^\s*(?:Args|Arguments|Parameters|Params|Keyword Args|Keyword Arguments):\s*$`)
	googleEntryRe = regexp.MustCompile(`^(\s*)\*{0,2}([A-Za-z_]\w*)\s*(?:\(([^)]*)\))?\s*:\s*(.*)$`)
	sphinxParamRe = regexp.MustCompile(`^\s*:param\s+(?:([^:]+?)\s+)?([A-Za-z_]\w*)\s*:\s*(.*)$`)
	sphinxTypeRe  = regexp.MustCompile(`^\s*:type\s+([A-Za-z_]\w*)\s*:\s*(.*)$`)
	sphinxAnyRe   = regexp.MustCompile(`^\s*:\w+`)
)

// tagBuilder accumulates one entry whose description may span lines.
type tagBuilder struct {
	name    string
	rawType string
	desc    []string
}

func (b *tagBuilder) build() spec.TagParameter {
	raw := strings.TrimSpace(b.rawType)
	return spec.TagParameter{
		Name:        b.name,
		Type:        NormalizeType(raw),
		RawType:     raw,
		Description: collapse(strings.Join(b.desc, " ")),
	}
}

type tagList struct {
	out []spec.TagParameter
	cur *tagBuilder
}

func (l *tagList) start(name, rawType, desc string) {
	l.flush()
	if name == "" {
		return
	}
	l.cur = &tagBuilder{name: name, rawType: rawType}
	l.more(desc)
}

func (l *tagList) more(text string) {
	if l.cur == nil {
		return
	}
	if t := strings.TrimSpace(text); t != "" {
		l.cur.desc = append(l.cur.desc, t)
	}
}

func (l *tagList) flush() {
	if l.cur != nil {
		l.out = append(l.out, l.cur.build())
		l.cur = nil
	}
}

// parseInlineTags reads `@param {type} name - description` annotations.
// A description continues on following lines until the next tag.
func parseInlineTags(raw string) []spec.TagParameter {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var l tagList
	for _, line := range strings.Split(raw, "\n") {
		t := cleanSlashLine(line)
		if strings.HasPrefix(t, "@") {
			l.flush()
			m := inlineParamRe.FindStringSubmatch(t)
			if m == nil {
				continue
			}
			l.start(tagName(m[inlineParamRe.SubexpIndex("name")]), m[inlineParamRe.SubexpIndex("type")], m[inlineParamRe.SubexpIndex("desc")])
			continue
		}
		l.more(t)
	}
	l.flush()
	return l.out
}

func cleanSlashLine(line string) string {
	t := strings.TrimSpace(line)
	t = strings.TrimPrefix(t, "//")
	t = strings.ReplaceAll(t, "/*", "")
	t = strings.ReplaceAll(t, "*/", "")
	t = strings.TrimSpace(t)
	return strings.TrimSpace(strings.TrimLeft(t, "*"))
}

// tagName normalizes `[name=default]` and `body.name` forms to `name`.
func tagName(s string) string {
	s = strings.TrimSpace(strings.Trim(s, "[]"))
	if i := strings.IndexByte(s, '='); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// parseStructuredTags reads Google style `Args:` sections and Sphinx
// `:param type name:` fields out of a docstring.
func parseStructuredTags(raw string) []spec.TagParameter {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var (
		l           tagList
		types       = map[string]string{}
		inArgs      bool
		argsIndent  int
		entryIndent = -1
	)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.NewReplacer(`"""`, "   ", "'''", "   ").Replace(strings.TrimRight(line, " \t"))
		if t := strings.TrimLeft(line, " \t"); strings.HasPrefix(t, "#") {
			line = line[:len(line)-len(t)] + strings.TrimPrefix(t, "#")
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			l.flush()
			inArgs = false
			continue
		}
		ind := indentOf(line)

		if argsSectionRe.MatchString(line) {
			l.flush()
			inArgs, argsIndent, entryIndent = true, ind, -1
			continue
		}
		if isDocstringSection(trimmed) && !sphinxAnyRe.MatchString(trimmed) {
			// Returns:, Raises: and friends end the argument list
			l.flush()
			inArgs = false
			continue
		}
		if m := sphinxParamRe.FindStringSubmatch(line); m != nil {
			l.start(m[2], m[1], m[3])
			continue
		}
		if m := sphinxTypeRe.FindStringSubmatch(line); m != nil {
			l.flush()
			types[m[1]] = m[2]
			continue
		}
		if sphinxAnyRe.MatchString(line) {
			l.flush()
			continue
		}

		if inArgs {
			if ind <= argsIndent {
				l.flush()
				inArgs = false
				continue
			}
			if entryIndent < 0 || ind <= entryIndent {
				if m := googleEntryRe.FindStringSubmatch(line); m != nil {
					l.start(m[2], m[3], m[4])
					entryIndent = ind
					continue
				}
			}
		}
		l.more(trimmed)
	}
	l.flush()

	for i, tp := range l.out {
		if tp.RawType != "" {
			continue
		}
		if raw, ok := types[tp.Name]; ok {
			l.out[i].RawType = strings.TrimSpace(raw)
			l.out[i].Type = NormalizeType(raw)
		}
	}
	return l.out
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

// NormalizeType maps a declared type (JSDoc, Python annotation or
// docstring type) onto the parameter type enum. Unknown types map to "".
func NormalizeType(raw string) spec.ParamType {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.TrimSpace(strings.Trim(t, "{}"))
	t = strings.TrimSpace(strings.TrimSuffix(t, "optional"))
	t = strings.TrimSpace(strings.TrimSuffix(t, ","))
	if strings.HasPrefix(t, "optional[") && strings.HasSuffix(t, "]") {
		t = t[len("optional[") : len(t)-1]
	}
	if i := strings.IndexByte(t, ','); i >= 0 {
		t = t[:i]
	}
	t = strings.TrimSpace(strings.TrimSuffix(t, "="))
	t = strings.TrimLeft(t, "?!")

	switch {
	case t == "":
		return ""
	case strings.HasSuffix(t, "[]"),
		strings.HasPrefix(t, "array"),
		strings.HasPrefix(t, "list"),
		strings.HasPrefix(t, "tuple"),
		strings.HasPrefix(t, "sequence"),
		t == "set", strings.HasPrefix(t, "set["):
		return spec.TypeArray
	}
	switch t {
	case "int", "integer", "long", "int32", "int64", "bigint":
		return spec.TypeInteger
	case "float", "double", "number", "decimal", "float32", "float64", "num":
		return spec.TypeNumber
	case "bool", "boolean":
		return spec.TypeBoolean
	case "str", "string", "text", "uuid", "date", "datetime", "email", "url":
		return spec.TypeString
	}
	return ""
}
