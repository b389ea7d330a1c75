package extract

import (
	"regexp"
	"strings"

	"github.com/autodocs/autodocs/internal/spec"
)

type blockDelim struct {
	open, close string
}

// commentStyle is one delimiter family.
type commentStyle struct {
	line   string
	blocks []blockDelim
	// isTag reports whether a cleaned comment line starts the tag section;
	// the description ends there.
	isTag func(string) bool
}

var slashComments = commentStyle{
	line:   "//",
	blocks: []blockDelim{{open: "/*", close: "*/"}},
	isTag:  func(s string) bool { return strings.HasPrefix(s, "@") },
}

var hashComments = commentStyle{
	line:   "#",
	blocks: []blockDelim{{open: `"""`, close: `"""`}, {open: "'''", close: "'''"}},
	isTag:  isDocstringSection,
}

var (
	sectionRe     = regexp.MustCompile(`^(?:Args|Arguments|Parameters|Params|Keyword Args|Keyword Arguments|Returns?|Raises|Yields):\s*$`)
	sphinxFieldRe = regexp.MustCompile(`^:(?:param|type|returns?|rtype|raises?|arg|key|keyword)\b`)
)

func isDocstringSection(s string) bool {
	return sectionRe.MatchString(s) || sphinxFieldRe.MatchString(s)
}

func noDescription() spec.DescriptionBlock {
	return spec.DescriptionBlock{Description: spec.NoRouteDescription}
}

// above looks only at the line right above index. A single-line comment
// is taken as is; a block comment is followed back to its opening line.
func (s commentStyle) above(lines []string, index int) spec.DescriptionBlock {
	if index <= 0 || index > len(lines) {
		return noDescription()
	}
	prev := strings.TrimSpace(lines[index-1])

	if strings.HasPrefix(prev, s.line) {
		text := strings.TrimPrefix(prev, s.line)
		text = strings.TrimSpace(strings.TrimLeft(text, s.line[:1]))
		if text == "" {
			return noDescription()
		}
		return spec.DescriptionBlock{Description: collapse(text), RawText: lines[index-1]}
	}

	for _, b := range s.blocks {
		if !strings.HasSuffix(prev, b.close) {
			continue
		}
		start := index - 1
		if !strings.Contains(strings.TrimSuffix(prev, b.close), b.open) {
			start = -1
			for j := index - 2; j >= 0; j-- {
				if strings.Contains(lines[j], b.open) {
					start = j
					break
				}
			}
			if start < 0 {
				// unterminated
				return noDescription()
			}
		}
		block := lines[start:index]
		desc := s.describe(block, b)
		if desc == "" {
			desc = spec.NoRouteDescription
		}
		return spec.DescriptionBlock{Description: desc, RawText: strings.Join(block, "\n")}
	}

	return noDescription()
}

// describe strips delimiters and per-line markers and keeps the prose that
// precedes the first tag line.
func (s commentStyle) describe(block []string, b blockDelim) string {
	var parts []string
	for _, raw := range block {
		t := s.clean(raw, b)
		if s.isTag(t) {
			break
		}
		if t != "" {
			parts = append(parts, t)
		}
	}
	return collapse(strings.Join(parts, " "))
}

func (s commentStyle) clean(raw string, b blockDelim) string {
	t := strings.TrimSpace(raw)
	t = strings.ReplaceAll(t, b.open, "")
	t = strings.ReplaceAll(t, b.close, "")
	t = strings.TrimSpace(t)
	if b.open == "/*" {
		t = strings.TrimSpace(strings.TrimLeft(t, "*"))
	}
	return t
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
