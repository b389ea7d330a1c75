package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/autodocs/autodocs/internal/spec"
)

// fieldPattern binds a request-object field expression to a location.
type fieldPattern struct {
	expr string
	in   spec.Location
}

// usageRule infers a type from how a parameter is used on its access line.
// tmpl is a regexp in which {ref} stands for a reference to the parameter.
type usageRule struct {
	tmpl string
	typ  spec.ParamType
}

// heuristicRules is the table describing one dialect's access idioms.
// Templates use {obj} for the request field expression; accessor
// templates define the group "name" and optionally "list" (list getter)
// and "rest" (remaining call arguments).
type heuristicRules struct {
	fields      []fieldPattern
	accessors   []string
	destructure string // defines group "list"; empty when unsupported
	alias       string // defines group "var"
	fallbackOps []string
	negations   []string // templates over {ref}
	usage       []usageRule
	nulls       []string
}

type idiom struct {
	re          *regexp.Regexp
	in          spec.Location
	destructure bool
}

// heuristics holds compiled static idioms. It is read-only after
// construction and safe for concurrent use.
type heuristics struct {
	rules   heuristicRules
	static  []idiom
	aliases []idiom
}

var (
	requiredHintRe = regexp.MustCompile(`(?i)\brequired\b|\b400\b`)
	identRe        = regexp.MustCompile(`^[A-Za-z_$][\w$-]*$`)

	intLitRe    = regexp.MustCompile(`^[-+]?\d+$`)
	numLitRe    = regexp.MustCompile(`^[-+]?(?:\d+\.\d*|\.\d+)(?:[eE][-+]?\d+)?$`)
	arrayLikeRe = regexp.MustCompile(`^(?:\[.*\]|(?:new\s+)?Array\s*\(.*\)|list\s*\(.*\)|\(\s*\)|[A-Za-z_$][\w$]*(?:List|Array|Items|Ids))$`)
	quotedRe    = regexp.MustCompile("^(?:'.*'|\".*\"|`.*`)$")
)

func newHeuristics(r heuristicRules) *heuristics {
	h := &heuristics{rules: r}
	for _, f := range r.fields {
		obj := `\b` + f.expr
		h.static = append(h.static, h.idiomsFor(obj, f.in)...)
		if r.alias != "" {
			h.aliases = append(h.aliases, idiom{re: regexp.MustCompile(strings.ReplaceAll(r.alias, "{obj}", obj)), in: f.in})
		}
	}
	return h
}

func (h *heuristics) idiomsFor(obj string, in spec.Location) []idiom {
	var out []idiom
	if h.rules.destructure != "" {
		if re, err := regexp.Compile(strings.ReplaceAll(h.rules.destructure, "{obj}", obj)); err == nil {
			out = append(out, idiom{re: re, in: in, destructure: true})
		}
	}
	for _, a := range h.rules.accessors {
		if re, err := regexp.Compile(strings.ReplaceAll(a, "{obj}", obj)); err == nil {
			out = append(out, idiom{re: re, in: in})
		}
	}
	return out
}

type paramKey struct {
	in   spec.Location
	name string
}

type candidate struct {
	name         string
	in           spec.Location
	pos, end     int
	def          string
	hasDef       bool
	destructured bool
	hint         spec.ParamType
}

// extract scans lines[start:end) and returns the parameters accessed there.
// The first access of a (location, name) pair wins.
func (h *heuristics) extract(lines []string, start, end int) []spec.Parameter {
	var (
		out       []spec.Parameter
		seen      = map[paramKey]bool{}
		local     []idiom
		aliasSeen = map[string]bool{}
	)
	for i := start; i < end && i < len(lines); i++ {
		line := lines[i]
		for _, c := range h.candidates(line, local) {
			k := paramKey{in: c.in, name: c.name}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, h.classify(line, c))
		}
		for _, a := range h.aliases {
			m := a.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			v := m[a.re.SubexpIndex("var")]
			if v == "" || aliasSeen[v] {
				continue
			}
			aliasSeen[v] = true
			local = append(local, h.idiomsFor(`(?:^|[^\w$.])`+regexp.QuoteMeta(v), a.in)...)
		}
	}
	return out
}

func (h *heuristics) candidates(line string, local []idiom) []candidate {
	var out []candidate
	scan := func(ids []idiom) {
		for _, id := range ids {
			for _, m := range id.re.FindAllStringSubmatchIndex(line, -1) {
				if id.destructure {
					out = append(out, destructured(group(id.re, line, m, "list"), id.in, m[0], m[1])...)
					continue
				}
				c := candidate{
					name: strings.TrimSpace(group(id.re, line, m, "name")),
					in:   id.in,
					pos:  m[0],
					end:  m[1],
				}
				if c.name == "" {
					continue
				}
				rest := group(id.re, line, m, "rest")
				if rest == "" && strings.HasPrefix(strings.TrimLeft(line[m[1]:], " \t"), "(") {
					// a method call on the field, not a parameter
					continue
				}
				if group(id.re, line, m, "list") != "" {
					c.hint = spec.TypeArray
				}
				if rest != "" {
					var conv string
					c.def, c.hasDef, conv = callArgs(rest)
					if t := NormalizeType(conv); t != "" {
						c.hint = t
					}
				}
				out = append(out, c)
			}
		}
	}
	scan(h.static)
	scan(local)
	sort.SliceStable(out, func(a, b int) bool { return out[a].pos < out[b].pos })
	return out
}

func group(re *regexp.Regexp, line string, m []int, name string) string {
	idx := re.SubexpIndex(name)
	if idx < 0 || 2*idx+1 >= len(m) || m[2*idx] < 0 {
		return ""
	}
	return line[m[2*idx]:m[2*idx+1]]
}

// destructured parses `a, b = 1, c: alias` style binding lists.
func destructured(list string, in spec.Location, pos, end int) []candidate {
	var out []candidate
	for _, entry := range splitTopLevel(list, ',') {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.HasPrefix(entry, "...") {
			continue
		}
		key, def, hasDef := entry, "", false
		if i := assignIndex(entry); i >= 0 {
			key, def = entry[:i], strings.TrimSpace(entry[i+1:])
			hasDef = def != ""
		}
		if i := strings.IndexByte(key, ':'); i >= 0 {
			key = key[:i]
		}
		key = strings.Trim(strings.TrimSpace(key), "'\"`")
		if !identRe.MatchString(key) {
			continue
		}
		out = append(out, candidate{name: key, in: in, pos: pos, end: end, def: def, hasDef: hasDef, destructured: true})
	}
	return out
}

// callArgs reads the arguments following the key of a getter call:
// a positional or default= value and a type= converter.
func callArgs(rest string) (def string, hasDef bool, conv string) {
	for _, arg := range splitTopLevel(rest, ',') {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		if i := assignIndex(arg); i >= 0 && identRe.MatchString(strings.TrimSpace(arg[:i])) {
			key, val := strings.TrimSpace(arg[:i]), strings.TrimSpace(arg[i+1:])
			switch key {
			case "type":
				conv = val
			case "default":
				def, hasDef = val, val != ""
			}
			continue
		}
		if !hasDef {
			def, hasDef = arg, true
		}
	}
	return def, hasDef, conv
}

func (h *heuristics) classify(line string, c candidate) spec.Parameter {
	def, hasDef := c.def, c.hasDef
	if !c.destructured {
		if !hasDef {
			def, hasDef = fallbackAfter(line, c.end, h.rules.fallbackOps)
		}
		if hasDef && h.isNull(def) {
			def, hasDef = "", false
		}
	}

	p := spec.Parameter{
		Name:        c.name,
		In:          c.in,
		Description: spec.NoDescription,
		Origin:      spec.OriginHeuristic,
	}
	if hasDef {
		p.Default = &def
	}
	switch {
	case c.destructured:
		p.Required = !hasDef
	case hasDef:
		p.Required = false
	default:
		p.Required = h.negated(line, c.name) || requiredHintRe.MatchString(line)
	}
	p.Type, p.TypeInferred = h.inferType(line, c, def, hasDef)
	return p
}

func (h *heuristics) isNull(v string) bool {
	for _, n := range h.rules.nulls {
		if v == n {
			return true
		}
	}
	return false
}

func (h *heuristics) negated(line, name string) bool {
	for _, tmpl := range h.rules.negations {
		if matchRef(tmpl, name, line) {
			return true
		}
	}
	return false
}

// inferType applies, in order: the default's literal shape, same-line
// usage, and the string fallback (reported as not inferred).
func (h *heuristics) inferType(line string, c candidate, def string, hasDef bool) (spec.ParamType, bool) {
	if hasDef {
		return literalType(def)
	}
	if c.hint != "" {
		return c.hint, true
	}
	for _, r := range h.rules.usage {
		if matchRef(r.tmpl, c.name, line) {
			return r.typ, true
		}
	}
	return spec.TypeString, false
}

func literalType(v string) (spec.ParamType, bool) {
	v = strings.TrimSpace(v)
	switch {
	case intLitRe.MatchString(v):
		return spec.TypeInteger, true
	case numLitRe.MatchString(v):
		return spec.TypeNumber, true
	case v == "true", v == "false", v == "True", v == "False":
		return spec.TypeBoolean, true
	case arrayLikeRe.MatchString(v):
		return spec.TypeArray, true
	case quotedRe.MatchString(v):
		return spec.TypeString, true
	}
	return spec.TypeString, false
}

// refPattern matches a reference to the named parameter: a bare or dotted
// name, a subscript with the quoted key, or a getter call with the key.
func refPattern(name string) string {
	q := regexp.QuoteMeta(name)
	return `(?:(?:[\w$]+(?:\([^()]*\))?\.)*` + q + `\b` +
		`|[\w$.()]*\[\s*['"\x60]` + q + `['"\x60]\s*\]` +
		`|[\w$.()]*\.get(?:list)?\(\s*['"]` + q + `['"][^)]*\))`
}

func matchRef(tmpl, name, line string) bool {
	re, err := regexp.Compile(strings.ReplaceAll(tmpl, "{ref}", refPattern(name)))
	if err != nil {
		return false
	}
	return re.MatchString(line)
}

// fallbackAfter returns the right-hand side of a short-circuit default
// (`x || 10`, `x ?? 10`, `x or 10`) that directly follows an access.
func fallbackAfter(line string, end int, ops []string) (string, bool) {
	if end > len(line) {
		return "", false
	}
	rest := strings.TrimLeft(line[end:], " \t)")
	for _, op := range ops {
		if !strings.HasPrefix(rest, op) {
			continue
		}
		after := rest[len(op):]
		if isWord(op) && (after == "" || (after[0] != ' ' && after[0] != '\t')) {
			continue
		}
		v := strings.TrimSpace(untilTopLevel(after))
		if v == "" {
			return "", false
		}
		return v, true
	}
	return "", false
}

func isWord(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return s != ""
}

// untilTopLevel returns the prefix of s up to the first unbalanced
// terminator (`,` `;` `)` `]` `}`) or trailing comment, honoring quotes.
func untilTopLevel(s string) string {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				return s[:i]
			}
			depth--
		case ',', ';':
			if depth == 0 {
				return s[:i]
			}
		case '#':
			if depth == 0 {
				return s[:i]
			}
		case '/':
			if depth == 0 && i+1 < len(s) && s[i+1] == '/' {
				return s[:i]
			}
		}
	}
	return s
}

// splitTopLevel splits s on sep outside quotes and brackets.
func splitTopLevel(s string, sep byte) []string {
	var (
		out   []string
		depth int
		quote byte
		from  int
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			if depth > 0 {
				depth--
			}
		case ch == sep && depth == 0:
			out = append(out, s[from:i])
			from = i + 1
		}
	}
	return append(out, s[from:])
}

// assignIndex returns the index of the first top-level `=` that is an
// assignment rather than part of ==, =>, <=, >= or !=.
func assignIndex(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(s) && (s[i+1] == '=' || s[i+1] == '>') {
				i++
				continue
			}
			if i > 0 && strings.IndexByte("=<>!", s[i-1]) >= 0 {
				continue
			}
			return i
		}
	}
	return -1
}
