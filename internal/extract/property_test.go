package extract

import (
	"strings"
	"testing"

	"github.com/autodocs/autodocs/internal/spec"
	"github.com/shoenig/test/must"
	"pgregory.net/rapid"
)

var expressSnippets = []string{
	"  const v = req.query.{n} || {d};",
	"  const v = req.query.{n} ?? {d};",
	"  if (!req.body.{n}) return res.status(400).end();",
	"  const { {n}, other = {d} } = req.body;",
	"  const { {n} } = req.body;",
	"  const v = parseInt(req.query.{n});",
	"  if (req.query.{n} === 'true') flag = {d};",
	"  const q = req.query;",
	"  const w = q.{n} || {d};",
	"  const z = req.body['{n}'];",
	"  res.json({ ok: true });",
}

var flaskSnippets = []string{
	"    v = request.args.get('{n}', {d})",
	"    v = request.args.get('{n}')",
	"    if not request.form.get('{n}'):",
	"    v = request.args.get('{n}') or {d}",
	"    data = request.get_json()",
	"    v = data['{n}']",
	"    v = int(request.args['{n}'])",
	"    return jsonify(ok=True)",
}

var defaults = []string{"1", "2.5", "true", "'x'", "[]", "null", "None", "other", "undefined"}

func genBody(snippets []string) *rapid.Generator[[]string] {
	return rapid.Custom(func(t *rapid.T) []string {
		n := rapid.IntRange(0, 40).Draw(t, "lines")
		out := make([]string, 0, n)
		for i := 0; i < n; i++ {
			r := strings.NewReplacer(
				"{n}", rapid.StringMatching(`[a-z][a-z0-9_]{0,5}`).Draw(t, "name"),
				"{d}", rapid.SampledFrom(defaults).Draw(t, "default"),
			)
			out = append(out, r.Replace(rapid.SampledFrom(snippets).Draw(t, "snippet")))
		}
		return out
	})
}

func checkParameters(t *rapid.T, docs []spec.RouteDocument) {
	for _, doc := range docs {
		seen := map[string]bool{}
		for _, p := range doc.Parameters {
			if p.Required {
				must.Nil(t, p.Default, must.Sprintf("%s is required but has a default", p.Name))
			}
			key := string(p.In) + ":" + p.Name
			must.False(t, seen[key], must.Sprintf("duplicate parameter %s", key))
			seen[key] = true
		}
	}
}

func TestProperty_Express(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		body := genBody(expressSnippets).Draw(t, "body")
		src := append([]string{"// handler", "app.post('/items/:id', (req, res) => {"}, body...)
		src = append(src, "});")

		d := NewExpress()
		first := Routes(src, d)
		must.Len(t, 1, first)
		checkParameters(t, first)
		must.Eq(t, first, Routes(src, d))
	})
}

func TestProperty_Flask(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		body := genBody(flaskSnippets).Draw(t, "body")
		src := append([]string{"# handler", "@app.route('/items/<int:id>', methods=['GET', 'POST'])", "def items(id):"}, body...)

		d := NewFlask()
		first := Routes(src, d)
		must.Len(t, 2, first)
		checkParameters(t, first)
		must.Eq(t, first, Routes(src, d))
	})
}

func TestProperty_LineCommentDescription(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[A-Za-z0-9]+( [A-Za-z0-9]+){0,5}`).Draw(t, "text")
		pad := strings.Repeat(" ", rapid.IntRange(0, 4).Draw(t, "pad"))
		src := []string{pad + "//" + pad + text + pad, "app.get('/x', h)"}
		docs := Routes(src, NewExpress())
		must.Len(t, 1, docs)
		must.Eq(t, text, docs[0].Description.Description)
	})
}

func TestProperty_MergeNeverAddsParameters(t *testing.T) {
	names := rapid.SampledFrom([]string{"a", "b", "c", "d", "e"})
	locs := rapid.SampledFrom([]spec.Location{spec.InQuery, spec.InBody})
	rapid.Check(t, func(t *rapid.T) {
		var heur []spec.Parameter
		for i, n := 0, rapid.IntRange(0, 8).Draw(t, "heuristics"); i < n; i++ {
			heur = append(heur, heuristic(names.Draw(t, "name"), locs.Draw(t, "loc")))
		}
		var tags []spec.TagParameter
		for i, n := 0, rapid.IntRange(0, 8).Draw(t, "tags"); i < n; i++ {
			tags = append(tags, spec.TagParameter{Name: names.Draw(t, "tag"), Type: spec.TypeInteger, Description: "doc"})
		}
		path := []spec.Parameter{pathParameter("id", spec.TypeString, false)}

		observed := map[string]bool{"path:id": true}
		for _, p := range heur {
			observed[string(p.In)+":"+p.Name] = true
		}
		merged := Merge(path, heur, tags)
		must.LessEq(t, len(observed), len(merged))
		for _, p := range merged {
			must.True(t, observed[string(p.In)+":"+p.Name])
		}
	})
}
