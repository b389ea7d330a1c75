package extract

import "github.com/autodocs/autodocs/internal/spec"

// Merge unions path and heuristic parameters with declared tags.
//
// Entries are keyed by (location, name); the first one seen wins. A tag
// enriches the first entry carrying its name, searching path, query then
// body: its type replaces a fallback type and its description replaces the
// placeholder. Location and required are never touched. Tags naming
// nothing observed in code are dropped. The inputs are not modified.
func Merge(path, heuristic []spec.Parameter, tags []spec.TagParameter) []spec.Parameter {
	groups := make(map[spec.Location][]spec.Parameter, len(spec.Locations))
	index := map[paramKey]int{}
	add := func(p spec.Parameter) {
		k := paramKey{in: p.In, name: p.Name}
		if _, dup := index[k]; dup || p.Name == "" {
			return
		}
		if p.Default != nil {
			d := *p.Default
			p.Default = &d
		}
		index[k] = len(groups[p.In])
		groups[p.In] = append(groups[p.In], p)
	}
	for _, p := range path {
		add(p)
	}
	for _, p := range heuristic {
		add(p)
	}

	for _, tag := range tags {
		for _, loc := range spec.Locations {
			i, ok := index[paramKey{in: loc, name: tag.Name}]
			if !ok {
				continue
			}
			enrich(&groups[loc][i], tag)
			break
		}
	}

	var out []spec.Parameter
	for _, loc := range spec.Locations {
		out = append(out, groups[loc]...)
	}
	return out
}

func enrich(p *spec.Parameter, tag spec.TagParameter) {
	if tag.Type != "" && (p.Type == "" || !p.TypeInferred) {
		p.Type = tag.Type
		p.TypeInferred = true
	}
	if tag.Description != "" && (p.Description == "" || p.Description == spec.NoDescription) {
		p.Description = tag.Description
	}
}
