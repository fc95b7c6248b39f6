package ingest

import (
	"sort"
	"strings"

	"github.com/hpungsan/rhizome/internal/note"
)

// BuildHyperedges derives the hypergraph from parsed notes:
//
//	tag    edges group notes sharing a tag (case-folded, "#" stripped)
//	folder edges group notes in the same vault directory
//	alias  edges group notes sharing an alias (case-folded)
//
// Edges are ordered by type then value; members keep first-seen order.
func BuildHyperedges(notes []*note.Note) []note.Hyperedge {
	type key struct {
		edgeType note.HyperedgeType
		value    string
	}
	members := map[key][]string{}
	present := map[key]map[string]bool{}

	add := func(t note.HyperedgeType, value, slug string) {
		if value == "" {
			return
		}
		k := key{t, value}
		if present[k] == nil {
			present[k] = map[string]bool{}
		}
		if present[k][slug] {
			return
		}
		present[k][slug] = true
		members[k] = append(members[k], slug)
	}

	for _, n := range notes {
		for _, tag := range n.Tags {
			add(note.HyperedgeTag, strings.ToLower(strings.TrimPrefix(tag, "#")), n.Slug)
		}
		add(note.HyperedgeFolder, note.Folder(n.FilePath), n.Slug)
		for _, alias := range n.Aliases {
			add(note.HyperedgeAlias, strings.ToLower(alias), n.Slug)
		}
	}

	keys := make([]key, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].edgeType != keys[j].edgeType {
			return keys[i].edgeType < keys[j].edgeType
		}
		return keys[i].value < keys[j].value
	})

	edges := make([]note.Hyperedge, len(keys))
	for i, k := range keys {
		edges[i] = note.Hyperedge{
			EdgeType:  k.edgeType,
			EdgeValue: k.value,
			Members:   members[k],
		}
	}
	return edges
}
