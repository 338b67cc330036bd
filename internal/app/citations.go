package app

import (
	"sort"

	"paperqa/internal/chunkstore"
	"paperqa/internal/model"
)

// BuildCitations aggregates the chunks actually placed in the prompt
// context into deduplicated citations: one entry per distinct
// (source, page) pair, counted, ordered by descending count and tie-broken
// by first appearance in the context.
func BuildCitations(contextChunks []chunkstore.Chunk) []model.Citation {
	if len(contextChunks) == 0 {
		return []model.Citation{}
	}

	type key struct {
		source string
		page   int
	}
	counts := make(map[key]int)
	firstSeen := make(map[key]int)
	var order []key

	for i, c := range contextChunks {
		k := key{source: c.Source, page: c.Page}
		if _, ok := counts[k]; !ok {
			firstSeen[k] = i
			order = append(order, k)
		}
		counts[k]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})

	citations := make([]model.Citation, len(order))
	for i, k := range order {
		citations[i] = model.Citation{Source: k.source, Page: k.page, Count: counts[k]}
	}
	return citations
}
