// Package evidence picks which scanned windows go into the prompt.
package evidence

import (
	"sort"

	"toacrd.app/oracle/internal/model"
)

const DefaultCap = 5

// Rank orders documents by hit count, highest first. Ties are broken by name
// so the ranking does not depend on map iteration order.
func Rank(usage model.UsageCounts) []model.DocumentUsage {
	ranked := make([]model.DocumentUsage, 0, len(usage))
	for doc, hits := range usage {
		ranked = append(ranked, model.DocumentUsage{Document: doc, Hits: hits})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Hits != ranked[j].Hits {
			return ranked[i].Hits > ranked[j].Hits
		}
		return ranked[i].Document < ranked[j].Document
	})
	return ranked
}

// Select keeps the windows of ranked documents, ordered by their document's
// rank (scan order within a document), and returns at most limit of them.
// The limit applies to the flattened list, so one document can fill it.
func Select(windows []model.EvidenceWindow, usage model.UsageCounts, limit int) []model.EvidenceWindow {
	if limit <= 0 {
		limit = DefaultCap
	}

	ranked := Rank(usage)
	position := make(map[string]int, len(ranked))
	for i, d := range ranked {
		if d.Hits > 0 {
			position[d.Document] = i
		}
	}

	kept := make([]model.EvidenceWindow, 0, len(windows))
	for _, w := range windows {
		if _, ok := position[w.Document]; ok {
			kept = append(kept, w)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return position[kept[i].Document] < position[kept[j].Document]
	})

	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}
