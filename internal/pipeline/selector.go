package pipeline

import (
	"sort"

	"horse.fit/agentwire/internal/domain"
)

// Rank orders items descending by score, then by publish time for equal
// scores. The sort is stable so equal items keep their batch order, which
// keeps selection deterministic.
func Rank(items []domain.Item) []domain.Item {
	ranked := make([]domain.Item, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].PublishedAt.After(ranked[j].PublishedAt)
	})
	return ranked
}

// Select walks a ranked sequence once, skipping items whose domain already
// hit maxPerDomain and stopping at maxTotal accepted items. Skipped items
// never count toward the total. When every candidate shares one domain, at
// most maxPerDomain survive; that is the anti-spam cap working as intended.
func Select(items []domain.Item, maxTotal, maxPerDomain int) []domain.Item {
	selected := make([]domain.Item, 0, maxTotal)
	domainCounts := make(map[string]int)

	for _, item := range items {
		if len(selected) >= maxTotal {
			break
		}
		if domainCounts[item.Domain] >= maxPerDomain {
			continue
		}
		selected = append(selected, item)
		domainCounts[item.Domain]++
	}
	return selected
}
