package pipeline

import "horse.fit/agentwire/internal/domain"

// DedupeResult carries the surviving items plus the counts operators use
// to see where a batch shrank.
type DedupeResult struct {
	Items         []domain.Item
	AlreadyPosted int
	Collapsed     int
}

// Dedupe drops items whose fingerprint is already in the posted set and
// collapses in-batch duplicates, keeping the candidate with the higher
// score, then the more recent publish time; ties keep the first seen. The
// output never contains two items with the same fingerprint and none of
// its fingerprints appear in posted.
func Dedupe(items []domain.Item, posted map[string]struct{}) DedupeResult {
	result := DedupeResult{Items: make([]domain.Item, 0, len(items))}
	keptIndex := make(map[string]int, len(items))

	for _, item := range items {
		if _, seen := posted[item.Fingerprint]; seen {
			result.AlreadyPosted++
			continue
		}

		index, dup := keptIndex[item.Fingerprint]
		if !dup {
			keptIndex[item.Fingerprint] = len(result.Items)
			result.Items = append(result.Items, item)
			continue
		}

		result.Collapsed++
		if beats(item, result.Items[index]) {
			result.Items[index] = item
		}
	}

	return result
}

// beats reports whether a dominates b by (score, published_at)
// lexicographic order. Strict: equal candidates keep the incumbent.
func beats(a, b domain.Item) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.PublishedAt.After(b.PublishedAt)
}
