package runtime

import (
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
)

// Match is the outcome of scoring one utterance against the intent corpora.
type Match struct {
	Label string
	Score int
	// LowConfidence is set when the winning score is below 1.
	LowConfidence bool
}

// Matcher scores free text against the intent entries of a catalog.
type Matcher struct {
	catalog *catalog.Catalog
}

// NewMatcher creates a matcher bound to a catalog.
func NewMatcher(c *catalog.Catalog) *Matcher {
	return &Matcher{catalog: c}
}

// Match returns the entry with the highest score. Ties go to the entry that
// comes first in catalog order. A label is always returned when the catalog
// has at least one entry.
func (m *Matcher) Match(tokens []string) Match {
	present := tokenSet(tokens)

	best := Match{Score: -1}
	for entry := range m.catalog.Entries() {
		score := scoreSet(present, entry)
		if score > best.Score {
			best = Match{Label: entry.Response, Score: score}
		}
	}
	if best.Score < 0 {
		best.Score = 0
	}
	best.LowConfidence = best.Score < 1
	return best
}

// Score computes floor(100 * overlap / |recognized|) for one entry, where overlap
// is the number of distinct recognized words present in tokens. Gated entries score 0
// unless every required word is present.
func Score(tokens []string, entry domain.IntentEntry) int {
	return scoreSet(tokenSet(tokens), entry)
}

func scoreSet(present map[string]struct{}, entry domain.IntentEntry) int {
	if !entry.SingleResponse {
		for _, w := range entry.RequiredWords {
			if _, ok := present[w]; !ok {
				return 0
			}
		}
	}
	if len(entry.RecognizedWords) == 0 {
		return 0
	}

	// A recognized word listed twice is still one hit.
	hits := 0
	counted := make(map[string]bool, len(entry.RecognizedWords))
	for _, w := range entry.RecognizedWords {
		if _, ok := present[w]; ok && !counted[w] {
			counted[w] = true
			hits++
		}
	}
	return hits * 100 / len(entry.RecognizedWords)
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
