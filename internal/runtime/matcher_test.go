package runtime_test

import (
	"testing"

	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_GatedEntry(t *testing.T) {
	entry := domain.IntentEntry{
		Response:        "It looks sunny.",
		RecognizedWords: []string{"weather", "today"},
		RequiredWords:   []string{"weather"},
	}

	assert.Equal(t, 50, runtime.Score([]string{"what", "is", "the", "weather"}, entry))
	assert.Equal(t, 100, runtime.Score([]string{"weather", "today"}, entry))
	assert.Equal(t, 0, runtime.Score([]string{"today"}, entry), "missing required word scores zero")
}

func TestScore_UngatedIgnoresRequiredWords(t *testing.T) {
	entry := domain.IntentEntry{
		Response:        "Hello!",
		RecognizedWords: []string{"hello", "hi", "hey"},
		RequiredWords:   []string{"never"},
		SingleResponse:  true,
	}
	assert.Equal(t, 33, runtime.Score([]string{"hi"}, entry))
	assert.Equal(t, 66, runtime.Score([]string{"hi", "hey"}, entry))
}

func TestScore_RepeatedTokensDoNotInflate(t *testing.T) {
	entry := domain.IntentEntry{RecognizedWords: []string{"hi", "there"}, SingleResponse: true}
	assert.Equal(t, 50, runtime.Score([]string{"hi", "hi", "hi"}, entry))
}

func TestScore_RepeatedRecognizedWordsCountOnce(t *testing.T) {
	entry := domain.IntentEntry{RecognizedWords: []string{"hi", "hi", "hello"}, SingleResponse: true}
	assert.Equal(t, 33, runtime.Score([]string{"hi"}, entry))
	assert.Equal(t, 66, runtime.Score([]string{"hi", "hello"}, entry))
}

func TestScore_MonotonicInOverlap(t *testing.T) {
	entry := domain.IntentEntry{
		RecognizedWords: []string{"a", "b", "c", "d", "e", "f", "g"},
		SingleResponse:  true,
	}
	prev := -1
	tokens := []string{"noise"}
	for _, w := range entry.RecognizedWords {
		tokens = append(tokens, w)
		score := runtime.Score(tokens, entry)
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}
	assert.Equal(t, 100, prev)
}

func TestScore_GatedMissingAnyRequiredWord(t *testing.T) {
	entry := domain.IntentEntry{
		RecognizedWords: []string{"book", "flight", "paris"},
		RequiredWords:   []string{"book", "flight"},
	}
	assert.Zero(t, runtime.Score([]string{"book", "paris"}, entry))
	assert.Zero(t, runtime.Score([]string{"flight", "paris"}, entry))
	assert.Equal(t, 100, runtime.Score([]string{"book", "flight", "paris"}, entry))
}

func TestMatcher_Match(t *testing.T) {
	m := runtime.NewMatcher(newTestCatalog(t))

	got := m.Match(runtime.Tokenize("What is the weather?"))
	assert.Equal(t, "It looks sunny.", got.Label)
	assert.Equal(t, 50, got.Score)
	assert.False(t, got.LowConfidence)
}

func TestMatcher_TieGoesToFirstInLoadOrder(t *testing.T) {
	m := runtime.NewMatcher(newTestCatalog(t))

	got := m.Match([]string{"hey"})
	assert.Equal(t, "Hello!", got.Label, "Hello! and Howdy! tie; Hello! loads first")
	assert.Equal(t, 33, got.Score)
}

func TestMatcher_GatedBeforeUngatedOnTie(t *testing.T) {
	c, err := catalog.Build(catalog.Documents{
		Dialogue: []catalog.NodeRecord{{ID: "HELLO", Response: "hi", NextResponseID: "end"}},
		Gated:    []catalog.IntentRecord{{Response: "gated", ListOfWords: "hi there", RequiredWords: "hi"}},
		Ungated:  []catalog.IntentRecord{{Response: "ungated", ListOfWords: "hi there"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "gated", runtime.NewMatcher(c).Match([]string{"hi"}).Label)
}

func TestMatcher_LowConfidenceStillReturnsLabel(t *testing.T) {
	m := runtime.NewMatcher(newTestCatalog(t))

	got := m.Match(runtime.Tokenize("completely unrelated"))
	assert.Equal(t, "It looks sunny.", got.Label, "first entry wins an all-zero tie")
	assert.Zero(t, got.Score)
	assert.True(t, got.LowConfidence)
}
