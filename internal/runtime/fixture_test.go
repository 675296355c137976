package runtime_test

import (
	"testing"

	"github.com/aretw0/parley/pkg/catalog"
	"github.com/stretchr/testify/require"
)

// newTestCatalog builds the catalog shared by the runtime tests:
//
//	HELLO -> ASK_NAME (stores "name") -> ASK_MOOD (stores "mood", options) -> MOOD ($_GREETING)
//	GREETING_HAPPY / GREETING_SAD end the tree. Answering "bye" to ASK_MOOD ends it in place.
func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Build(catalog.Documents{
		Dialogue: []catalog.NodeRecord{
			{ID: "HELLO", Response: "Hi there", NextResponseID: "ASK_NAME"},
			{ID: "ASK_NAME", Response: "What is your name?", NextResponseID: "ASK_MOOD", Stored: true, StorageKey: "name"},
			{ID: "ASK_MOOD", Response: "How do you feel today?", NextResponseID: "none", Stored: true, StorageKey: "mood",
				Options: map[string]string{
					"happy":      "MOOD",
					"sad":        "MOOD",
					"very happy": "MOOD",
					"skip":       "GHOST",
					"bye":        "END",
				}},
			{ID: "MOOD", Response: "$_GREETING", NextResponseID: "end"},
			{ID: "GREETING_HAPPY", Response: "Glad to hear!", NextResponseID: "end"},
			{ID: "GREETING_SAD", Response: "Sorry to hear that.", NextResponseID: "end"},
			{ID: "GHOST", Response: "$_NOWHERE", NextResponseID: "end"},
		},
		Gated: []catalog.IntentRecord{
			{Response: "It looks sunny.", ListOfWords: "weather today", RequiredWords: "weather"},
			{Response: "It is noon.", ListOfWords: "what time is it", RequiredWords: "time"},
		},
		Ungated: []catalog.IntentRecord{
			{Response: "Hello!", ListOfWords: "hello hi hey"},
			{Response: "Howdy!", ListOfWords: "hello hi hey"},
		},
	})
	require.NoError(t, err)
	return c
}
