package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/catalog"
	contract "github.com/aretw0/parley/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocs() catalog.Documents {
	return catalog.Documents{
		Dialogue: []catalog.NodeRecord{
			{ID: "HELLO", Response: "Hi there", NextResponseID: "ASK"},
			{ID: "ASK", Response: "Tea or coffee?", NextResponseID: "none", Options: map[string]string{"tea": "BYE", "coffee": "BYE"}},
			{ID: "BYE", Response: "Enjoy!", NextResponseID: "end"},
		},
		Gated:   []catalog.IntentRecord{{Response: "Sunny", ListOfWords: "weather today", RequiredWords: "weather"}},
		Ungated: []catalog.IntentRecord{{Response: "Hello!", ListOfWords: "hello hi"}},
	}
}

func TestInMemoryLoader_Contract(t *testing.T) {
	docs := testDocs()
	contract.CatalogLoaderContractTest(t, memory.NewLoader(docs), docs)
}

func TestInMemoryLoader_CopiesOptions(t *testing.T) {
	loader := memory.NewLoader(testDocs())

	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	docs.Dialogue[1].Options["juice"] = "BYE"

	again, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, again.Dialogue[1].Options, "juice")
}

func TestInMemoryLoader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := memory.NewLoader(testDocs()).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
