package tests

import (
	"context"
	"testing"

	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CatalogLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.CatalogLoader.
// want is the set of documents the loader is expected to produce.
func CatalogLoaderContractTest(t *testing.T, loader ports.CatalogLoader, want catalog.Documents) {
	t.Helper()

	t.Run("Load_Documents", func(t *testing.T) {
		docs, err := loader.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want.Dialogue, docs.Dialogue)
		assert.Equal(t, want.Gated, docs.Gated)
		assert.Equal(t, want.Ungated, docs.Ungated)
	})

	t.Run("Load_Builds", func(t *testing.T) {
		c, err := catalog.Load(context.Background(), loader)
		require.NoError(t, err)
		nodes, intents := c.Len()
		assert.Equal(t, len(want.Dialogue), nodes)
		assert.Equal(t, len(want.Gated)+len(want.Ungated), intents)
	})

	t.Run("Load_Repeatable", func(t *testing.T) {
		first, err := loader.Load(context.Background())
		require.NoError(t, err)
		second, err := loader.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
