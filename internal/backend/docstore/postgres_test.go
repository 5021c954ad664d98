package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/docstore"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/testhelpers"
)

// TestPostgresRoundTrip exercises the store against a real PostgreSQL
// instance. It is skipped when Docker is unavailable.
func TestPostgresRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store := newStoreOn(t, testhelpers.NewPostgresDB(t))
	ctx := context.Background()

	id, err := store.Create(ctx, "groceries", map[string]any{
		"userId":         "alice",
		"name":           "Milk",
		"category":       "dairy",
		"purchaseDate":   "2026-01-01",
		"expirationDate": "2026-01-08",
	})
	require.NoError(t, err)

	require.NoError(t, store.Merge(ctx, "groceries", id, map[string]any{
		"expirationDate": "2026-01-10",
	}))

	docs, err := store.Query(ctx, "groceries", docstore.Filter{Field: "userId", Value: "alice"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Milk", docs[0].Fields["name"])
	assert.Equal(t, "2026-01-10", docs[0].Fields["expirationDate"])

	require.NoError(t, store.Delete(ctx, "groceries", id))
	docs, err = store.Query(ctx, "groceries", docstore.Filter{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}
