package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/docstore"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/testhelpers"
)

func newStore(t *testing.T) *docstore.GormStore {
	t.Helper()
	return newStoreOn(t, testhelpers.NewSQLiteDB(t))
}

func newStoreOn(t *testing.T, db *gorm.DB) *docstore.GormStore {
	t.Helper()
	store, err := docstore.NewGormStore(db, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestCreateAndQuery(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "groceries", map[string]any{
		"userId": "alice",
		"name":   "Milk",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = store.Create(ctx, "groceries", map[string]any{
		"userId": "bob",
		"name":   "Eggs",
	})
	require.NoError(t, err)

	docs, err := store.Query(ctx, "groceries", docstore.Filter{Field: "userId", Value: "alice"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0].ID)
	assert.Equal(t, "Milk", docs[0].Fields["name"])
}

func TestQueryPreservesCreationOrder(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, "groceries", map[string]any{"name": "a"})
	require.NoError(t, err)
	second, err := store.Create(ctx, "groceries", map[string]any{"name": "b"})
	require.NoError(t, err)

	docs, err := store.Query(ctx, "groceries", docstore.Filter{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, first, docs[0].ID)
	assert.Equal(t, second, docs[1].ID)
}

func TestMergeTouchesOnlyNamedFields(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "groceries", map[string]any{
		"name":           "Milk",
		"expirationDate": "2026-01-08",
		"photoUrl":       "https://example.test/milk.jpg",
	})
	require.NoError(t, err)

	require.NoError(t, store.Merge(ctx, "groceries", id, map[string]any{
		"name": "Whole milk",
	}))

	docs, err := store.Query(ctx, "groceries", docstore.Filter{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Whole milk", docs[0].Fields["name"])
	assert.Equal(t, "2026-01-08", docs[0].Fields["expirationDate"])
	assert.Equal(t, "https://example.test/milk.jpg", docs[0].Fields["photoUrl"])
}

func TestMergeCreatesMissingDocument(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, "settings", "alice", map[string]any{
		"autoDeleteExpired": true,
		"deleteAfterDays":   3,
	}))

	docs, err := store.Query(ctx, "settings", docstore.Filter{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "alice", docs[0].ID)
	// Numbers come back as float64 after the JSON round trip.
	assert.Equal(t, float64(3), docs[0].Fields["deleteAfterDays"])
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "groceries", map[string]any{"name": "Milk"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "groceries", id))
	require.NoError(t, store.Delete(ctx, "groceries", id))
	require.NoError(t, store.Delete(ctx, "groceries", "never-existed"))

	docs, err := store.Query(ctx, "groceries", docstore.Filter{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestWatchDeliversInitialAndUpdatedSnapshots(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "groceries", map[string]any{"userId": "alice", "name": "Milk"})
	require.NoError(t, err)

	var snapshots [][]docstore.Document
	cancel, err := store.Watch("groceries",
		docstore.Filter{Field: "userId", Value: "alice"},
		func(docs []docstore.Document) { snapshots = append(snapshots, docs) },
		nil,
	)
	require.NoError(t, err)
	defer cancel()

	require.Len(t, snapshots, 1, "initial snapshot delivered on attach")
	require.Len(t, snapshots[0], 1)

	_, err = store.Create(ctx, "groceries", map[string]any{"userId": "alice", "name": "Eggs"})
	require.NoError(t, err)

	require.Len(t, snapshots, 2)
	assert.Len(t, snapshots[1], 2)

	// A write for another user still re-queries, but the filtered
	// result set is unchanged.
	_, err = store.Create(ctx, "groceries", map[string]any{"userId": "bob", "name": "Tofu"})
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	assert.Len(t, snapshots[2], 2)
}

func TestWatchStopsAfterCancel(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	deliveries := 0
	cancel, err := store.Watch("groceries", docstore.Filter{},
		func([]docstore.Document) { deliveries++ },
		nil,
	)
	require.NoError(t, err)
	require.Equal(t, 1, deliveries)

	cancel()
	_, err = store.Create(ctx, "groceries", map[string]any{"name": "Milk"})
	require.NoError(t, err)
	assert.Equal(t, 1, deliveries)
}

func TestWatchDocumentReportsAbsence(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	var docs []*docstore.Document
	cancel, err := store.WatchDocument("settings", "alice",
		func(doc *docstore.Document) { docs = append(docs, doc) },
		nil,
	)
	require.NoError(t, err)
	defer cancel()

	require.Len(t, docs, 1)
	assert.Nil(t, docs[0], "absent document reported as nil")

	require.NoError(t, store.Merge(ctx, "settings", "alice", map[string]any{
		"autoDeleteExpired": false,
	}))

	require.Len(t, docs, 2)
	require.NotNil(t, docs[1])
	assert.Equal(t, false, docs[1].Fields["autoDeleteExpired"])
}
