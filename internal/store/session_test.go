package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/identity"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/testhelpers"
)

func TestSessionStoreResolvesOnFirstEvent(t *testing.T) {
	auth := testhelpers.NewFakeIdentity()
	store := NewSessionStore(auth, zap.NewNop())
	defer store.Close()

	user, resolving := store.Snapshot()
	assert.Nil(t, user)
	assert.True(t, resolving)

	// The first event clears resolving even when nobody is signed in.
	auth.Emit(nil)

	user, resolving = store.Snapshot()
	assert.Nil(t, user)
	assert.False(t, resolving)
}

func TestSessionStoreReplacesUserOnEachEvent(t *testing.T) {
	auth := testhelpers.NewFakeIdentity()
	store := NewSessionStore(auth, zap.NewNop())
	defer store.Close()

	auth.Emit(&identity.User{ID: "alice"})
	user, _ := store.Snapshot()
	assert.Equal(t, "alice", user.ID)

	auth.Emit(&identity.User{ID: "bob"})
	user, _ = store.Snapshot()
	assert.Equal(t, "bob", user.ID)

	auth.Emit(nil)
	user, _ = store.Snapshot()
	assert.Nil(t, user)
}

func TestSessionStoreNotifiesSubscribers(t *testing.T) {
	auth := testhelpers.NewFakeIdentity()
	store := NewSessionStore(auth, zap.NewNop())
	defer store.Close()

	calls := 0
	cancel := store.Subscribe(func() { calls++ })

	auth.Emit(&identity.User{ID: "alice"})
	assert.Equal(t, 1, calls)

	cancel()
	auth.Emit(nil)
	assert.Equal(t, 1, calls, "canceled subscriber no longer notified")
}
