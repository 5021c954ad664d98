package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/identity"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/testhelpers"
)

// autoDeleteFixture wires the full store graph over fakes. The policy
// clock is pinned before any user signs in so every evaluation that can
// delete something runs against the fixed "today".
type autoDeleteFixture struct {
	docs      *testhelpers.FakeDocStore
	auth      *testhelpers.FakeIdentity
	session   *SessionStore
	settings  *SettingsStore
	groceries *GroceryStore
	policy    *AutoDeletePolicy
}

func newAutoDeleteFixture(t *testing.T, today time.Time) *autoDeleteFixture {
	t.Helper()

	f := &autoDeleteFixture{
		docs: testhelpers.NewFakeDocStore(),
		auth: testhelpers.NewFakeIdentity(),
	}
	f.session = NewSessionStore(f.auth, zap.NewNop())
	f.settings = NewSettingsStore(f.docs, f.session, zap.NewNop())
	f.groceries = NewGroceryStore(f.docs, f.session, zap.NewNop())
	f.policy = NewAutoDeletePolicy(f.groceries, f.settings, zap.NewNop())
	f.policy.clock = func() time.Time { return today }

	t.Cleanup(func() {
		f.policy.Close()
		f.groceries.Close()
		f.settings.Close()
		f.session.Close()
	})
	return f
}

func (f *autoDeleteFixture) seedSettings(userID string, autoDelete bool, afterDays int) {
	f.docs.Seed(collectionSettings, userID, map[string]any{
		"userId":            userID,
		"autoDeleteExpired": autoDelete,
		"deleteAfterDays":   afterDays,
		"expiringReminders": true,
		"updatedAt":         "2026-01-01T00:00:00Z",
	})
}

func TestAutoDeleteRemovesItemsPastThreshold(t *testing.T) {
	today := time.Date(2026, time.January, 10, 15, 0, 0, 0, time.UTC)
	f := newAutoDeleteFixture(t, today)

	f.seedSettings("alice", true, 3)
	seedItem(f.docs, "g-old", "alice", "old cheese", "2026-01-06")   // 4 days over
	seedItem(f.docs, "g-new", "alice", "newer cheese", "2026-01-08") // 2 days over

	f.auth.Emit(&identity.User{ID: "alice"})

	assert.Equal(t, 1, f.docs.DeleteCalls("g-old"), "exactly one delete for the qualifying item")
	assert.Equal(t, 0, f.docs.DeleteCalls("g-new"))

	items, _ := f.groceries.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "newer cheese", items[0].Name)
}

func TestAutoDeleteDisabledSuppressesAllDeletes(t *testing.T) {
	today := time.Date(2026, time.January, 10, 15, 0, 0, 0, time.UTC)
	f := newAutoDeleteFixture(t, today)

	f.seedSettings("alice", false, 1)
	seedItem(f.docs, "g-ancient", "alice", "forgotten yogurt", "2025-06-01")

	f.auth.Emit(&identity.User{ID: "alice"})

	assert.Equal(t, 0, f.docs.DeleteCalls("g-ancient"))
	items, _ := f.groceries.Snapshot()
	assert.Len(t, items, 1)
}

func TestAutoDeleteIssuesOneDeletePerItemPerPass(t *testing.T) {
	today := time.Date(2026, time.January, 10, 15, 0, 0, 0, time.UTC)
	f := newAutoDeleteFixture(t, today)

	f.seedSettings("alice", true, 3)
	seedItem(f.docs, "g1", "alice", "a", "2026-01-01")
	seedItem(f.docs, "g2", "alice", "b", "2026-01-02")
	seedItem(f.docs, "g3", "alice", "c", "2026-01-03")

	f.auth.Emit(&identity.User{ID: "alice"})

	// Each delete triggers a fresh snapshot and a re-entrant
	// evaluation; none of that may double up delete calls.
	assert.Equal(t, 1, f.docs.DeleteCalls("g1"))
	assert.Equal(t, 1, f.docs.DeleteCalls("g2"))
	assert.Equal(t, 1, f.docs.DeleteCalls("g3"))

	items, _ := f.groceries.Snapshot()
	assert.Empty(t, items)
}

func TestAutoDeleteFailuresDoNotBlockOtherItems(t *testing.T) {
	today := time.Date(2026, time.January, 10, 15, 0, 0, 0, time.UTC)
	f := newAutoDeleteFixture(t, today)

	f.seedSettings("alice", true, 3)
	seedItem(f.docs, "g-stuck", "alice", "stuck", "2026-01-01")
	seedItem(f.docs, "g-fine", "alice", "fine", "2026-01-02")
	f.docs.DeleteErr["g-stuck"] = errors.New("backend rejected delete")

	f.auth.Emit(&identity.User{ID: "alice"})

	assert.Equal(t, 1, f.docs.DeleteCalls("g-fine"))
	assert.GreaterOrEqual(t, f.docs.DeleteCalls("g-stuck"), 1)

	items, _ := f.groceries.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "stuck", items[0].Name)
}

func TestAutoDeleteRespectsUpdatedThreshold(t *testing.T) {
	today := time.Date(2026, time.January, 10, 15, 0, 0, 0, time.UTC)
	f := newAutoDeleteFixture(t, today)

	f.seedSettings("alice", true, 7)
	seedItem(f.docs, "g1", "alice", "three days over", "2026-01-07")

	f.auth.Emit(&identity.User{ID: "alice"})
	assert.Equal(t, 0, f.docs.DeleteCalls("g1"))

	// Tightening the threshold re-evaluates reactively.
	days := 2
	require.NoError(t, f.settings.UpdateSettings(context.Background(), SettingsUpdate{DeleteAfterDays: &days}))
	assert.Equal(t, 1, f.docs.DeleteCalls("g1"))
}
