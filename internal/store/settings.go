package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/docstore"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/models"
)

const collectionSettings = "settings"

// SettingsUpdate names the settings fields a merge write may touch.
// Nil fields are left untouched on the stored document.
type SettingsUpdate struct {
	AutoDeleteExpired *bool
	DeleteAfterDays   *int
	ExpiringReminders *bool
}

// SettingsStore tracks the current user's settings document through a
// live subscription keyed by user id. When no document exists yet, one
// is synthesized from defaults and written through before publishing.
type SettingsStore struct {
	docs    docstore.Store
	session *SessionStore
	log     *zap.Logger
	clock   func() time.Time

	mu           sync.Mutex
	settings     *models.UserSettings
	loading      bool
	generation   int
	attached     bool
	attachedUser string
	cancelWatch  func()

	notifier      notifier
	cancelSession func()
}

// NewSettingsStore wires the store to the session and begins following
// the current user's settings document.
func NewSettingsStore(docs docstore.Store, session *SessionStore, log *zap.Logger) *SettingsStore {
	s := &SettingsStore{
		docs:    docs,
		session: session,
		log:     log,
		clock:   time.Now,
		loading: true,
	}
	s.cancelSession = session.Subscribe(s.onSessionChange)
	s.onSessionChange()
	return s
}

func (s *SettingsStore) onSessionChange() {
	// Unlike the grocery store, this store does not wait for identity
	// resolution: an unresolved session simply has no user yet.
	user, _ := s.session.Snapshot()

	s.mu.Lock()
	if user == nil {
		detach := s.detachLocked()
		s.attachedUser = ""
		s.settings = nil
		s.loading = false
		s.mu.Unlock()
		detach()
		s.notifier.notify()
		return
	}

	if s.attached && s.attachedUser == user.ID {
		s.mu.Unlock()
		return
	}

	detach := s.detachLocked()
	gen := s.generation
	s.attached = true
	s.attachedUser = user.ID
	s.settings = nil
	s.loading = true
	uid := user.ID
	s.mu.Unlock()
	detach()
	s.notifier.notify()

	cancel, err := s.docs.WatchDocument(collectionSettings, uid,
		func(doc *docstore.Document) { s.applyDocument(gen, uid, doc) },
		func(err error) { s.watchFailed(gen, err) },
	)
	if err != nil {
		s.watchFailed(gen, err)
		return
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancelWatch = cancel
	s.mu.Unlock()
}

// detachLocked clears the active subscription, advances the generation
// so any in-flight delivery from the old subscription is dropped, and
// returns the cancel func for the caller to invoke once the lock is
// released.
func (s *SettingsStore) detachLocked() func() {
	cancel := s.cancelWatch
	s.cancelWatch = nil
	s.attached = false
	s.generation++
	if cancel == nil {
		return func() {}
	}
	return cancel
}

// applyDocument handles one snapshot of the settings document.
// Out-of-generation deliveries from a detached subscription are
// dropped.
func (s *SettingsStore) applyDocument(gen int, userID string, doc *docstore.Document) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if doc == nil {
		s.createDefaults(gen, userID)
		return
	}

	// Stored fields are merged over defaults so documents written by
	// older versions keep working when fields are added.
	settings := models.DefaultSettings(userID)
	settings.UpdatedAt = s.clock().Format(time.RFC3339)
	if v, ok := doc.Fields["autoDeleteExpired"].(bool); ok {
		settings.AutoDeleteExpired = v
	}
	// Numbers come back as float64 after a JSON round trip and as int
	// when delivered straight from an in-process write.
	switch v := doc.Fields["deleteAfterDays"].(type) {
	case float64:
		settings.DeleteAfterDays = int(v)
	case int:
		settings.DeleteAfterDays = v
	}
	if v, ok := doc.Fields["expiringReminders"].(bool); ok {
		settings.ExpiringReminders = v
	}
	if v, ok := doc.Fields["updatedAt"].(string); ok {
		settings.UpdatedAt = v
	}

	s.publish(gen, &settings)
}

// createDefaults synthesizes the settings document for a new user,
// persists it, and publishes the synthesized values.
func (s *SettingsStore) createDefaults(gen int, userID string) {
	settings := models.DefaultSettings(userID)
	settings.UpdatedAt = s.clock().Format(time.RFC3339)

	fields := map[string]any{
		"userId":            settings.UserID,
		"autoDeleteExpired": settings.AutoDeleteExpired,
		"deleteAfterDays":   settings.DeleteAfterDays,
		"expiringReminders": settings.ExpiringReminders,
		"updatedAt":         settings.UpdatedAt,
	}
	if err := s.docs.Merge(context.Background(), collectionSettings, userID, fields); err != nil {
		s.log.Error("failed to create default settings", zap.String("userID", userID), zap.Error(err))
	}

	s.publish(gen, &settings)
}

func (s *SettingsStore) publish(gen int, settings *models.UserSettings) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.settings = settings
	s.loading = false
	s.mu.Unlock()
	s.notifier.notify()
}

// watchFailed clears the loading flag. Subscription errors are logged
// only; the stream is expected to recover on its own.
func (s *SettingsStore) watchFailed(gen int, err error) {
	s.log.Error("settings subscription error", zap.Error(err))

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.loading = false
	s.mu.Unlock()
	s.notifier.notify()
}

// UpdateSettings merges the named fields into the stored document and
// refreshes updatedAt. Without a signed-in user it is a no-op.
func (s *SettingsStore) UpdateSettings(ctx context.Context, update SettingsUpdate) error {
	user, _ := s.session.Snapshot()
	if user == nil {
		return nil
	}

	fields := map[string]any{
		"updatedAt": s.clock().Format(time.RFC3339),
	}
	if update.AutoDeleteExpired != nil {
		fields["autoDeleteExpired"] = *update.AutoDeleteExpired
	}
	if update.DeleteAfterDays != nil {
		fields["deleteAfterDays"] = *update.DeleteAfterDays
	}
	if update.ExpiringReminders != nil {
		fields["expiringReminders"] = *update.ExpiringReminders
	}

	return s.docs.Merge(ctx, collectionSettings, user.ID, fields)
}

// Snapshot returns the published settings (nil when signed out or not
// yet loaded) and the loading flag.
func (s *SettingsStore) Snapshot() (settings *models.UserSettings, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, s.loading
}

// Subscribe registers fn to run after every change.
func (s *SettingsStore) Subscribe(fn func()) (cancel func()) {
	return s.notifier.subscribe(fn)
}

// Close detaches the live subscription and the session observer.
func (s *SettingsStore) Close() {
	s.cancelSession()
	s.mu.Lock()
	detach := s.detachLocked()
	s.mu.Unlock()
	detach()
}
