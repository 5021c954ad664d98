// Package store holds the client state containers: session, onboarding,
// settings, and groceries, plus the derived list views and the
// auto-delete policy that runs over them. Each container owns one slice
// of state, updates it synchronously per delivered backend event, and
// notifies subscribers after every change.
package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/identity"
)

// SessionStore tracks the authenticated user. Resolving stays true
// until the identity provider delivers its first auth-change event,
// whether or not a user is present.
type SessionStore struct {
	log *zap.Logger

	mu        sync.Mutex
	user      *identity.User
	resolving bool

	notifier notifier
	cancel   func()
}

// NewSessionStore subscribes to the provider's auth-change stream.
func NewSessionStore(provider identity.Provider, log *zap.Logger) *SessionStore {
	s := &SessionStore{
		log:       log,
		resolving: true,
	}
	s.cancel = provider.AuthChanges(s.onAuthChange)
	return s
}

func (s *SessionStore) onAuthChange(user *identity.User) {
	s.mu.Lock()
	s.user = user
	s.resolving = false
	s.mu.Unlock()

	if user != nil {
		s.log.Debug("auth state changed", zap.String("userID", user.ID))
	} else {
		s.log.Debug("auth state changed", zap.String("userID", ""))
	}
	s.notifier.notify()
}

// Snapshot returns the current user (nil when signed out) and whether
// the stored credential is still being resolved.
func (s *SessionStore) Snapshot() (user *identity.User, resolving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.resolving
}

// Subscribe registers fn to run after every session change.
func (s *SessionStore) Subscribe(fn func()) (cancel func()) {
	return s.notifier.subscribe(fn)
}

// Close detaches from the auth-change stream.
func (s *SessionStore) Close() {
	s.cancel()
}
