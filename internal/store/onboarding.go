package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/kv"
)

const onboardingKey = "onboarding_completed_v1"

// OnboardingStore tracks whether first-run setup has been completed.
// The flag is device-global, not per account: signing in as a different
// user on the same device inherits it.
type OnboardingStore struct {
	local kv.Store
	log   *zap.Logger

	mu        sync.Mutex
	completed bool
	resolving bool

	notifier notifier
}

// NewOnboardingStore reads the persisted flag in the background;
// Snapshot reports resolving until that read completes.
func NewOnboardingStore(local kv.Store, log *zap.Logger) *OnboardingStore {
	s := &OnboardingStore{
		local:     local,
		log:       log,
		resolving: true,
	}
	go s.load()
	return s
}

func (s *OnboardingStore) load() {
	value, ok, err := s.local.Get(onboardingKey)
	if err != nil {
		s.log.Warn("failed to read onboarding flag", zap.Error(err))
	}

	s.mu.Lock()
	s.completed = err == nil && ok && value == "true"
	s.resolving = false
	s.mu.Unlock()
	s.notifier.notify()
}

// MarkCompleted persists the flag and updates in-memory state.
func (s *OnboardingStore) MarkCompleted() error {
	if err := s.local.Set(onboardingKey, "true"); err != nil {
		return err
	}

	s.mu.Lock()
	s.completed = true
	s.mu.Unlock()
	s.notifier.notify()
	return nil
}

// Reset removes the flag so onboarding runs again.
func (s *OnboardingStore) Reset() error {
	if err := s.local.Remove(onboardingKey); err != nil {
		return err
	}

	s.mu.Lock()
	s.completed = false
	s.mu.Unlock()
	s.notifier.notify()
	return nil
}

// Snapshot returns the flag and whether the initial read is pending.
func (s *OnboardingStore) Snapshot() (completed bool, resolving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed, s.resolving
}

// Subscribe registers fn to run after every change.
func (s *OnboardingStore) Subscribe(fn func()) (cancel func()) {
	return s.notifier.subscribe(fn)
}
