package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AutoDeletePolicy removes items that have been expired for at least
// the configured number of days. It is purely reactive: it re-evaluates
// whenever the item list or the settings change, and does not run until
// both are present. There is no timer, so an item crossing the
// threshold while the process is down is only deleted on the next
// evaluation after startup.
type AutoDeletePolicy struct {
	groceries *GroceryStore
	settings  *SettingsStore
	log       *zap.Logger
	clock     func() time.Time

	// Deletes issued mid-pass trigger fresh snapshots and therefore
	// re-entrant evaluation; the pending flag folds those into one
	// follow-up pass so no item is deleted twice within a pass.
	mu      sync.Mutex
	running bool
	pending bool

	cancelGroceries func()
	cancelSettings  func()
}

// NewAutoDeletePolicy attaches the policy to both stores and runs an
// initial evaluation.
func NewAutoDeletePolicy(groceries *GroceryStore, settings *SettingsStore, log *zap.Logger) *AutoDeletePolicy {
	p := &AutoDeletePolicy{
		groceries: groceries,
		settings:  settings,
		log:       log,
		clock:     time.Now,
	}
	p.cancelGroceries = groceries.Subscribe(p.Evaluate)
	p.cancelSettings = settings.Subscribe(p.Evaluate)
	p.Evaluate()
	return p
}

// Evaluate runs one pass over the current items and settings.
func (p *AutoDeletePolicy) Evaluate() {
	p.mu.Lock()
	if p.running {
		p.pending = true
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	for {
		p.evaluateOnce()

		p.mu.Lock()
		if !p.pending {
			p.running = false
			p.mu.Unlock()
			return
		}
		p.pending = false
		p.mu.Unlock()
	}
}

func (p *AutoDeletePolicy) evaluateOnce() {
	settings, settingsLoading := p.settings.Snapshot()
	if settingsLoading || settings == nil || !settings.AutoDeleteExpired {
		return
	}
	items, itemsLoading := p.groceries.Snapshot()
	if itemsLoading {
		return
	}

	now := p.clock()
	for _, item := range items {
		if DaysOverExpiration(item.ExpirationDate, now) < settings.DeleteAfterDays {
			continue
		}
		// Best effort per item: a failed delete is logged and never
		// blocks the remaining items.
		if err := p.groceries.DeleteGrocery(context.Background(), item.ID); err != nil {
			p.log.Warn("auto-delete failed",
				zap.String("itemID", item.ID),
				zap.String("name", item.Name),
				zap.Error(err))
			continue
		}
		p.log.Info("auto-deleted expired item",
			zap.String("itemID", item.ID),
			zap.String("name", item.Name),
			zap.String("expirationDate", item.ExpirationDate))
	}
}

// Close detaches the policy from both stores.
func (p *AutoDeletePolicy) Close() {
	p.cancelGroceries()
	p.cancelSettings()
}
