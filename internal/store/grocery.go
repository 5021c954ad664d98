package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/docstore"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/models"
)

const collectionGroceries = "groceries"

// DefaultShelfLifeDays is how far past the purchase date the expiration
// is placed when the user does not pick one.
const DefaultShelfLifeDays = 7

// GroceryInput is the user-supplied portion of a new item. An empty
// ExpirationDate is auto-calculated as purchase date plus
// DefaultShelfLifeDays.
type GroceryInput struct {
	Name           string          `validate:"required"`
	Category       models.Category `validate:"required,category"`
	PurchaseDate   string          `validate:"required,calendardate"`
	ExpirationDate string          `validate:"omitempty,calendardate"`
	PhotoURL       string
}

// GroceryUpdate names the item fields a merge write may touch. Nil
// fields are left untouched on the stored document.
type GroceryUpdate struct {
	Name           *string
	Category       *models.Category
	PurchaseDate   *string
	ExpirationDate *string
	PhotoURL       *string
}

// GroceryStore tracks the signed-in user's grocery items through a live
// query. The published list is rebuilt wholesale from every snapshot
// and kept sorted ascending by expiration date. The store holds at most
// one active subscription; switching users detaches the old one first,
// and a per-attach generation counter drops snapshots that arrive late
// from a detached subscription.
type GroceryStore struct {
	docs     docstore.Store
	session  *SessionStore
	log      *zap.Logger
	clock    func() time.Time
	validate *validator.Validate

	mu           sync.Mutex
	items        []models.GroceryItem
	loading      bool
	generation   int
	attached     bool
	attachedUser string
	cancelWatch  func()

	notifier      notifier
	cancelSession func()
}

// NewGroceryStore wires the store to the session and begins following
// the current user's items.
func NewGroceryStore(docs docstore.Store, session *SessionStore, log *zap.Logger) *GroceryStore {
	s := &GroceryStore{
		docs:     docs,
		session:  session,
		log:      log,
		clock:    time.Now,
		validate: newGroceryValidator(),
		loading:  true,
	}
	s.cancelSession = session.Subscribe(s.onSessionChange)
	s.onSessionChange()
	return s
}

func newGroceryValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
	return v
}

func (s *GroceryStore) onSessionChange() {
	user, resolving := s.session.Snapshot()

	s.mu.Lock()
	if resolving {
		// Do not attach until the real user id is known; a query keyed
		// on a stale id would race the one that matters.
		detach := s.detachLocked()
		s.attachedUser = ""
		s.items = nil
		s.loading = true
		s.mu.Unlock()
		detach()
		s.notifier.notify()
		return
	}

	if user == nil {
		detach := s.detachLocked()
		s.attachedUser = ""
		s.items = nil
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
	s.items = nil
	s.loading = true
	uid := user.ID
	s.mu.Unlock()
	detach()
	s.notifier.notify()

	cancel, err := s.docs.Watch(collectionGroceries,
		docstore.Filter{Field: "userId", Value: uid},
		func(docs []docstore.Document) { s.applySnapshot(gen, docs) },
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

// detachLocked clears the active subscription and advances the
// generation so any in-flight delivery from the old subscription is
// dropped. The returned cancel func must be invoked once the lock is
// released.
func (s *GroceryStore) detachLocked() func() {
	cancel := s.cancelWatch
	s.cancelWatch = nil
	s.attached = false
	s.generation++
	if cancel == nil {
		return func() {}
	}
	return cancel
}

// applySnapshot replaces the item list wholesale with the snapshot
// contents, sorted soonest-expiring first. Deliveries from a detached
// subscription generation are dropped.
func (s *GroceryStore) applySnapshot(gen int, docs []docstore.Document) {
	items := make([]models.GroceryItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, itemFromDocument(doc))
	}
	// YYYY-MM-DD strings order lexicographically in date order; ties
	// keep the snapshot's stable order.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ExpirationDate < items[j].ExpirationDate
	})

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.items = items
	s.loading = false
	s.mu.Unlock()
	s.notifier.notify()
}

func (s *GroceryStore) watchFailed(gen int, err error) {
	s.log.Error("grocery subscription error", zap.Error(err))

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.loading = false
	s.mu.Unlock()
	s.notifier.notify()
}

// AddGrocery validates the input, stamps ownership and timestamps, and
// writes a new document. Without a signed-in user it is a no-op. The
// live subscription reflects the write; no local echo happens here.
func (s *GroceryStore) AddGrocery(ctx context.Context, input GroceryInput) error {
	user, _ := s.session.Snapshot()
	if user == nil {
		return nil
	}

	if err := s.validate.Struct(input); err != nil {
		return err
	}

	expiration := input.ExpirationDate
	if expiration == "" {
		purchase, err := time.Parse("2006-01-02", input.PurchaseDate)
		if err != nil {
			return err
		}
		expiration = purchase.AddDate(0, 0, DefaultShelfLifeDays).Format("2006-01-02")
	}

	now := s.clock().Format(time.RFC3339)
	fields := map[string]any{
		"userId":         user.ID,
		"name":           input.Name,
		"category":       string(input.Category),
		"purchaseDate":   input.PurchaseDate,
		"expirationDate": expiration,
		"createdAt":      now,
		"updatedAt":      now,
	}
	if input.PhotoURL != "" {
		fields["photoUrl"] = input.PhotoURL
	}

	_, err := s.docs.Create(ctx, collectionGroceries, fields)
	return err
}

// UpdateGrocery merges the named fields into an existing item and
// refreshes updatedAt. Without a signed-in user it is a no-op.
func (s *GroceryStore) UpdateGrocery(ctx context.Context, id string, update GroceryUpdate) error {
	user, _ := s.session.Snapshot()
	if user == nil {
		return nil
	}

	fields := map[string]any{
		"updatedAt": s.clock().Format(time.RFC3339),
	}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Category != nil {
		fields["category"] = string(*update.Category)
	}
	if update.PurchaseDate != nil {
		fields["purchaseDate"] = *update.PurchaseDate
	}
	if update.ExpirationDate != nil {
		fields["expirationDate"] = *update.ExpirationDate
	}
	if update.PhotoURL != nil {
		fields["photoUrl"] = *update.PhotoURL
	}

	return s.docs.Merge(ctx, collectionGroceries, id, fields)
}

// DeleteGrocery removes an item. Deleting an id that no longer exists
// is a success per the backend contract. Without a signed-in user it is
// a no-op.
func (s *GroceryStore) DeleteGrocery(ctx context.Context, id string) error {
	user, _ := s.session.Snapshot()
	if user == nil {
		return nil
	}
	return s.docs.Delete(ctx, collectionGroceries, id)
}

// Snapshot returns the published item list (sorted soonest-expiring
// first) and the loading flag. The returned slice is shared; callers
// must not modify it.
func (s *GroceryStore) Snapshot() (items []models.GroceryItem, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items, s.loading
}

// Subscribe registers fn to run after every change.
func (s *GroceryStore) Subscribe(fn func()) (cancel func()) {
	return s.notifier.subscribe(fn)
}

// Close detaches the live subscription and the session observer.
func (s *GroceryStore) Close() {
	s.cancelSession()
	s.mu.Lock()
	detach := s.detachLocked()
	s.mu.Unlock()
	detach()
}

func itemFromDocument(doc docstore.Document) models.GroceryItem {
	item := models.GroceryItem{ID: doc.ID}
	if v, ok := doc.Fields["userId"].(string); ok {
		item.UserID = v
	}
	if v, ok := doc.Fields["name"].(string); ok {
		item.Name = v
	}
	if v, ok := doc.Fields["category"].(string); ok {
		item.Category = models.Category(v)
	}
	if v, ok := doc.Fields["purchaseDate"].(string); ok {
		item.PurchaseDate = v
	}
	if v, ok := doc.Fields["expirationDate"].(string); ok {
		item.ExpirationDate = v
	}
	if v, ok := doc.Fields["photoUrl"].(string); ok {
		item.PhotoURL = v
	}
	if v, ok := doc.Fields["createdAt"].(string); ok {
		item.CreatedAt = v
	}
	if v, ok := doc.Fields["updatedAt"].(string); ok {
		item.UpdatedAt = v
	}
	return item
}
