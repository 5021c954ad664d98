// Package testhelpers provides in-memory doubles for the backend
// boundaries plus database constructors for tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/docstore"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/identity"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/kv"
)

type fakeWatcher struct {
	collection string
	filter     docstore.Filter
	onSnapshot docstore.SnapshotFunc
	onDocument docstore.DocumentFunc
	onError    docstore.ErrorFunc
	docID      string
	canceled   bool
}

// FakeDocStore is an in-memory docstore.Store with synchronous snapshot
// delivery. Tests can inject per-operation errors, count delete calls,
// and simulate a backend that keeps delivering after unsubscribe.
type FakeDocStore struct {
	mu       sync.Mutex
	docs     map[string]map[string]map[string]any
	order    map[string][]string
	watchers []*fakeWatcher
	nextID   int

	// IgnoreCancels keeps delivering snapshots to canceled watchers,
	// modeling a backend that does not honor unsubscribe promptly.
	IgnoreCancels bool

	CreateErr error
	MergeErr  error
	DeleteErr map[string]error

	deleteCalls map[string]int
}

var _ docstore.Store = (*FakeDocStore)(nil)

func NewFakeDocStore() *FakeDocStore {
	return &FakeDocStore{
		docs:        make(map[string]map[string]map[string]any),
		order:       make(map[string][]string),
		DeleteErr:   make(map[string]error),
		deleteCalls: make(map[string]int),
	}
}

func (f *FakeDocStore) Create(_ context.Context, collection string, fields map[string]any) (string, error) {
	f.mu.Lock()
	if f.CreateErr != nil {
		err := f.CreateErr
		f.mu.Unlock()
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("doc-%d", f.nextID)
	f.setLocked(collection, id, copyFields(fields))
	f.mu.Unlock()

	f.notify(collection)
	return id, nil
}

func (f *FakeDocStore) Merge(_ context.Context, collection, id string, fields map[string]any) error {
	f.mu.Lock()
	if f.MergeErr != nil {
		err := f.MergeErr
		f.mu.Unlock()
		return err
	}
	existing, ok := f.docs[collection][id]
	if !ok {
		f.setLocked(collection, id, copyFields(fields))
	} else {
		for k, v := range fields {
			existing[k] = v
		}
	}
	f.mu.Unlock()

	f.notify(collection)
	return nil
}

func (f *FakeDocStore) Delete(_ context.Context, collection, id string) error {
	f.mu.Lock()
	f.deleteCalls[id]++
	if err := f.DeleteErr[id]; err != nil {
		f.mu.Unlock()
		return err
	}
	if byID, ok := f.docs[collection]; ok {
		delete(byID, id)
	}
	ids := f.order[collection]
	for i, existing := range ids {
		if existing == id {
			f.order[collection] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	f.mu.Unlock()

	f.notify(collection)
	return nil
}

func (f *FakeDocStore) Query(_ context.Context, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryLocked(collection, filter), nil
}

func (f *FakeDocStore) Watch(collection string, filter docstore.Filter, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (func(), error) {
	w := &fakeWatcher{collection: collection, filter: filter, onSnapshot: onSnapshot, onError: onError}
	f.mu.Lock()
	f.watchers = append(f.watchers, w)
	snapshot := f.queryLocked(collection, filter)
	f.mu.Unlock()

	onSnapshot(snapshot)
	return func() { f.cancel(w) }, nil
}

func (f *FakeDocStore) WatchDocument(collection, id string, onDocument docstore.DocumentFunc, onError docstore.ErrorFunc) (func(), error) {
	w := &fakeWatcher{collection: collection, docID: id, onDocument: onDocument, onError: onError}
	f.mu.Lock()
	f.watchers = append(f.watchers, w)
	doc := f.documentLocked(collection, id)
	f.mu.Unlock()

	onDocument(doc)
	return func() { f.cancel(w) }, nil
}

// EmitError delivers err to every watcher of collection.
func (f *FakeDocStore) EmitError(collection string, err error) {
	for _, w := range f.activeWatchers(collection) {
		if w.onError != nil {
			w.onError(err)
		}
	}
}

// Redeliver pushes the current state to every watcher of collection,
// including canceled ones when IgnoreCancels is set.
func (f *FakeDocStore) Redeliver(collection string) {
	f.notify(collection)
}

// WatchCount returns the number of non-canceled watchers on collection.
func (f *FakeDocStore) WatchCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, w := range f.watchers {
		if w.collection == collection && !w.canceled {
			count++
		}
	}
	return count
}

// DeleteCalls returns how many times Delete was invoked for id.
func (f *FakeDocStore) DeleteCalls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteCalls[id]
}

// Fields returns a copy of a stored document's fields, or nil.
func (f *FakeDocStore) Fields(collection, id string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	fields, ok := f.docs[collection][id]
	if !ok {
		return nil
	}
	return copyFields(fields)
}

// Seed stores a document without notifying watchers.
func (f *FakeDocStore) Seed(collection, id string, fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLocked(collection, id, copyFields(fields))
}

func (f *FakeDocStore) setLocked(collection, id string, fields map[string]any) {
	if f.docs[collection] == nil {
		f.docs[collection] = make(map[string]map[string]any)
	}
	if _, exists := f.docs[collection][id]; !exists {
		f.order[collection] = append(f.order[collection], id)
	}
	f.docs[collection][id] = fields
}

func (f *FakeDocStore) queryLocked(collection string, filter docstore.Filter) []docstore.Document {
	out := []docstore.Document{}
	for _, id := range f.order[collection] {
		doc := docstore.Document{ID: id, Fields: copyFields(f.docs[collection][id])}
		if filter.Matches(doc) {
			out = append(out, doc)
		}
	}
	return out
}

func (f *FakeDocStore) documentLocked(collection, id string) *docstore.Document {
	fields, ok := f.docs[collection][id]
	if !ok {
		return nil
	}
	return &docstore.Document{ID: id, Fields: copyFields(fields)}
}

func (f *FakeDocStore) activeWatchers(collection string) []*fakeWatcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*fakeWatcher{}
	for _, w := range f.watchers {
		if w.collection != collection {
			continue
		}
		if w.canceled && !f.IgnoreCancels {
			continue
		}
		out = append(out, w)
	}
	return out
}

func (f *FakeDocStore) notify(collection string) {
	for _, w := range f.activeWatchers(collection) {
		if w.onDocument != nil {
			f.mu.Lock()
			doc := f.documentLocked(collection, w.docID)
			f.mu.Unlock()
			w.onDocument(doc)
			continue
		}
		f.mu.Lock()
		snapshot := f.queryLocked(collection, w.filter)
		f.mu.Unlock()
		w.onSnapshot(snapshot)
	}
}

func (f *FakeDocStore) cancel(w *fakeWatcher) {
	f.mu.Lock()
	w.canceled = true
	f.mu.Unlock()
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// FakeIdentity is an identity.Provider double driven by Emit.
type FakeIdentity struct {
	mu        sync.Mutex
	listeners map[int]func(*identity.User)
	next      int
	current   *identity.User
	resolved  bool
}

var _ identity.Provider = (*FakeIdentity)(nil)

func NewFakeIdentity() *FakeIdentity {
	return &FakeIdentity{listeners: make(map[int]func(*identity.User))}
}

// Emit resolves the provider (if it was not already) and delivers user
// to every listener.
func (f *FakeIdentity) Emit(user *identity.User) {
	f.mu.Lock()
	f.current = user
	f.resolved = true
	fns := make([]func(*identity.User), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

func (f *FakeIdentity) SignUp(_ context.Context, email, _ string) (*identity.User, error) {
	user := &identity.User{ID: "user-" + email, Email: email}
	f.Emit(user)
	return user, nil
}

func (f *FakeIdentity) SignIn(_ context.Context, email, _ string) (*identity.User, error) {
	user := &identity.User{ID: "user-" + email, Email: email}
	f.Emit(user)
	return user, nil
}

func (f *FakeIdentity) SignOut(_ context.Context) error {
	f.Emit(nil)
	return nil
}

func (f *FakeIdentity) AuthChanges(fn func(user *identity.User)) (cancel func()) {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	resolved := f.resolved
	current := f.current
	f.mu.Unlock()

	if resolved {
		fn(current)
	}
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// MemKV is an in-memory kv.Store.
type MemKV struct {
	mu     sync.Mutex
	data   map[string]string
	GetErr error
}

var _ kv.Store = (*MemKV)(nil)

func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string]string)}
}

func (m *MemKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *MemKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemKV) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
