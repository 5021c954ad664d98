package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const changeChannel = "docstore:changes"

// documentRow is the storage representation of a document. Fields are
// serialized as a JSON object so collections stay schemaless.
type documentRow struct {
	Collection string    `gorm:"primaryKey;size:64"`
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	Fields     string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "documents" }

type watcher struct {
	collection string
	filter     Filter
	onSnapshot SnapshotFunc
	onDocument DocumentFunc
	onError    ErrorFunc
	docID      string
}

// GormStore implements Store on a relational database through GORM.
// Live queries are realized by re-querying on every local write; when a
// Redis client is provided, writes also publish an invalidation message
// so other processes watching the same collections re-query too.
type GormStore struct {
	db    *gorm.DB
	redis *redis.Client
	log   *zap.Logger

	// instance distinguishes our own invalidation messages from those
	// published by other processes.
	instance string

	mu       sync.Mutex
	watchers map[int]*watcher
	nextID   int

	cancelSub context.CancelFunc
	subDone   chan struct{}
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a GormStore over db, migrating the documents
// table. The Redis client is optional; without it change propagation is
// process-local only.
func NewGormStore(db *gorm.DB, redisClient *redis.Client, log *zap.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}

	s := &GormStore{
		db:       db,
		redis:    redisClient,
		log:      log,
		instance: uuid.New().String(),
		watchers: make(map[int]*watcher),
	}

	if redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancelSub = cancel
		s.subDone = make(chan struct{})
		go s.listenForChanges(ctx)
	}

	return s, nil
}

// Close stops the Redis change listener, if any. Registered watchers
// stop receiving snapshots after Close.
func (s *GormStore) Close() {
	if s.cancelSub != nil {
		s.cancelSub()
		<-s.subDone
	}
}

func (s *GormStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	row := documentRow{
		Collection: collection,
		ID:         uuid.New().String(),
		Fields:     string(raw),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	s.broadcast(ctx, collection)
	return row.ID, nil
}

func (s *GormStore) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		err := tx.Where("collection = ? AND id = ?", collection, id).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			raw, merr := json.Marshal(fields)
			if merr != nil {
				return merr
			}
			return tx.Create(&documentRow{
				Collection: collection,
				ID:         id,
				Fields:     string(raw),
			}).Error
		}
		if err != nil {
			return err
		}

		merged := map[string]any{}
		if uerr := json.Unmarshal([]byte(row.Fields), &merged); uerr != nil {
			return uerr
		}
		for k, v := range fields {
			merged[k] = v
		}
		raw, merr := json.Marshal(merged)
		if merr != nil {
			return merr
		}
		return tx.Model(&documentRow{}).
			Where("collection = ? AND id = ?", collection, id).
			Update("fields", string(raw)).Error
	})
	if err != nil {
		return fmt.Errorf("failed to merge document: %w", err)
	}

	s.broadcast(ctx, collection)
	return nil
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&documentRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.broadcast(ctx, collection)
	return nil
}

func (s *GormStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	var rows []documentRow
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at, id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		if filter.Matches(doc) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *GormStore) Watch(collection string, filter Filter, onSnapshot SnapshotFunc, onError ErrorFunc) (func(), error) {
	w := &watcher{collection: collection, filter: filter, onSnapshot: onSnapshot, onError: onError}
	cancel := s.register(w)
	s.deliver(w)
	return cancel, nil
}

func (s *GormStore) WatchDocument(collection, id string, onDocument DocumentFunc, onError ErrorFunc) (func(), error) {
	w := &watcher{collection: collection, docID: id, onDocument: onDocument, onError: onError}
	cancel := s.register(w)
	s.deliver(w)
	return cancel, nil
}

func (s *GormStore) register(w *watcher) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = w
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// deliver queries current state for w and invokes its callback.
func (s *GormStore) deliver(w *watcher) {
	ctx := context.Background()
	if w.onDocument != nil {
		var row documentRow
		err := s.db.WithContext(ctx).
			Where("collection = ? AND id = ?", w.collection, w.docID).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			w.onDocument(nil)
			return
		}
		if err != nil {
			s.reportError(w, fmt.Errorf("failed to load document: %w", err))
			return
		}
		doc, derr := decodeRow(row)
		if derr != nil {
			s.reportError(w, derr)
			return
		}
		w.onDocument(&doc)
		return
	}

	docs, err := s.Query(ctx, w.collection, w.filter)
	if err != nil {
		s.reportError(w, err)
		return
	}
	w.onSnapshot(docs)
}

func (s *GormStore) reportError(w *watcher, err error) {
	if w.onError != nil {
		w.onError(err)
		return
	}
	s.log.Error("docstore watch error", zap.String("collection", w.collection), zap.Error(err))
}

// notify re-delivers snapshots to every watcher of collection.
func (s *GormStore) notify(collection string) {
	s.mu.Lock()
	targets := make([]*watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		if w.collection == collection {
			targets = append(targets, w)
		}
	}
	s.mu.Unlock()

	for _, w := range targets {
		s.deliver(w)
	}
}

// broadcast notifies local watchers and, when Redis is configured,
// publishes an invalidation message for other processes.
func (s *GormStore) broadcast(ctx context.Context, collection string) {
	s.notify(collection)

	if s.redis == nil {
		return
	}
	payload := s.instance + "|" + collection
	if err := s.redis.Publish(ctx, changeChannel, payload).Err(); err != nil {
		s.log.Warn("failed to publish change notification",
			zap.String("collection", collection), zap.Error(err))
	}
}

func (s *GormStore) listenForChanges(ctx context.Context) {
	defer close(s.subDone)

	sub := s.redis.Subscribe(ctx, changeChannel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			instance, collection, found := strings.Cut(msg.Payload, "|")
			if !found || instance == s.instance {
				continue
			}
			s.notify(collection)
		}
	}
}

func decodeRow(row documentRow) (Document, error) {
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(row.Fields), &fields); err != nil {
		return Document{}, fmt.Errorf("failed to decode document %s/%s: %w", row.Collection, row.ID, err)
	}
	return Document{ID: row.ID, Fields: fields}, nil
}
