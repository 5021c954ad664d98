// Package docstore provides the document-database boundary: collections
// of schemaless documents with equality-filtered live queries that push
// the full matching result set on every change.
package docstore

import "context"

// Document is one stored document: an opaque id plus its fields.
type Document struct {
	ID     string
	Fields map[string]any
}

// Filter is an equality constraint on a single document field. A zero
// Filter matches every document in the collection.
type Filter struct {
	Field string
	Value any
}

// Matches reports whether doc satisfies the filter.
func (f Filter) Matches(doc Document) bool {
	if f.Field == "" {
		return true
	}
	return doc.Fields[f.Field] == f.Value
}

// SnapshotFunc receives the full result set of a live query.
type SnapshotFunc func(docs []Document)

// DocumentFunc receives the current state of a watched document; nil
// means the document does not exist.
type DocumentFunc func(doc *Document)

// ErrorFunc receives subscription errors.
type ErrorFunc func(err error)

// Store is the document database contract used by the state containers.
// Write operations are awaited; Watch registrations deliver an initial
// snapshot and then one snapshot per observed change, in receipt order,
// until the returned cancel function is called.
type Store interface {
	// Create stores a new document and returns its assigned id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Merge updates only the named fields of a document, creating the
	// document when it does not exist. Unnamed fields are untouched.
	Merge(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting an absent id is a success.
	Delete(ctx context.Context, collection, id string) error

	// Query returns the documents matching filter.
	Query(ctx context.Context, collection string, filter Filter) ([]Document, error)

	// Watch subscribes to a live query over a collection.
	Watch(collection string, filter Filter, onSnapshot SnapshotFunc, onError ErrorFunc) (cancel func(), err error)

	// WatchDocument subscribes to a single document by id.
	WatchDocument(collection, id string, onDocument DocumentFunc, onError ErrorFunc) (cancel func(), err error)
}
