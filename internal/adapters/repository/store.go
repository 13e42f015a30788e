// Package repository defines the document store contract and its backends.
package repository

import "context"

// Document is a record's fields as stored, keyed by field name.
type Document = map[string]any

// Snapshot is one query result: the document identifier plus its fields.
type Snapshot struct {
	ID   string
	Data Document
}

// Filter selects documents whose Field equals Value.
type Filter struct {
	Field string
	Value any
}

// Store provides read/write access to a networked document database that
// addresses records by collection name and identifier.
type Store interface {
	// ReadDocument returns the document and true, or false when it does not exist.
	ReadDocument(ctx context.Context, collection, id string) (Document, bool, error)

	// QueryDocuments returns every document in collection matching filter,
	// in insertion order.
	QueryDocuments(ctx context.Context, collection string, filter Filter) ([]Snapshot, error)

	// WriteDocument creates or overwrites the document at id.
	WriteDocument(ctx context.Context, collection, id string, fields Document) error

	// PartialUpdateDocument merges fields into an existing document.
	// Returns ErrNotFound if the document does not exist.
	PartialUpdateDocument(ctx context.Context, collection, id string, fields Document) error

	// NewID allocates an identifier for a new document in collection.
	NewID(collection string) string

	// Close releases the underlying client.
	Close() error
}
