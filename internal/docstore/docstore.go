// Package docstore defines the document-store collaborator the core depends
// on: schemaless JSON documents grouped into collections, with partial
// updates, atomic array append, and simple filtered queries. The memory
// implementation backs tests; the postgres implementation lives in
// internal/storage/postgres.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("document not found")

type fieldSentinel int

const (
	// DeleteField removes the key from the document when passed as a value
	// in an Update fields map.
	DeleteField fieldSentinel = iota
	// ServerTimestamp is replaced with the store's current time on write.
	ServerTimestamp
)

type Op string

const (
	OpEq            Op = "=="
	OpArrayContains Op = "array-contains"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

type Query struct {
	Filters []Filter
	OrderBy string
	// OrderByTime marks the OrderBy field as an RFC3339 timestamp so
	// implementations order it chronologically rather than as text (plain
	// text ordering mis-sorts values with differing fractional-second
	// precision).
	OrderByTime bool
	Desc        bool
	Limit       int
}

type Document struct {
	ID   string
	Data json.RawMessage
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// Create stores a new document and returns its assigned id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Update merges fields into an existing document. DeleteField values
	// remove keys; ServerTimestamp values become the store's current time.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// ArrayAppend atomically appends items to an array field, creating the
	// array when absent.
	ArrayAppend(ctx context.Context, collection, id, field string, items ...any) error
}
