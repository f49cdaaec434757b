package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("collection and id are required")
	ErrNotObject   = errors.New("document data must be a JSON object")
)

// DocumentStore is a flat collection/document database with change
// notifications. Documents are JSON objects.
type DocumentStore interface {
	// Get returns the document, or a snapshot with Exists=false.
	Get(ctx context.Context, collection, id string) (Snapshot, error)
	// Set replaces the whole document.
	Set(ctx context.Context, collection, id string, data any) error
	// Merge upserts the document; top-level fields in data replace stored
	// ones, other stored fields are kept.
	Merge(ctx context.Context, collection, id string, data any) error
	// Add stores a new document under a generated id.
	Add(ctx context.Context, collection string, data any) (string, error)
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Snapshot, error)
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)
	// Feed reports writes so subscribers can refresh.
	Feed() *Feed
}

// Query filters a collection by one exact-match field and orders the result.
type Query struct {
	Field   string
	Value   string
	OrderBy string
	Desc    bool
}

func checkPath(collection, id string) error {
	if collection == "" || id == "" {
		return ErrInvalidPath
	}
	return nil
}
