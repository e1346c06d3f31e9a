// Package store persists extracted records. The production backend is the
// LlamaCloud Agent Data API; an embedded Badger backend and an in-memory
// backend honour the same contract for offline use and tests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// IDLength is the length of store-generated record ids.
const IDLength = 7

const idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Record is a stored extraction result.
type Record struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"created_at,omitempty"`
}

// Store is a structured-data store grouped by collection.
type Store interface {
	// Insert stores data under collection and returns the generated id.
	Insert(ctx context.Context, collection string, data json.RawMessage) (string, error)
	Get(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	// List returns up to limit records of collection, newest first.
	List(ctx context.Context, collection string, limit int) ([]Record, error)
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// NewID returns a random alphanumeric id of IDLength characters.
func NewID() (string, error) {
	return gonanoid.Generate(idAlphabet, IDLength)
}

// IsID reports whether s looks like a store-generated id.
func IsID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune(idAlphabet, c) {
			return false
		}
	}
	return true
}
