package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const maxIDAttempts = 5

// badgerRecord is the stored form of a Record.
type badgerRecord struct {
	ID         string
	Collection string `badgerhold:"index"`
	Data       []byte
	CreatedAt  time.Time
}

// BadgerConfig configures the embedded store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	Logger   *slog.Logger
}

// Badger is an embedded record store backed by badgerhold.
type Badger struct {
	store  *badgerhold.Store
	logger *slog.Logger
}

// OpenBadger opens (or creates) a Badger store.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	options := badgerhold.DefaultOptions
	if cfg.InMemory {
		options.Options = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		options.Dir = cfg.Path
		options.ValueDir = cfg.Path
	}
	options.Logger = nil

	s, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	cfg.Logger.Debug("badger store opened", "path", cfg.Path, "in_memory", cfg.InMemory)

	return &Badger{store: s, logger: cfg.Logger}, nil
}

// Insert stores data under a fresh 7-character id.
func (b *Badger) Insert(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := NewID()
		if err != nil {
			return "", fmt.Errorf("failed to generate id: %w", err)
		}
		rec := &badgerRecord{
			ID:         id,
			Collection: collection,
			Data:       []byte(data),
			CreatedAt:  time.Now().UTC(),
		}
		err = b.store.Insert(id, rec)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, badgerhold.ErrKeyExists) {
			return "", fmt.Errorf("failed to insert record: %w", err)
		}
		b.logger.Debug("record id collision", "id", id)
	}
	return "", fmt.Errorf("failed to allocate a unique id after %d attempts", maxIDAttempts)
}

// Get fetches a record by id.
func (b *Badger) Get(ctx context.Context, id string) (*Record, error) {
	var rec badgerRecord
	if err := b.store.Get(id, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec.toRecord(), nil
}

// Delete removes a record by id.
func (b *Badger) Delete(ctx context.Context, id string) error {
	if err := b.store.Delete(id, &badgerRecord{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// List returns up to limit records of collection, newest first.
func (b *Badger) List(ctx context.Context, collection string, limit int) ([]Record, error) {
	query := badgerhold.Where("Collection").Eq(collection).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var recs []badgerRecord
	if err := b.store.Find(&recs, query); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	out := make([]Record, len(recs))
	for i := range recs {
		out[i] = *recs[i].toRecord()
	}
	return out, nil
}

// Ping reports whether the database is open.
func (b *Badger) Ping(ctx context.Context) error {
	if b.store.Badger().IsClosed() {
		return fmt.Errorf("badger store is closed")
	}
	return nil
}

// Close closes the database.
func (b *Badger) Close() error {
	return b.store.Close()
}

func (r *badgerRecord) toRecord() *Record {
	return &Record{
		ID:         r.ID,
		Collection: r.Collection,
		Data:       json.RawMessage(r.Data),
		CreatedAt:  r.CreatedAt,
	}
}
