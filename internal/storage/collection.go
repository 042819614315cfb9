package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is the version written with every collection.
const SchemaVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported schema version")

// Collection persists a named list of items as a single JSON document, so a
// Save replaces the whole list atomically.
type Collection[T any] struct {
	db   *sql.DB
	name string
	now  func() time.Time
}

func NewCollection[T any](db *sql.DB, name string) *Collection[T] {
	return &Collection[T]{db: db, name: name, now: time.Now}
}

// Load returns the stored items, or an empty list when the collection has
// never been saved.
func (c *Collection[T]) Load(ctx context.Context) ([]*T, error) {
	var (
		version int
		data    string
	)

	err := c.db.QueryRowContext(ctx,
		`SELECT schema_version, data FROM collections WHERE name = $1`, c.name,
	).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return []*T{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", c.name, err)
	}

	if version > SchemaVersion {
		return nil, fmt.Errorf("collection %s has version %d: %w", c.name, version, ErrUnsupportedVersion)
	}

	items := []*T{}
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("decoding collection %s: %w", c.name, err)
	}

	return items, nil
}

func (c *Collection[T]) Save(ctx context.Context, items []*T) error {
	if items == nil {
		items = []*T{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding collection %s: %w", c.name, err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO collections (name, schema_version, data, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET schema_version = excluded.schema_version,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		c.name, SchemaVersion, string(data), c.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving collection %s: %w", c.name, err)
	}

	return nil
}
