// Package index maintains a purely advisory sqlite cache over a
// repository's items, used to answer text searches quickly. It is never
// authoritative: the per-item files are canonical, the query engine reads
// only those, and a missing or stale index is repaired by rebuilding it from
// the store.
package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/thomas6785/protomanage/pkg/item"
)

// Index is the advisory cache.
type Index struct {
	db *sql.DB
}

// Hit is one search result.
type Hit struct {
	ID       string
	Type     string
	Rendered string
}

// Open opens (creating if needed) the index database at dbPath.
func Open(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	idx := &Index{db: db}
	if err := idx.init(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items_meta (
		id TEXT PRIMARY KEY,
		type TEXT,
		rendered TEXT,
		data_json TEXT,
		modified_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_items_meta_type ON items_meta(type);
	`

	_, err := idx.db.Exec(schema)
	return err
}

// Upsert records or refreshes one item's row. rendered is the human-facing
// line produced by the item's type.
func (idx *Index) Upsert(it *item.Item, rendered string) error {
	raw, err := json.Marshal(it.Data)
	if err != nil {
		return fmt.Errorf("marshal item data for index: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO items_meta (id, type, rendered, data_json, modified_at)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err = idx.db.Exec(query, it.ID, it.Type, rendered, string(raw), time.Now())
	return err
}

// Delete drops one item's row.
func (idx *Index) Delete(id string) error {
	_, err := idx.db.Exec("DELETE FROM items_meta WHERE id = ?", id)
	return err
}

// Rebuild replaces the whole cache with the given items. rendered must be
// positionally aligned with items.
func (idx *Index) Rebuild(items []*item.Item, rendered []string) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM items_meta"); err != nil {
		return err
	}
	for i, it := range items {
		raw, err := json.Marshal(it.Data)
		if err != nil {
			return fmt.Errorf("marshal item data for index: %w", err)
		}
		_, err = tx.Exec(
			"INSERT INTO items_meta (id, type, rendered, data_json, modified_at) VALUES (?, ?, ?, ?, ?)",
			it.ID, it.Type, rendered[i], string(raw), time.Now())
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Search returns items whose rendered line or payload contains the text,
// case-insensitively via sqlite LIKE.
func (idx *Index) Search(text string) ([]*Hit, error) {
	pattern := "%" + text + "%"
	rows, err := idx.db.Query(
		"SELECT id, type, rendered FROM items_meta WHERE rendered LIKE ? OR data_json LIKE ? ORDER BY id",
		pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []*Hit
	for rows.Next() {
		h := &Hit{}
		if err := rows.Scan(&h.ID, &h.Type, &h.Rendered); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Count returns how many items the cache currently describes.
func (idx *Index) Count() (int, error) {
	var n int
	err := idx.db.QueryRow("SELECT COUNT(*) FROM items_meta").Scan(&n)
	return n, err
}

// Close closes the index database.
func (idx *Index) Close() error {
	return idx.db.Close()
}
