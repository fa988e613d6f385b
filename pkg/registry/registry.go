// Package registry is the home repository's bookkeeping of known
// repositories: a durable mapping from repository UUID to last-known path.
// Every operation here is a best-effort side effect of some primary command;
// callers log failures and move on rather than aborting.
package registry

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/thomas6785/protomanage/pkg/repo"
)

// Entry is one known repository.
type Entry struct {
	UUID      string
	Path      string // last-known repository root
	FirstSeen time.Time
	LastSeen  time.Time
	Stale     bool // last reconcile could not reach the repository
}

// Registry stores entries in a sqlite database inside the home repository's
// state folder.
type Registry struct {
	db *sql.DB
}

// Open opens (creating if needed) the registry database at dbPath.
func Open(dbPath string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}

	r := &Registry{db: db}
	if err := r.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize registry: %w", err)
	}
	return r, nil
}

// OpenFor opens the registry belonging to the given home repository.
func OpenFor(home *repo.Repo) (*Registry, error) {
	return Open(home.RegistryDBPath())
}

func (r *Registry) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS repos (
		uuid TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		first_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		stale BOOLEAN DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_repos_path ON repos(path);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Touch registers or refreshes the entry for a repository. Touching the same
// repository twice leaves one entry carrying the latest timestamp, and a
// moved repository's path is updated in place.
func (r *Registry) Touch(uuid, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	query := `
	INSERT INTO repos (uuid, path, first_seen, last_seen, stale)
	VALUES (?, ?, ?, ?, 0)
	ON CONFLICT(uuid) DO UPDATE SET path = excluded.path, last_seen = excluded.last_seen, stale = 0
	`

	now := time.Now()
	_, err = r.db.Exec(query, uuid, abs, now, now)
	return err
}

// TouchRepo refreshes the entry for an open repository.
func (r *Registry) TouchRepo(rp *repo.Repo) error {
	return r.Touch(rp.UUID(), rp.Root())
}

// TouchTree walks the directory subtree under dir and touches every
// repository found within it. Unreadable directories are skipped. Returns
// how many repositories were touched.
func (r *Registry) TouchTree(dir string) (int, error) {
	touched := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, skip
		}
		if !d.IsDir() || d.Name() != repo.StateDirName {
			return nil
		}

		rp, openErr := repo.Open(path)
		if openErr != nil {
			return filepath.SkipDir
		}
		if touchErr := r.TouchRepo(rp); touchErr == nil {
			touched++
		}
		return filepath.SkipDir // never recurse into a state folder
	})
	return touched, err
}

// Get retrieves one entry by repository UUID.
func (r *Registry) Get(uuid string) (*Entry, error) {
	row := r.db.QueryRow(
		"SELECT uuid, path, first_seen, last_seen, stale FROM repos WHERE uuid = ?", uuid)

	e := &Entry{}
	err := row.Scan(&e.UUID, &e.Path, &e.FirstSeen, &e.LastSeen, &e.Stale)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("repository %s not registered", uuid)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns all entries, most recently seen first.
func (r *Registry) List() ([]*Entry, error) {
	rows, err := r.db.Query(
		"SELECT uuid, path, first_seen, last_seen, stale FROM repos ORDER BY last_seen DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.UUID, &e.Path, &e.FirstSeen, &e.LastSeen, &e.Stale); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Reconcile checks each registered repository's reachability. Reachable
// entries get a fresh last_seen; unreachable or moved ones are marked stale
// but never deleted, so a repository on an unmounted drive keeps its
// registration. Returns the number of entries marked stale.
func (r *Registry) Reconcile() (int, error) {
	entries, err := r.List()
	if err != nil {
		return 0, err
	}

	stale := 0
	for _, e := range entries {
		rp, err := repo.Open(filepath.Join(e.Path, repo.StateDirName))
		if err != nil || rp.UUID() != e.UUID {
			if _, err := r.db.Exec("UPDATE repos SET stale = 1 WHERE uuid = ?", e.UUID); err != nil {
				return stale, err
			}
			stale++
			continue
		}
		if err := r.Touch(e.UUID, e.Path); err != nil {
			return stale, err
		}
	}
	return stale, nil
}

// Close closes the registry database.
func (r *Registry) Close() error {
	return r.db.Close()
}
