package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thomas6785/protomanage/pkg/item"
)

// itemFile is the on-disk representation of an item: a human-diffable JSON
// document carrying the type discriminator alongside the payload.
type itemFile struct {
	Type itemFileType   `json:"type"`
	UUID string         `json:"uuid"`
	Data map[string]any `json:"data"`
}

type itemFileType struct {
	UniqueName string `json:"unique_name"`
	Version    string `json:"version,omitempty"`
}

// EncodeItem serializes an item into its on-disk document form. The session
// layer uses this for backup snapshots so backups and canonical files share
// one format.
func (r *Repo) EncodeItem(it *item.Item) ([]byte, error) {
	file := itemFile{
		Type: itemFileType{UniqueName: it.Type, Version: it.TypeVersion},
		UUID: it.ID,
		Data: it.Data,
	}
	if r.config.PrettyJSON {
		return json.MarshalIndent(file, "", "    ")
	}
	return json.Marshal(file)
}

// ItemPath returns the canonical file path for the given identifier.
func (r *Repo) ItemPath(id string) string {
	return filepath.Join(r.ItemsDir(), id+".json")
}

// LoadItem reads one item from disk. Returns *NotFoundError if no file
// exists for id and *CorruptDataError if the file cannot be parsed or its
// recorded UUID disagrees with its filename.
func (r *Repo) LoadItem(id string) (*item.Item, error) {
	path := r.ItemPath(id)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Repo: r.root, ID: id, Path: path}
		}
		return nil, fmt.Errorf("read item %s: %w", id, err)
	}

	var file itemFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, &CorruptDataError{Repo: r.root, ID: id, Path: path, Err: err}
	}
	if file.UUID != id {
		return nil, &CorruptDataError{
			Repo: r.root, ID: id, Path: path,
			Err: fmt.Errorf("uuid mismatch: file named %s holds uuid %q", id, file.UUID),
		}
	}
	if file.Data == nil {
		file.Data = map[string]any{}
	}

	return &item.Item{
		ID:          file.UUID,
		Type:        file.Type.UniqueName,
		TypeVersion: file.Type.Version,
		Data:        file.Data,
		Path:        path,
	}, nil
}

// SaveItem writes the item's current in-memory state to its canonical path
// atomically: the document goes to a temporary file in the items directory
// first and is renamed into place, so a crash mid-write never leaves a
// half-written file at the canonical path.
func (r *Repo) SaveItem(it *item.Item) error {
	raw, err := r.EncodeItem(it)
	if err != nil {
		return fmt.Errorf("marshal item %s: %w", it.ID, err)
	}

	path := r.ItemPath(it.ID)
	if err := writeFileAtomic(path, raw); err != nil {
		return fmt.Errorf("save item %s in repository %s: %w", it.ID, r.root, err)
	}
	it.Path = path
	return nil
}

// RestoreItem writes a previously encoded item document back to the
// identifier's canonical path atomically. Sessions use this to roll a
// canonical file back to its pre-edit snapshot.
func (r *Repo) RestoreItem(id string, raw []byte) error {
	if err := writeFileAtomic(r.ItemPath(id), raw); err != nil {
		return fmt.Errorf("restore item %s in repository %s: %w", id, r.root, err)
	}
	return nil
}

// DeleteItem removes the item's on-disk representation. Deleting an absent
// item is not an error.
func (r *Repo) DeleteItem(id string) error {
	err := os.Remove(r.ItemPath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete item %s in repository %s: %w", id, r.root, err)
	}
	return nil
}

// ListItemIDs enumerates the identifiers of all items present, in directory
// order. Stray files that are not item documents are ignored.
func (r *Repo) ListItemIDs() ([]string, error) {
	entries, err := os.ReadDir(r.ItemsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list items in repository %s: %w", r.root, err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
