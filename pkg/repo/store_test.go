package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/thomas6785/protomanage/pkg/item"
)

func initTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return r
}

func TestSaveLoadRoundTrip(t *testing.T) {
	r := initTestRepo(t)

	it := item.New(item.TypeNote, map[string]any{
		"title": "groceries",
		"tags":  []any{"errand", "weekly"},
		"meta":  map[string]any{"priority": float64(2)},
	})
	if err := r.SaveItem(it); err != nil {
		t.Fatalf("SaveItem failed: %v", err)
	}

	loaded, err := r.LoadItem(it.ID)
	if err != nil {
		t.Fatalf("LoadItem failed: %v", err)
	}
	if loaded.ID != it.ID || loaded.Type != item.TypeNote {
		t.Errorf("loaded identity mismatch: got %s/%s", loaded.ID, loaded.Type)
	}
	if got, ok := item.Lookup(loaded.Data, "meta.priority"); !ok || got != float64(2) {
		t.Errorf("nested data did not survive the round trip: %v", loaded.Data)
	}
	if loaded.Path != r.ItemPath(it.ID) {
		t.Errorf("Path = %q, want %q", loaded.Path, r.ItemPath(it.ID))
	}
}

func TestLoadMissingItem(t *testing.T) {
	r := initTestRepo(t)

	_, err := r.LoadItem("0c837c97-51c5-4b2f-a56b-000000000000")
	if !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestLoadCorruptItem(t *testing.T) {
	r := initTestRepo(t)

	id := "0c837c97-51c5-4b2f-a56b-111111111111"
	if err := os.WriteFile(r.ItemPath(id), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := r.LoadItem(id)
	if !IsCorrupt(err) {
		t.Errorf("expected CorruptDataError, got %v", err)
	}
}

func TestLoadUUIDMismatch(t *testing.T) {
	r := initTestRepo(t)

	it := item.New(item.TypeNote, map[string]any{"title": "x"})
	if err := r.SaveItem(it); err != nil {
		t.Fatalf("SaveItem failed: %v", err)
	}

	// Copy the document to a filename that disagrees with its recorded uuid.
	raw, err := os.ReadFile(r.ItemPath(it.ID))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	other := "0c837c97-51c5-4b2f-a56b-222222222222"
	if err := os.WriteFile(r.ItemPath(other), raw, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err = r.LoadItem(other)
	if !IsCorrupt(err) {
		t.Errorf("expected CorruptDataError for uuid mismatch, got %v", err)
	}
}

func TestDeleteItemIdempotent(t *testing.T) {
	r := initTestRepo(t)

	it := item.New(item.TypeNote, map[string]any{"title": "x"})
	if err := r.SaveItem(it); err != nil {
		t.Fatalf("SaveItem failed: %v", err)
	}
	if err := r.DeleteItem(it.ID); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	if err := r.DeleteItem(it.ID); err != nil {
		t.Errorf("deleting an absent item should not fail: %v", err)
	}
	if _, err := r.LoadItem(it.ID); !IsNotFound(err) {
		t.Errorf("item still loadable after delete: %v", err)
	}
}

func TestListItemIDsSkipsStrayFiles(t *testing.T) {
	r := initTestRepo(t)

	it := item.New(item.TypeNote, map[string]any{"title": "x"})
	if err := r.SaveItem(it); err != nil {
		t.Fatalf("SaveItem failed: %v", err)
	}

	// Leftover temp file from an interrupted atomic write, plus junk.
	stray := filepath.Join(r.ItemsDir(), "."+it.ID+".json.tmp-zz")
	if err := os.WriteFile(stray, []byte("partial"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(r.ItemsDir(), "README.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ids, err := r.ListItemIDs()
	if err != nil {
		t.Fatalf("ListItemIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != it.ID {
		t.Errorf("ListItemIDs = %v, want [%s]", ids, it.ID)
	}
}

func TestInterruptedSaveLeavesCanonicalIntact(t *testing.T) {
	r := initTestRepo(t)

	it := item.New(item.TypeNote, map[string]any{"title": "v1"})
	if err := r.SaveItem(it); err != nil {
		t.Fatalf("SaveItem failed: %v", err)
	}

	// Simulate a crash mid-write: a half-written temp file exists next to
	// the canonical file but was never renamed over it.
	stray := filepath.Join(r.ItemsDir(), "."+it.ID+".json.tmp-crashed")
	if err := os.WriteFile(stray, []byte(`{"uuid":"`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := r.LoadItem(it.ID)
	if err != nil {
		t.Fatalf("LoadItem failed: %v", err)
	}
	if got, _ := item.Lookup(loaded.Data, "title"); got != "v1" {
		t.Errorf("canonical content disturbed: %v", loaded.Data)
	}
}

func TestPrettyJSONConfig(t *testing.T) {
	r := initTestRepo(t)
	r.config.PrettyJSON = true

	it := item.New(item.TypeNote, map[string]any{"title": "x"})
	if err := r.SaveItem(it); err != nil {
		t.Fatalf("SaveItem failed: %v", err)
	}

	raw, err := os.ReadFile(r.ItemPath(it.ID))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(raw) < 2 || raw[0] != '{' || raw[1] != '\n' {
		t.Errorf("expected indented document, got %q", raw)
	}
}
