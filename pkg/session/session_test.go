package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/thomas6785/protomanage/pkg/item"
	"github.com/thomas6785/protomanage/pkg/repo"
)

func seedItem(t *testing.T, r *repo.Repo, data map[string]any) *item.Item {
	t.Helper()
	it := item.New(item.TypeNote, data)
	if err := r.SaveItem(it); err != nil {
		t.Fatalf("SaveItem failed: %v", err)
	}
	return it
}

func newTestRepo(t *testing.T) *repo.Repo {
	t.Helper()
	r, err := repo.Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return r
}

func dataField(t *testing.T, r *repo.Repo, id, path string) any {
	t.Helper()
	loaded, err := r.LoadItem(id)
	if err != nil {
		t.Fatalf("LoadItem failed: %v", err)
	}
	v, _ := item.Lookup(loaded.Data, path)
	return v
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("readdir %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCommitPersistsEdits(t *testing.T) {
	r := newTestRepo(t)
	it := seedItem(t, r, map[string]any{"title": "before"})

	s, err := Begin(r, it)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	s.Items()[0].Data["title"] = "after"
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if got := dataField(t, r, it.ID, "title"); got != "after" {
		t.Errorf("canonical title = %v, want %q", got, "after")
	}
	if names := listDir(t, r.LocksDir()); len(names) != 0 {
		t.Errorf("locks left behind after commit: %v", names)
	}
	if names := listDir(t, r.BackupsDir()); len(names) != 0 {
		t.Errorf("backups left behind after commit: %v", names)
	}
}

func TestCommitRollsBackPartialSaves(t *testing.T) {
	r := newTestRepo(t)
	a := seedItem(t, r, map[string]any{"title": "a-original"})
	b := seedItem(t, r, map[string]any{"title": "b-original"})

	s, err := Begin(r, a, b)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	s.Items()[0].Data["title"] = "a-edited"
	s.Items()[1].Data["title"] = "b-edited"
	// A channel cannot be marshaled, so the second save fails after the
	// first already wrote its canonical file.
	s.Items()[1].Data["poison"] = make(chan int)

	if err := s.Commit(); err == nil {
		t.Fatal("Commit should fail when a save fails")
	}

	// Neither canonical file may carry in-session edits.
	if got := dataField(t, r, a.ID, "title"); got != "a-original" {
		t.Errorf("first item's canonical title = %v after failed commit, want pre-edit %q", got, "a-original")
	}
	if got := dataField(t, r, b.ID, "title"); got != "b-original" {
		t.Errorf("second item's canonical title = %v after failed commit, want pre-edit %q", got, "b-original")
	}

	// Both snapshots land as recovery artifacts, and locks are gone.
	if names := listDir(t, r.RecoveryDir()); len(names) != 2 {
		t.Errorf("recovery dir holds %v, want both pre-edit snapshots", names)
	}
	if names := listDir(t, r.LocksDir()); len(names) != 0 {
		t.Errorf("locks left behind after failed commit: %v", names)
	}
}

func TestAbortPreservesCanonicalAndEmitsRecovery(t *testing.T) {
	r := newTestRepo(t)
	it := seedItem(t, r, map[string]any{"title": "original"})

	s, err := Begin(r, it)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	s.Items()[0].Data["title"] = "mangled"

	cause := errors.New("validation rejected the edit")
	err = s.Abort(cause)
	if err == nil {
		t.Fatal("Abort should return an error")
	}
	if !errors.Is(err, cause) {
		t.Errorf("abort error does not wrap the cause: %v", err)
	}

	// Canonical file untouched.
	if got := dataField(t, r, it.ID, "title"); got != "original" {
		t.Errorf("canonical title = %v, want %q", got, "original")
	}

	// One recovery artifact holding the pre-edit snapshot.
	artifacts := listDir(t, r.RecoveryDir())
	if len(artifacts) != 1 {
		t.Fatalf("recovery dir holds %v, want one artifact", artifacts)
	}
	raw, err := os.ReadFile(filepath.Join(r.RecoveryDir(), artifacts[0]))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var doc struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse artifact: %v", err)
	}
	if doc.Data["title"] != "original" {
		t.Errorf("artifact carries %v, want the pre-edit snapshot", doc.Data)
	}

	// Locks and backups are gone.
	if names := listDir(t, r.LocksDir()); len(names) != 0 {
		t.Errorf("locks left behind after abort: %v", names)
	}
	if names := listDir(t, r.BackupsDir()); len(names) != 0 {
		t.Errorf("backups left behind after abort: %v", names)
	}
}

func TestBeginConflictFailsImmediately(t *testing.T) {
	r := newTestRepo(t)
	it := seedItem(t, r, map[string]any{"title": "x"})

	first, err := Begin(r, it)
	if err != nil {
		t.Fatalf("first Begin failed: %v", err)
	}
	defer first.Discard()

	_, err = Begin(r, it)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.ID != it.ID {
		t.Errorf("conflict names item %s, want %s", conflict.ID, it.ID)
	}
	if conflict.Holder == nil || conflict.Holder.PID != os.Getpid() {
		t.Errorf("conflict holder = %+v, want this process", conflict.Holder)
	}
}

func TestBeginRollsBackPartialCheckout(t *testing.T) {
	r := newTestRepo(t)
	a := seedItem(t, r, map[string]any{"title": "a"})
	b := seedItem(t, r, map[string]any{"title": "b"})

	// Hold b so a multi-item checkout of [a, b] is contested.
	holder, err := Begin(r, b)
	if err != nil {
		t.Fatalf("holder Begin failed: %v", err)
	}
	defer holder.Discard()

	_, err = Begin(r, a, b)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	// The lock on a taken before the conflict must have been rolled back.
	if _, err := os.Stat(LockPath(r, a.ID)); !os.IsNotExist(err) {
		t.Error("lock on first item survived a failed multi-item checkout")
	}
	if names := listDir(t, r.BackupsDir()); len(names) != 1 {
		t.Errorf("backups dir holds %v, want only the holder's", names)
	}

	// After the rollback a fresh checkout of a succeeds.
	s, err := Begin(r, a)
	if err != nil {
		t.Fatalf("re-checkout after rollback failed: %v", err)
	}
	s.Discard()
}

func TestRecoveryArtifactsNeverOverwritten(t *testing.T) {
	r := newTestRepo(t)
	it := seedItem(t, r, map[string]any{"title": "x"})

	// Two aborts within the same second collide on the timestamped name and
	// must land as distinct artifacts.
	for i := 0; i < 2; i++ {
		s, err := Begin(r, it)
		if err != nil {
			t.Fatalf("Begin %d failed: %v", i, err)
		}
		s.Abort(errors.New("boom"))
	}

	artifacts := listDir(t, r.RecoveryDir())
	if len(artifacts) != 2 {
		t.Errorf("recovery dir holds %v, want two distinct artifacts", artifacts)
	}
}

func TestDiscardLeavesNoTrace(t *testing.T) {
	r := newTestRepo(t)
	it := seedItem(t, r, map[string]any{"title": "x"})

	s, err := Begin(r, it)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	s.Items()[0].Data["title"] = "never saved"
	if err := s.Discard(); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}

	if got := dataField(t, r, it.ID, "title"); got != "x" {
		t.Errorf("canonical title = %v after discard", got)
	}
	if names := listDir(t, r.RecoveryDir()); len(names) != 0 {
		t.Errorf("discard emitted recovery artifacts: %v", names)
	}
	if names := listDir(t, r.LocksDir()); len(names) != 0 {
		t.Errorf("locks left behind after discard: %v", names)
	}
}

func TestCloseAbortsAbandonedSession(t *testing.T) {
	r := newTestRepo(t)
	it := seedItem(t, r, map[string]any{"title": "x"})

	s, err := Begin(r, it)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	err = s.Close()
	if !errors.Is(err, ErrAbandoned) {
		t.Errorf("Close on an open session should report ErrAbandoned, got %v", err)
	}
	if names := listDir(t, r.RecoveryDir()); len(names) != 1 {
		t.Errorf("abandoned session left %v recovery artifacts, want one", names)
	}

	// Close after commit is a no-op.
	s2, err := Begin(r, it)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := s2.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := s2.Close(); err != nil {
		t.Errorf("Close after commit should be nil, got %v", err)
	}
}

func TestEditWrapper(t *testing.T) {
	r := newTestRepo(t)
	it := seedItem(t, r, map[string]any{"count": float64(1)})

	err := Edit(r, []*item.Item{it}, func(items []*item.Item) error {
		items[0].Data["count"] = float64(2)
		return nil
	})
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if got := dataField(t, r, it.ID, "count"); got != float64(2) {
		t.Errorf("count = %v after edit, want 2", got)
	}

	// A failing edit function aborts: canonical state survives, the error
	// propagates.
	boom := errors.New("boom")
	err = Edit(r, []*item.Item{it}, func(items []*item.Item) error {
		items[0].Data["count"] = float64(99)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Edit should surface fn's error, got %v", err)
	}
	if got := dataField(t, r, it.ID, "count"); got != float64(2) {
		t.Errorf("count = %v after failed edit, want 2", got)
	}
}
