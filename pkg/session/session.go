// Package session implements the checkout protocol for mutating items: lock,
// back up, edit, then commit or emit recovery artifacts. Locks and backups
// are filesystem artifacts, so a session interrupted by process death leaves
// a recoverable trace rather than a silently corrupted item.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thomas6785/protomanage/pkg/item"
	"github.com/thomas6785/protomanage/pkg/repo"
)

// ErrAbandoned is the cause recorded when a session is closed without an
// explicit commit or abort.
var ErrAbandoned = errors.New("edit session abandoned without commit")

// Session is a scoped mutable view over one or more checked-out items.
// Exactly one of Commit or Abort ends it; Close is a safety net that aborts
// if neither ran.
type Session struct {
	repo  *repo.Repo
	items []*item.Item

	// backups maps item ID to its pre-edit snapshot path. A backup exists
	// iff the item is checked out and unsaved.
	backups map[string]string
	locked  []string
	done    bool
}

// Begin checks out the given items: each is locked and snapshotted before
// the caller may mutate it. If any lock is contested the whole checkout is
// rolled back and the *ConflictError is returned — partial sessions never
// survive Begin.
func Begin(r *repo.Repo, items ...*item.Item) (*Session, error) {
	s := &Session{
		repo:    r,
		items:   items,
		backups: map[string]string{},
	}

	for _, it := range items {
		if err := acquireLock(r, it.ID); err != nil {
			s.unwind()
			return nil, err
		}
		s.locked = append(s.locked, it.ID)

		backupPath, err := s.writeBackup(it)
		if err != nil {
			s.unwind()
			return nil, err
		}
		s.backups[it.ID] = backupPath
	}

	return s, nil
}

// unwind releases everything taken by a partially completed Begin.
func (s *Session) unwind() {
	for _, path := range s.backups {
		os.Remove(path)
	}
	for _, id := range s.locked {
		releaseLock(s.repo, id)
	}
	s.done = true
}

func (s *Session) writeBackup(it *item.Item) (string, error) {
	if err := os.MkdirAll(s.repo.BackupsDir(), 0755); err != nil {
		return "", fmt.Errorf("create backups directory: %w", err)
	}

	snapshot := it.Clone()
	raw, err := s.repo.EncodeItem(snapshot)
	if err != nil {
		return "", fmt.Errorf("snapshot item %s: %w", it.ID, err)
	}

	path := filepath.Join(s.repo.BackupsDir(), it.ID+".json")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", fmt.Errorf("write backup for item %s: %w", it.ID, err)
	}
	return path, nil
}

// Items returns the checked-out items for mutation.
func (s *Session) Items() []*item.Item { return s.items }

// Commit durably saves every item, discards the backups, and releases the
// locks, in that order. A failed save flips the session onto the recovery
// path: backups are preserved as recovery artifacts and the save error is
// returned, with the canonical files of unsaved items untouched.
func (s *Session) Commit() error {
	if s.done {
		return fmt.Errorf("edit session already ended")
	}

	var saved []string
	for _, it := range s.items {
		if err := s.repo.SaveItem(it); err != nil {
			s.rollbackSaved(saved)
			return s.Abort(err)
		}
		saved = append(saved, it.ID)
	}

	for id, path := range s.backups {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("discard backup for item %s: %w", id, err)
		}
	}
	var firstErr error
	for _, id := range s.locked {
		if err := releaseLock(s.repo, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.done = true
	return firstErr
}

// rollbackSaved restores canonical files this commit already wrote from
// their pre-edit snapshots, so a failed multi-item commit leaves no partial
// writes behind. A snapshot that cannot be read back stays in place and
// becomes a recovery artifact during the abort that follows.
func (s *Session) rollbackSaved(ids []string) {
	for _, id := range ids {
		backupPath, ok := s.backups[id]
		if !ok {
			continue
		}
		raw, err := os.ReadFile(backupPath)
		if err != nil {
			continue
		}
		s.repo.RestoreItem(id, raw)
	}
}

// Abort ends the session without applying edits: each pre-edit snapshot is
// preserved at a deterministic recovery path, locks are released, and the
// returned error wraps cause and names every artifact written. Canonical
// item files are left exactly as they were at checkout time.
func (s *Session) Abort(cause error) error {
	if s.done {
		return cause
	}
	s.done = true

	var artifacts []string
	var emitErrs []string
	for id, backupPath := range s.backups {
		artifact, err := emitRecovery(s.repo, id, backupPath)
		if err != nil {
			emitErrs = append(emitErrs, fmt.Sprintf("item %s: %v", id, err))
			continue
		}
		artifacts = append(artifacts, artifact)
	}

	for _, id := range s.locked {
		releaseLock(s.repo, id)
	}

	msg := fmt.Sprintf("edit session failed in repository %s", s.repo.Root())
	if len(artifacts) > 0 {
		msg += fmt.Sprintf("; pre-edit snapshots preserved at %s", strings.Join(artifacts, ", "))
	}
	if len(emitErrs) > 0 {
		msg += fmt.Sprintf("; FAILED to preserve some snapshots (%s)", strings.Join(emitErrs, "; "))
	}
	return fmt.Errorf("%s: %w", msg, cause)
}

// Discard ends the session without saving and without emitting recovery
// artifacts: backups are removed and locks released. For flows that checked
// items out but deliberately made no edits to preserve, such as a checkout
// whose item was replaced by a type transformation.
func (s *Session) Discard() error {
	if s.done {
		return nil
	}
	s.unwind()
	return nil
}

// Close aborts the session if it was never committed. Intended for defer so
// every exit path releases locks and disposes of backups.
func (s *Session) Close() error {
	if s.done {
		return nil
	}
	return s.Abort(ErrAbandoned)
}

// emitRecovery moves a backup snapshot to the recovery area. Existing
// artifacts are never overwritten: the name carries a timestamp and an
// O_EXCL create loop bumps a counter on collision.
func emitRecovery(r *repo.Repo, id, backupPath string) (string, error) {
	if err := os.MkdirAll(r.RecoveryDir(), 0755); err != nil {
		return "", fmt.Errorf("create recovery directory: %w", err)
	}

	stamp := time.Now().Format("20060102-150405")
	for n := 0; ; n++ {
		name := fmt.Sprintf("%s-%s.json", id, stamp)
		if n > 0 {
			name = fmt.Sprintf("%s-%s.%d.json", id, stamp, n)
		}
		path := filepath.Join(r.RecoveryDir(), name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", fmt.Errorf("create recovery artifact %s: %w", path, err)
		}

		raw, err := os.ReadFile(backupPath)
		if err == nil {
			_, err = f.Write(raw)
		}
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return "", fmt.Errorf("write recovery artifact %s: %w", path, err)
		}

		os.Remove(backupPath)
		return path, nil
	}
}

// Salvage preserves a stranded backup (left behind by a killed process) as
// a recovery artifact. Doctor uses this during cleanup sweeps.
func Salvage(r *repo.Repo, id, backupPath string) (string, error) {
	return emitRecovery(r, id, backupPath)
}

// Edit is the scoped-acquisition wrapper: it checks the items out, runs fn,
// and commits on success or aborts (preserving recovery artifacts and
// re-raising fn's error) on failure. The lock-release and backup-disposition
// guarantee holds on every exit path.
func Edit(r *repo.Repo, items []*item.Item, fn func(items []*item.Item) error) (err error) {
	s, err := Begin(r, items...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := fn(s.Items()); err != nil {
		return s.Abort(err)
	}
	return s.Commit()
}
