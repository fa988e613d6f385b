package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thomas6785/protomanage/pkg/repo"
)

// LockInfo is the owner metadata written into a lock file. It survives the
// owning process, so a second process hitting the lock can report who holds
// it, and a killed process leaves an inspectable trace.
type LockInfo struct {
	PID      int       `json:"pid"`
	Host     string    `json:"host"`
	User     string    `json:"user"`
	Acquired time.Time `json:"acquired"`
}

// ConflictError is returned when an identifier is already checked out by
// another session. There are no wait-for-lock semantics; contention surfaces
// immediately and the user retries.
type ConflictError struct {
	Repo   string // repository root path
	ID     string // contested item identifier
	Holder *LockInfo
}

func (e *ConflictError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("item %s in repository %s is locked by pid %d on %s since %s",
			e.ID, e.Repo, e.Holder.PID, e.Holder.Host, e.Holder.Acquired.Format(time.RFC3339))
	}
	return fmt.Sprintf("item %s in repository %s is locked by another session", e.ID, e.Repo)
}

// LockPath returns where the lock file for an identifier lives.
func LockPath(r *repo.Repo, id string) string {
	return filepath.Join(r.LocksDir(), id+".lock")
}

// acquireLock takes the filesystem lock for id. O_CREATE|O_EXCL makes the
// create-or-fail decision atomic at the filesystem level, which is what
// makes the lock visible to independently started processes.
func acquireLock(r *repo.Repo, id string) error {
	if err := os.MkdirAll(r.LocksDir(), 0755); err != nil {
		return fmt.Errorf("create locks directory: %w", err)
	}

	path := LockPath(r, id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			holder, _ := ReadLock(path)
			return &ConflictError{Repo: r.Root(), ID: id, Holder: holder}
		}
		return fmt.Errorf("acquire lock for item %s: %w", id, err)
	}

	host, _ := os.Hostname()
	info := LockInfo{
		PID:      os.Getpid(),
		Host:     host,
		User:     os.Getenv("USER"),
		Acquired: time.Now(),
	}
	raw, err := json.MarshalIndent(info, "", "    ")
	if err == nil {
		_, err = f.Write(raw)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("write lock for item %s: %w", id, err)
	}
	return nil
}

// releaseLock drops the filesystem lock for id. Missing lock files are
// tolerated so release stays idempotent.
func releaseLock(r *repo.Repo, id string) error {
	err := os.Remove(LockPath(r, id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock for item %s: %w", id, err)
	}
	return nil
}

// ReadLock parses a lock file's owner metadata. Used for conflict reporting
// and by doctor when it sweeps for locks left behind by killed processes.
func ReadLock(path string) (*LockInfo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("parse lock file %s: %w", path, err)
	}
	return &info, nil
}
