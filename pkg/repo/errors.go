package repo

import (
	"errors"
	"fmt"
)

// Errors returned by the repository layer.
//
// These carry the repository and identifier involved so destructive-looking
// failures can always be reported precisely. Check them with errors.As:
//
//	var nf *repo.NotFoundError
//	if errors.As(err, &nf) {
//	    // requested repository or item does not exist
//	}

// NotFoundError is returned when a requested repository or item does not
// exist. ID is empty when the repository itself was missing.
type NotFoundError struct {
	Repo string // repository root path, empty if the repo itself is missing
	ID   string // item identifier, empty for repository-level misses
	Path string // the path that was looked up
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("repository not found at %s", e.Path)
	}
	return fmt.Sprintf("item %s not found in repository %s", e.ID, e.Repo)
}

// CorruptDataError is returned when an item's on-disk representation cannot
// be parsed into the expected schema.
type CorruptDataError struct {
	Repo string // repository root path
	ID   string // item identifier
	Path string // path of the corrupt file
	Err  error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt item %s in repository %s (%s): %v", e.ID, e.Repo, e.Path, e.Err)
}

func (e *CorruptDataError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a repository- or item-level miss.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsCorrupt reports whether err indicates an unparseable item file.
func IsCorrupt(err error) bool {
	var cd *CorruptDataError
	return errors.As(err, &cd)
}
