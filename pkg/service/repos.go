package service

import (
	"fmt"

	"github.com/thomas6785/protomanage/pkg/registry"
	"github.com/thomas6785/protomanage/pkg/repo"
)

// Registry operations invoked explicitly from the CLI. Unlike the implicit
// touch-on-resolve, these surface their errors: the user asked for them.

// ListRepos returns all registered repositories, most recently seen first.
func (s *Service) ListRepos() ([]*registry.Entry, error) {
	reg, err := s.openHomeRegistry()
	if err != nil {
		return nil, fmt.Errorf("open repository registry: %w", err)
	}
	defer reg.Close()
	return reg.List()
}

// TouchPath registers the repository governing dir, or with recursive, every
// repository found in the subtree under dir. Returns how many entries were
// touched.
func (s *Service) TouchPath(dir string, recursive bool) (int, error) {
	reg, err := s.openHomeRegistry()
	if err != nil {
		return 0, fmt.Errorf("open repository registry: %w", err)
	}
	defer reg.Close()

	if recursive {
		return reg.TouchTree(dir)
	}

	target, err := repo.Find(dir)
	if err != nil {
		return 0, err
	}
	if err := reg.TouchRepo(target); err != nil {
		return 0, err
	}
	return 1, nil
}

// ReconcileRepos runs a liveness pass over every registered repository and
// returns how many were marked stale. Stale entries are kept, never deleted.
func (s *Service) ReconcileRepos() (int, error) {
	reg, err := s.openHomeRegistry()
	if err != nil {
		return 0, fmt.Errorf("open repository registry: %w", err)
	}
	defer reg.Close()
	return reg.Reconcile()
}
