// Package service wires the repository locator, query engine, edit
// sessions, registry, and advisory index into the operations the CLI calls.
package service

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/thomas6785/protomanage/pkg/index"
	"github.com/thomas6785/protomanage/pkg/item"
	"github.com/thomas6785/protomanage/pkg/query"
	"github.com/thomas6785/protomanage/pkg/registry"
	"github.com/thomas6785/protomanage/pkg/repo"
	"github.com/thomas6785/protomanage/pkg/session"
)

// Config holds service configuration assembled from viper and flags.
type Config struct {
	// WorkingDir is where repository discovery starts. Defaults to the
	// process working directory.
	WorkingDir string

	// UseHome forces the home repository regardless of working directory.
	UseHome bool

	// Editor is the tool-level editor; per-repo config overrides it.
	Editor string
}

// Service is the core item service bound to one governing repository.
type Service struct {
	Repo  *repo.Repo
	Types *item.Registry

	cfg *Config
	log *logrus.Logger
	idx *index.Index // nil when the advisory index could not open
}

// New resolves the governing repository and wires up the service. Resolving
// also touches the home registry as a best-effort side effect, and — when
// the home repository itself governs — opportunistically reconciles all
// known repositories. Registry failures are logged and swallowed; they never
// fail the primary operation.
func New(cfg *Config, logger *logrus.Logger) (*Service, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.WarnLevel)
	}
	if cfg.WorkingDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		cfg.WorkingDir = cwd
	}

	var r *repo.Repo
	var err error
	if cfg.UseHome {
		r, err = repo.FindHome()
	} else {
		r, err = repo.Find(cfg.WorkingDir)
	}
	if err != nil {
		return nil, err
	}

	s := &Service{
		Repo:  r,
		Types: item.NewRegistry(),
		cfg:   cfg,
		log:   logger,
	}

	s.touchRegistry()

	idx, err := index.Open(r.IndexDBPath())
	if err != nil {
		logger.WithError(err).Warn("advisory index unavailable")
	} else {
		s.idx = idx
	}

	return s, nil
}

// touchRegistry refreshes this repository's entry in the home registry and,
// when the home repository governs, reconciles the rest. Best-effort only.
func (s *Service) touchRegistry() {
	reg, err := s.openHomeRegistry()
	if err != nil {
		s.log.WithError(err).Warn("could not open repository registry")
		return
	}
	defer reg.Close()

	if err := reg.TouchRepo(s.Repo); err != nil {
		s.log.WithError(err).WithField("repo", s.Repo.Root()).Warn("could not touch repository registry")
	}

	if s.Repo.IsHome() {
		if stale, err := reg.Reconcile(); err != nil {
			s.log.WithError(err).Warn("registry reconcile failed")
		} else if stale > 0 {
			s.log.WithField("stale", stale).Debug("registry reconcile marked entries stale")
		}
	}
}

func (s *Service) openHomeRegistry() (*registry.Registry, error) {
	home := s.Repo
	if !home.IsHome() {
		var err error
		home, err = repo.FindHome()
		if err != nil {
			return nil, err
		}
	}
	return registry.OpenFor(home)
}

// Editor returns the effective editor: per-repo config wins over the tool
// config, which wins over $EDITOR.
func (s *Service) Editor() string {
	if e := s.Repo.Config().Editor; e != "" {
		return e
	}
	if s.cfg.Editor != "" {
		return s.cfg.Editor
	}
	return os.Getenv("EDITOR")
}

// Render produces the item's one-line human representation via its type.
func (s *Service) Render(it *item.Item) string {
	return s.Types.Render(it)
}

// Close releases the service's resources.
func (s *Service) Close() error {
	if s.idx != nil {
		return s.idx.Close()
	}
	return nil
}

// CreateItem validates and persists a brand-new item of the given type.
func (s *Service) CreateItem(typ string, data map[string]any) (*item.Item, error) {
	it := item.New(typ, data)
	if def, ok := s.Types.Get(typ); ok {
		it.TypeVersion = def.Version
	}
	if err := s.Types.Validate(it); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveItem(it); err != nil {
		return nil, err
	}
	s.indexUpsert(it)
	return it, nil
}

// AddToInbox captures a text entry as an inbox item, stamped with the
// current execution context.
func (s *Service) AddToInbox(text string) (*item.Item, error) {
	it := item.NewInboxItem(text, item.CaptureContext())
	if err := s.Repo.SaveItem(it); err != nil {
		return nil, err
	}
	s.indexUpsert(it)
	return it, nil
}

// Items runs a query against the governing repository. Corrupt items are
// skipped and logged unless the query is strict.
func (s *Service) Items(q query.Query) ([]*item.Item, error) {
	items, report, err := query.Run(s.Repo, q)
	if err != nil {
		return nil, err
	}
	for _, skipped := range report.Skipped {
		s.log.Warn(skipped.Error())
	}
	return items, nil
}

// Item loads a single item by identifier.
func (s *Service) Item(id string) (*item.Item, error) {
	return s.Repo.LoadItem(id)
}

// UpdateItems checks the query's matches out in one edit session, applies fn
// to them, and commits — or emits recovery artifacts and re-raises fn's
// error. A corrupt item fails the whole call: sessions never skip.
func (s *Service) UpdateItems(q query.Query, fn func(items []*item.Item) error) error {
	q.Strict = true
	items, _, err := query.Run(s.Repo, q)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return &repo.NotFoundError{Repo: s.Repo.Root(), ID: describeQuery(q)}
	}

	err = session.Edit(s.Repo, items, func(checked []*item.Item) error {
		if err := fn(checked); err != nil {
			return err
		}
		for _, it := range checked {
			if err := s.Types.Validate(it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, it := range items {
		s.indexUpsert(it)
	}
	return nil
}

func describeQuery(q query.Query) string {
	if len(q.IDs) == 1 {
		return q.IDs[0]
	}
	return fmt.Sprintf("%v", q.IDs)
}

// SetFields updates the given dotted-path data fields on one item inside an
// edit session.
func (s *Service) SetFields(id string, fields map[string]any) error {
	return s.UpdateItems(query.Query{IDs: []string{id}}, func(items []*item.Item) error {
		for path, v := range fields {
			item.SetPath(items[0].Data, path, v)
		}
		return nil
	})
}

// DeleteItem removes an item's on-disk representation. The identifier is
// locked for the duration so a concurrent edit session cannot race the
// removal. Deleting an already-absent item is not an error.
func (s *Service) DeleteItem(id string) error {
	it, err := s.Repo.LoadItem(id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil
		}
		return err
	}

	sess, err := session.Begin(s.Repo, it)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteItem(id); err != nil {
		return sess.Abort(err)
	}
	sess.Discard()
	s.indexDelete(id)
	return nil
}

// TransformItem replaces an item with a fresh item of the target type, via
// the source type's transform capability. The old identifier is retired and
// its canonical file survives unchanged unless the whole exchange succeeds.
func (s *Service) TransformItem(id, target string) (*item.Item, error) {
	old, err := s.Repo.LoadItem(id)
	if err != nil {
		return nil, err
	}

	sess, err := session.Begin(s.Repo, old)
	if err != nil {
		return nil, err
	}

	replacement, err := s.Types.Transform(old, target)
	if err != nil {
		sess.Discard()
		return nil, err
	}
	if err := s.Types.Validate(replacement); err != nil {
		sess.Discard()
		return nil, err
	}
	if err := s.Repo.SaveItem(replacement); err != nil {
		sess.Discard()
		return nil, err
	}
	if err := s.Repo.DeleteItem(old.ID); err != nil {
		// Keep the old item authoritative: withdraw the replacement.
		s.Repo.DeleteItem(replacement.ID)
		return nil, sess.Abort(err)
	}

	sess.Discard()
	s.indexDelete(old.ID)
	s.indexUpsert(replacement)
	return replacement, nil
}

func (s *Service) indexUpsert(it *item.Item) {
	if s.idx == nil {
		return
	}
	if err := s.idx.Upsert(it, s.Render(it)); err != nil {
		s.log.WithError(err).WithField("item", it.ID).Debug("index upsert failed")
	}
}

func (s *Service) indexDelete(id string) {
	if s.idx == nil {
		return
	}
	if err := s.idx.Delete(id); err != nil {
		s.log.WithError(err).WithField("item", id).Debug("index delete failed")
	}
}
