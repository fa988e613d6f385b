package service

import (
	"fmt"

	"github.com/thomas6785/protomanage/pkg/index"
	"github.com/thomas6785/protomanage/pkg/query"
)

// Search matches text against the advisory index, refreshing the cache from
// the store first whenever its item count disagrees with the directory. The
// index only ever accelerates this feature; query results never depend on it.
func (s *Service) Search(text string) ([]*index.Hit, error) {
	if s.idx == nil {
		return nil, fmt.Errorf("search index unavailable in repository %s", s.Repo.Root())
	}

	ids, err := s.Repo.ListItemIDs()
	if err != nil {
		return nil, err
	}
	count, err := s.idx.Count()
	if err != nil || count != len(ids) {
		if err := s.RefreshIndex(); err != nil {
			return nil, err
		}
	}

	return s.idx.Search(text)
}

// RefreshIndex rebuilds the advisory index from the canonical item files.
func (s *Service) RefreshIndex() error {
	if s.idx == nil {
		return fmt.Errorf("search index unavailable in repository %s", s.Repo.Root())
	}

	items, report, err := query.Run(s.Repo, query.Query{})
	if err != nil {
		return err
	}
	for _, skipped := range report.Skipped {
		s.log.Warn(skipped.Error())
	}

	rendered := make([]string, len(items))
	for i, it := range items {
		rendered[i] = s.Render(it)
	}
	return s.idx.Rebuild(items, rendered)
}
