// Package query selects subsets of a repository's items. Filters compose
// conjunctively: identity, then type, then data-path equality, then an
// arbitrary predicate over the loaded item.
package query

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/thomas6785/protomanage/pkg/item"
	"github.com/thomas6785/protomanage/pkg/repo"
)

// Query describes which items to select. A zero Query matches everything.
type Query struct {
	// IDs restricts the result to the given identifiers.
	IDs []string

	// Type restricts the result to items with this type discriminator.
	Type string

	// Data maps dotted key paths to expected values. An item matches iff
	// every path resolves through its data payload to an equal value;
	// missing paths never match.
	Data map[string]any

	// Predicate is applied last, after the cheaper filters, to each loaded
	// item.
	Predicate func(*item.Item) bool

	// Strict aborts the whole query on the first corrupt item instead of
	// skipping it and recording it in the report.
	Strict bool
}

// Report lists items that could not be loaded during a non-strict query.
type Report struct {
	Skipped []error
}

// Run loads and filters the repository's items. The result is sorted by
// identifier, which keeps ordering stable between calls without promising
// any further semantics.
//
// Corrupt items are skipped and reported unless Strict is set, in which case
// the query fails with the *repo.CorruptDataError.
func Run(r *repo.Repo, q Query) ([]*item.Item, *Report, error) {
	ids, err := r.ListItemIDs()
	if err != nil {
		return nil, nil, err
	}

	idSet := map[string]bool{}
	for _, id := range q.IDs {
		idSet[id] = true
	}

	report := &Report{}
	var items []*item.Item
	for _, id := range ids {
		if len(idSet) > 0 && !idSet[id] {
			continue
		}

		it, err := r.LoadItem(id)
		if err != nil {
			if repo.IsCorrupt(err) && !q.Strict {
				report.Skipped = append(report.Skipped, err)
				continue
			}
			return nil, nil, err
		}

		if q.Type != "" && it.Type != q.Type {
			continue
		}
		if !matchesData(it, q.Data) {
			continue
		}
		if q.Predicate != nil && !q.Predicate(it) {
			continue
		}
		items = append(items, it)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, report, nil
}

// One runs the query and requires exactly one match.
func One(r *repo.Repo, q Query) (*item.Item, error) {
	items, _, err := Run(r, q)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, &repo.NotFoundError{Repo: r.Root(), ID: describe(q)}
	case 1:
		return items[0], nil
	default:
		return nil, fmt.Errorf("query matched %d items in repository %s, expected one", len(items), r.Root())
	}
}

func describe(q Query) string {
	if len(q.IDs) == 1 {
		return q.IDs[0]
	}
	return fmt.Sprintf("%v", q.IDs)
}

func matchesData(it *item.Item, want map[string]any) bool {
	for path, expected := range want {
		actual, ok := item.Lookup(it.Data, path)
		if !ok {
			return false
		}
		if !looseEqual(actual, expected) {
			return false
		}
	}
	return true
}

// looseEqual compares payload values the way JSON round-tripping leaves
// them: all numbers come back as float64, so numeric comparisons are done on
// converted values rather than raw types.
func looseEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
