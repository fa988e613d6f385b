package item

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Item is a single tracked unit of information: a task, note, inbox entry,
// or any plugin-defined record. The core treats Type as an opaque namespaced
// string and Data as opaque structured content; behavior for a given type is
// looked up through the Registry.
type Item struct {
	// ID is the item's UUID, assigned at creation and immutable afterwards.
	// It doubles as the item's filename within a repository.
	ID string `json:"uuid"`

	// Type is the namespaced type discriminator, e.g.
	// "protomanage.core.inbox-item".
	Type string `json:"-"`

	// TypeVersion is the version of the type schema the item was written
	// with.
	TypeVersion string `json:"-"`

	// Data is the item's free-form payload. Keys map to JSON-compatible
	// values.
	Data map[string]any `json:"data"`

	// Path is where the item's canonical file lives, empty until the item
	// has been persisted.
	Path string `json:"-"`
}

// New creates an item of the given type with a fresh UUID.
func New(typ string, data map[string]any) *Item {
	if data == nil {
		data = map[string]any{}
	}
	return &Item{
		ID:   uuid.NewString(),
		Type: typ,
		Data: data,
	}
}

// ShortID returns the trailing fragment of the UUID used in human-facing
// output, matching the formatted form the original tool printed.
func (it *Item) ShortID() string {
	if len(it.ID) < 10 {
		return it.ID
	}
	tail := it.ID[len(it.ID)-10:]
	return fmt.Sprintf("[%s_%s]", tail[:5], tail[5:])
}

// Clone returns a deep copy of the item. Sessions snapshot items this way so
// a caller's in-session edits never alias the backup.
func (it *Item) Clone() *Item {
	cp := *it
	cp.Data = cloneMap(it.Data)
	return &cp
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// SetPath writes value at a dotted key path, creating intermediate maps as
// needed. A non-map value in the way is replaced by a map.
func SetPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// Lookup resolves a dotted key path ("a.b.c") through nested maps in data.
// The second return is false when any segment of the path is missing or a
// non-map value is traversed.
func Lookup(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
