package item

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TypeDef describes one item type: its namespaced name plus the capability
// set the core dispatches through. Any capability may be nil, in which case
// the core falls back to generic behavior. Plugins register their types at
// startup; the core never inspects type-specific fields itself.
type TypeDef struct {
	// Name is the namespaced unique name, e.g. "org.author.plugin.item-name".
	Name string

	// DisplayName is the human-facing name. Derived from Name when empty.
	DisplayName string

	// Version of the type schema.
	Version string

	// Validate checks an item's data payload. Called before a save when set.
	Validate func(it *Item) error

	// Render produces a one-line human-facing representation.
	Render func(it *Item) string

	// Transform converts an item into a fresh item of target type. Keyed by
	// the target type's unique name.
	Transform map[string]func(it *Item) (*Item, error)
}

var titleCaser = cases.Title(language.English)

// Display returns the display name, deriving one from the last segment of
// the unique name ("inbox-item" -> "Inbox Item") when none was set.
func (d TypeDef) Display() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	segs := strings.Split(d.Name, ".")
	last := segs[len(segs)-1]
	return titleCaser.String(strings.ReplaceAll(last, "-", " "))
}

// Registry is the dispatch table from type discriminator to capabilities.
// It is populated once at startup (built-ins plus whatever the plugin layer
// supplies) and read-only afterwards.
type Registry struct {
	types map[string]TypeDef
}

// NewRegistry returns a registry pre-populated with the built-in core types.
func NewRegistry() *Registry {
	r := &Registry{types: map[string]TypeDef{}}
	registerBuiltins(r)
	return r
}

// Register adds or replaces a type definition.
func (r *Registry) Register(def TypeDef) error {
	if def.Name == "" {
		return fmt.Errorf("type definition has no name")
	}
	r.types[def.Name] = def
	return nil
}

// Get looks up a type definition. Unknown types are not an error for the
// core; callers get the zero TypeDef and ok=false.
func (r *Registry) Get(name string) (TypeDef, bool) {
	def, ok := r.types[name]
	return def, ok
}

// Names returns the registered type names in no particular order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}

// Validate runs the type's validate capability if the item's type is known
// and has one. Unknown types pass: their payload is opaque to the core.
func (r *Registry) Validate(it *Item) error {
	def, ok := r.Get(it.Type)
	if !ok || def.Validate == nil {
		return nil
	}
	return def.Validate(it)
}

// Render produces a human-facing line for the item, falling back to the
// short ID and type when no render capability exists.
func (r *Registry) Render(it *Item) string {
	if def, ok := r.Get(it.Type); ok && def.Render != nil {
		return def.Render(it)
	}
	return fmt.Sprintf("%s %s", it.ShortID(), it.Type)
}

// Transform converts an item to the target type using the source type's
// transform capability. The returned item has a fresh UUID; the caller is
// responsible for persisting it and removing the original.
func (r *Registry) Transform(it *Item, target string) (*Item, error) {
	def, ok := r.Get(it.Type)
	if !ok {
		return nil, fmt.Errorf("item %s has unknown type %q", it.ShortID(), it.Type)
	}
	fn, ok := def.Transform[target]
	if !ok {
		return nil, fmt.Errorf("type %q has no transform to %q", it.Type, target)
	}
	out, err := fn(it)
	if err != nil {
		return nil, fmt.Errorf("transform %s from %q to %q: %w", it.ShortID(), it.Type, target, err)
	}
	if tdef, ok := r.Get(target); ok {
		out.Type = tdef.Name
		out.TypeVersion = tdef.Version
	} else {
		out.Type = target
	}
	return out, nil
}
