package item

import (
	"strings"
	"testing"
)

func TestDisplayNameDerivation(t *testing.T) {
	def := TypeDef{Name: "org.example.plugin.shopping-list"}
	if got := def.Display(); got != "Shopping List" {
		t.Errorf("Display() = %q, want %q", got, "Shopping List")
	}

	def = TypeDef{Name: "x.y.thing", DisplayName: "My Thing"}
	if got := def.Display(); got != "My Thing" {
		t.Errorf("Display() = %q, want %q", got, "My Thing")
	}
}

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{TypeInboxItem, TypeNote} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("built-in type %s not registered", name)
		}
	}
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(TypeDef{Name: "org.example.plugin.task"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	names := r.Names()
	found := map[string]bool{}
	for _, name := range names {
		found[name] = true
	}
	for _, want := range []string{TypeInboxItem, TypeNote, "org.example.plugin.task"} {
		if !found[want] {
			t.Errorf("Names() = %v, missing %s", names, want)
		}
	}
}

func TestValidateInboxItem(t *testing.T) {
	r := NewRegistry()

	good := NewInboxItem("buy milk", nil)
	if err := r.Validate(good); err != nil {
		t.Errorf("valid inbox item rejected: %v", err)
	}

	bad := New(TypeInboxItem, map[string]any{})
	if err := r.Validate(bad); err == nil {
		t.Error("inbox item without text accepted")
	}

	// Unknown types are opaque to the core and always pass.
	unknown := New("org.example.mystery", map[string]any{})
	if err := r.Validate(unknown); err != nil {
		t.Errorf("unknown type rejected: %v", err)
	}
}

func TestRenderFallback(t *testing.T) {
	r := NewRegistry()

	it := New("org.example.mystery", nil)
	line := r.Render(it)
	if !strings.Contains(line, "org.example.mystery") {
		t.Errorf("fallback render %q does not mention the type", line)
	}
}

func TestTransformInboxToNote(t *testing.T) {
	r := NewRegistry()

	src := NewInboxItem("write the report", nil)
	out, err := r.Transform(src, TypeNote)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if out.ID == src.ID {
		t.Error("transformed item must get a fresh identifier")
	}
	if out.Type != TypeNote {
		t.Errorf("transformed item type = %s, want %s", out.Type, TypeNote)
	}
	if out.Data["title"] != "write the report" {
		t.Errorf("transform lost the text: %v", out.Data)
	}
}

func TestTransformUnknownTarget(t *testing.T) {
	r := NewRegistry()

	src := NewInboxItem("x", nil)
	if _, err := r.Transform(src, "org.example.unknown"); err == nil {
		t.Error("expected error transforming to a target with no capability")
	}
}
