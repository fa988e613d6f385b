package item

import "fmt"

// Built-in core type names.
const (
	TypeInboxItem = "protomanage.core.inbox-item"
	TypeNote      = "protomanage.core.note"
)

func registerBuiltins(r *Registry) {
	r.Register(TypeDef{
		Name:        TypeInboxItem,
		DisplayName: "Inbox Item",
		Version:     "0.1",
		Validate: func(it *Item) error {
			if _, ok := it.Data["text"]; !ok {
				return fmt.Errorf("inbox item %s has no text field", it.ShortID())
			}
			return nil
		},
		Render: func(it *Item) string {
			text, _ := it.Data["text"].(string)
			return fmt.Sprintf("%s - %s", it.ShortID(), text)
		},
		Transform: map[string]func(it *Item) (*Item, error){
			TypeNote: func(it *Item) (*Item, error) {
				text, _ := it.Data["text"].(string)
				return New(TypeNote, map[string]any{
					"title": text,
					"body":  "",
				}), nil
			},
		},
	})

	r.Register(TypeDef{
		Name:        TypeNote,
		DisplayName: "Note",
		Version:     "0.1",
		Render: func(it *Item) string {
			title, _ := it.Data["title"].(string)
			return fmt.Sprintf("%s - %s", it.ShortID(), title)
		},
	})
}

// NewInboxItem creates an inbox item carrying the text and the execution
// context it was captured in.
func NewInboxItem(text string, ctx *ExecutionContext) *Item {
	data := map[string]any{"text": text}
	if ctx != nil {
		data["context"] = ctx.ToData()
	}
	it := New(TypeInboxItem, data)
	it.TypeVersion = "0.1"
	return it
}
