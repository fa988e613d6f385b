package service

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/thomas6785/protomanage/pkg/item"
	"github.com/thomas6785/protomanage/pkg/query"
)

// EditWithEditor opens one item's data payload in the user's text editor and
// applies the edited result inside an edit session. The editor works on a
// temporary file; the canonical item file only changes at commit.
func (s *Service) EditWithEditor(id string) error {
	editor := s.Editor()
	if editor == "" {
		return fmt.Errorf("no editor configured: set editor in config or $EDITOR")
	}

	return s.UpdateItems(query.Query{IDs: []string{id}}, func(items []*item.Item) error {
		it := items[0]

		raw, err := json.MarshalIndent(it.Data, "", "    ")
		if err != nil {
			return err
		}

		tmp, err := os.CreateTemp("", "pm-edit-*.json")
		if err != nil {
			return err
		}
		tmpPath := tmp.Name()
		defer os.Remove(tmpPath)

		if _, err := tmp.Write(raw); err != nil {
			tmp.Close()
			return err
		}
		if err := tmp.Close(); err != nil {
			return err
		}

		if err := openEditor(editor, tmpPath); err != nil {
			return err
		}

		edited, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}
		var data map[string]any
		if err := json.Unmarshal(edited, &data); err != nil {
			return fmt.Errorf("edited payload for item %s is not valid JSON: %w", it.ID, err)
		}
		it.Data = data
		return nil
	})
}

// openEditor launches the editor, splitting the configured command on
// whitespace so values like "code --wait" work.
func openEditor(editor, path string) error {
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	c := exec.Command(parts[0], append(parts[1:], path)...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
