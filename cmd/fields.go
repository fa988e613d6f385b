package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomas6785/protomanage/pkg/item"
)

// parsePathValues turns key=value arguments into a mapping of dotted key
// paths to values. Values that parse as JSON keep their parsed form
// (numbers, booleans, arrays, objects); anything else is taken as a plain
// string.
func parsePathValues(args []string) (map[string]any, error) {
	fields := map[string]any{}
	for _, arg := range args {
		key, rawValue, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}

		var value any
		if err := json.Unmarshal([]byte(rawValue), &value); err != nil {
			value = rawValue
		}
		fields[key] = value
	}
	return fields, nil
}

// parseFields builds a fresh data payload from key=value arguments, with
// dotted keys creating nested maps.
func parseFields(args []string) (map[string]any, error) {
	paths, err := parsePathValues(args)
	if err != nil {
		return nil, err
	}
	data := map[string]any{}
	for path, value := range paths {
		item.SetPath(data, path, value)
	}
	return data, nil
}
