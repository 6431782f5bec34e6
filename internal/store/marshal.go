package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/plugmods/internal/module"
)

// marshalStrings converts a string list to canonical JSON TEXT for storage.
func marshalStrings(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := module.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(data), nil
}

// unmarshalStrings parses a JSON TEXT list. Empty text is an empty list.
func unmarshalStrings(data string) ([]string, error) {
	out := []string{}
	if data == "" || data == "[]" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return out, nil
}
