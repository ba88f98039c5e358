package util

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseArgs decodes a raw JSON argument object as produced by a model. Empty
// input yields an empty map.
func ParseArgs(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	if args == nil { // literal null
		args = map[string]any{}
	}
	return args, nil
}

// DecodeArgs converts validated arguments into a typed struct using its json tags.
func DecodeArgs(args map[string]any, out any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
