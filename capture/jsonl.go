package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalRecords serializes a payload into newline-delimited JSON: one
// compact object per line, trailing newline after each line and nothing
// else. HTML escaping is off so non-ASCII and <, >, & survive literally.
//
// A nil payload yields the empty string, a map a single line, a list one
// line per element, and any other value a single {"value": ...} line.
func MarshalRecords(payload any) (string, error) {
	if payload == nil {
		return "", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	encode := func(v any) error {
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		return nil
	}

	switch v := payload.(type) {
	case []any:
		for _, item := range v {
			if err := encode(item); err != nil {
				return "", err
			}
		}
	case map[string]any:
		if err := encode(v); err != nil {
			return "", err
		}
	default:
		if err := encode(map[string]any{"value": v}); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
