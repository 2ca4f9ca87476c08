package resolve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeObject decodes a JSON object into pairs, keeping document order.
//
// String values are returned unquoted, null becomes the empty string, numbers and
// booleans keep their literal text and nested objects or arrays are returned as compact
// JSON.
func DecodeObject(data []byte) ([]Pair, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("invalid JSON: expected an object")
	}

	var pairs []Pair
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("invalid JSON: expected a key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid JSON value for %q: %w", key, err)
		}
		value, err := rawToString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid JSON value for %q: %w", key, err)
		}
		pairs = append(pairs, Pair{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return pairs, nil
}

// ParsePayload interprets the text stored in a container.
//
// A JSON object yields its members. Any other non-empty text is a scalar and yields the
// single pair {container: text}, i.e. the container name doubles as the key. Text that
// merely starts with a brace, such as a generated password, is a scalar too. Empty text
// yields no pairs.
func ParsePayload(container, text string) []Pair {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "{") {
		if pairs, err := DecodeObject([]byte(trimmed)); err == nil {
			return pairs
		}
	}
	return []Pair{{Key: container, Value: text}}
}

func rawToString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", err
		}
		return buf.String(), nil
	case 'n':
		return "", nil
	default:
		return string(trimmed), nil
	}
}
