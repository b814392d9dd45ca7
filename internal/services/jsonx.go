package services

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when a model response contains no JSON value.
var ErrNoJSON = errors.New("response contains no JSON value")

// DecodeJSON extracts the outermost JSON object or array from a model
// response, tolerating markdown fences and surrounding prose.
func DecodeJSON(raw string, v any) error {
	body, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(body), v)
}

// ExtractJSON returns the JSON portion of raw.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", ErrNoJSON
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}
