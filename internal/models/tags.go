package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TagList is a set of image tags. In JSON it may be given as a single string or as an array.
type TagList []string

// UnmarshalJSON accepts both "tag" and ["a", "b"]. A JSON null leaves the list nil.
func (t *TagList) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*t = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = TagList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("tags must be a string or an array of strings: %w", err)
	}
	*t = many
	return nil
}

// Normalize trims and lowercases every tag, dropping blank tags and duplicates while
// keeping the first occurrence order. A nil list stays nil.
func (t TagList) Normalize() TagList {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(t))
	out := make(TagList, 0, len(t))
	for _, tag := range t {
		lower := strings.ToLower(strings.TrimSpace(tag))
		if lower == "" {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}
