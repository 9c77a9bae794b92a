package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TagParseErrorSentinel replaces the tags when the tag block cannot be parsed.
const TagParseErrorSentinel = "#AI_Tag_Error"

// SplitResponse splits resp once on delimiter into the note body and the raw
// tag block. found is false when the delimiter is absent.
func SplitResponse(resp string, delimiter string) (note string, tagBlock string, found bool) {
	before, after, found := strings.Cut(resp, delimiter)
	if !found {
		return strings.TrimSpace(resp), "", false
	}
	return strings.TrimSpace(before), strings.TrimSpace(after), true
}

// ParseTags decodes a JSON array of strings, tolerating code fences around it.
// Blank and case-insensitively duplicated tags are dropped.
func ParseTags(raw string) ([]string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.ReplaceAll(clean, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var tags []string
	if err := json.Unmarshal([]byte(clean), &tags); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	uniq := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		normalized := strings.TrimSpace(tag)
		if normalized == "" {
			continue
		}
		key := strings.ToLower(normalized)
		if seen[key] {
			continue
		}
		seen[key] = true
		uniq = append(uniq, normalized)
	}
	return uniq, nil
}
