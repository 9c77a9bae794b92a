// Package transcript turns video references into plain transcript text.
package transcript

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidReference = errors.New("invalid video reference")
	ErrNoCaptions       = errors.New("no captions available")
	ErrEmptyTranscript  = errors.New("transcript is empty for the requested range")
)

// Fetcher fetches the transcript of ref. Bounds are in minutes and either may be nil.
type Fetcher interface {
	Fetch(ctx context.Context, ref string, startMin, endMin *float64) (string, error)
}

// Segment is one caption line and its start offset in seconds.
type Segment struct {
	Start float64
	Text  string
}

// JoinSegments concatenates segment text inside the window. A segment is kept
// when its start is at or after the start bound; accumulation stops at the
// first segment starting after the end bound.
func JoinSegments(segments []Segment, startMin, endMin *float64) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if startMin != nil && seg.Start < *startMin*60 {
			continue
		}
		if endMin != nil && seg.Start > *endMin*60 {
			break
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}
