package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SourceKind string

const (
	SourceVideoSnippet     SourceKind = "video_snippet"
	SourceChatLog          SourceKind = "chat_log"
	SourceArticleHighlight SourceKind = "article_highlight"
)

func ParseSourceKind(s string) (SourceKind, error) {
	switch kind := SourceKind(strings.TrimSpace(s)); kind {
	case SourceVideoSnippet, SourceChatLog, SourceArticleHighlight:
		return kind, nil
	default:
		return "", fmt.Errorf("unsupported source kind: %q", s)
	}
}

type BlockStatus string

const (
	BlockPending   BlockStatus = "pending"
	BlockProcessed BlockStatus = "processed"
	BlockFailed    BlockStatus = "failed"
)

type FailureKind string

const (
	FailureAcquisition FailureKind = "acquisition"
	FailureGeneration  FailureKind = "generation"
)

type Failure struct {
	Kind  FailureKind `json:"kind"`
	Cause string      `json:"cause"`
}

const (
	MetaURL      = "url"
	MetaStartMin = "start_min"
	MetaEndMin   = "end_min"
)

// Block is one ingested knowledge fragment together with everything derived from it.
// ID, CreatedAt, SourceKind and Metadata never change after NewBlock.
type Block struct {
	ID               string         `json:"id"`
	CreatedAt        time.Time      `json:"created_at"`
	SourceKind       SourceKind     `json:"source_kind"`
	RawContent       string         `json:"raw_content"`
	Metadata         map[string]any `json:"metadata"`
	ProcessedContent string         `json:"processed_content"`
	Status           BlockStatus    `json:"status"`
	Failure          *Failure       `json:"failure,omitempty"`
	AITags           []string       `json:"ai_tags"`
	UserTags         []string       `json:"user_tags"`
	Embedding        []float32      `json:"-"`
}

func NewBlock(kind SourceKind, rawContent string, metadata map[string]any) (*Block, error) {
	if _, err := ParseSourceKind(string(kind)); err != nil {
		return nil, err
	}
	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	return &Block{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		SourceKind: kind,
		RawContent: rawContent,
		Metadata:   meta,
		Status:     BlockPending,
		AITags:     []string{},
		UserTags:   []string{},
	}, nil
}

// Linkable reports whether the block may join the corpus and take part in linking.
func (b *Block) Linkable() bool {
	return b != nil && b.Status == BlockProcessed && len(b.Embedding) > 0
}

func (b *Block) Failed() bool {
	return b != nil && b.Status == BlockFailed
}

func (b *Block) AddUserTags(tags ...string) {
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		b.UserTags = append(b.UserTags, tag)
	}
}

// Tags returns AI tags followed by user tags.
func (b *Block) Tags() []string {
	out := make([]string, 0, len(b.AITags)+len(b.UserTags))
	out = append(out, b.AITags...)
	return append(out, b.UserTags...)
}

func (b *Block) MetaString(key string) (string, bool) {
	v, ok := b.Metadata[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		val = strings.TrimSpace(val)
		return val, val != ""
	case fmt.Stringer:
		return val.String(), true
	default:
		return "", false
	}
}

// MetaFloat reads a numeric metadata value. Numbers decoded from JSON or YAML
// and numeric strings are accepted.
func (b *Block) MetaFloat(key string) (float64, bool) {
	v, ok := b.Metadata[key]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func (b *Block) String() string {
	short := b.ID
	if len(short) > 6 {
		short = short[:6]
	}
	return fmt.Sprintf("<Block %s: %s | Tags: %v>", short, b.SourceKind, b.Tags())
}
