package service

import (
	"time"

	"github.com/xxxsen/spark/internal/model"
	"github.com/xxxsen/spark/internal/pkg/mdutil"
)

const untitled = "Untitled fragment"

type BlockView struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	CreatedAt        time.Time      `json:"created_at"`
	SourceKind       string         `json:"source_kind"`
	RawContent       string         `json:"raw_content"`
	Metadata         map[string]any `json:"metadata"`
	ProcessedContent string         `json:"processed_content"`
	Status           string         `json:"status"`
	Failure          *model.Failure `json:"failure,omitempty"`
	AITags           []string       `json:"ai_tags"`
	UserTags         []string       `json:"user_tags"`
	EmbeddingDim     int            `json:"embedding_dim"`
	InCorpus         bool           `json:"in_corpus"`
}

type RelatedView struct {
	Block      *BlockView `json:"block"`
	Score      float64    `json:"score"`
	SharedTags []string   `json:"shared_tags"`
}

func newBlockView(b *model.Block, inCorpus bool) *BlockView {
	title := untitled
	if b.Status == model.BlockProcessed {
		title = mdutil.TitleOr(b.ProcessedContent, 40, untitled)
	}
	meta := make(map[string]any, len(b.Metadata))
	for k, v := range b.Metadata {
		meta[k] = v
	}
	return &BlockView{
		ID:               b.ID,
		Title:            title,
		CreatedAt:        b.CreatedAt,
		SourceKind:       string(b.SourceKind),
		RawContent:       b.RawContent,
		Metadata:         meta,
		ProcessedContent: b.ProcessedContent,
		Status:           string(b.Status),
		Failure:          b.Failure,
		AITags:           append([]string{}, b.AITags...),
		UserTags:         append([]string{}, b.UserTags...),
		EmbeddingDim:     len(b.Embedding),
		InCorpus:         inCorpus,
	}
}
