package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/spark/internal/model"
	"github.com/xxxsen/spark/internal/transcript"
)

const provenanceMarker = "[transcript]"

// resolution is the outcome of the input stage.
type resolution struct {
	text string
	// raw replaces Block.RawContent when set.
	raw *string
}

func (r resolution) apply(b *model.Block) {
	if r.raw != nil {
		b.RawContent = *r.raw
	}
}

// generation is the outcome of the generate+parse stage.
type generation struct {
	note   string
	tags   []string
	tagErr error
}

func (g generation) apply(b *model.Block) {
	b.ProcessedContent = g.note
	b.AITags = g.tags
	b.Status = model.BlockProcessed
	b.Failure = nil
}

// videoReference finds the source link of a video block, metadata first.
func videoReference(b *model.Block) (string, bool) {
	if ref, ok := b.MetaString(model.MetaURL); ok {
		return ref, true
	}
	return transcript.FindReference(b.RawContent)
}

func timeBounds(b *model.Block) (start, end *float64) {
	if v, ok := b.MetaFloat(model.MetaStartMin); ok {
		start = &v
	}
	if v, ok := b.MetaFloat(model.MetaEndMin); ok {
		end = &v
	}
	return start, end
}

func resolveInput(ctx context.Context, fetcher transcript.Fetcher, b *model.Block, previewChars int) (resolution, error) {
	if b.SourceKind != model.SourceVideoSnippet {
		return resolution{text: b.RawContent}, nil
	}
	ref, ok := videoReference(b)
	if !ok {
		return resolution{text: b.RawContent}, nil
	}
	if fetcher == nil {
		return resolution{}, fmt.Errorf("transcript fetcher not configured")
	}
	start, end := timeBounds(b)
	text, err := fetcher.Fetch(ctx, ref, start, end)
	if err != nil {
		return resolution{}, err
	}
	raw := fmt.Sprintf("%s %s\n\n%s", provenanceMarker, ref, preview(text, previewChars))
	return resolution{text: text, raw: &raw}, nil
}

func parseGeneration(resp string, delimiter string) (generation, error) {
	note, tagBlock, found := SplitResponse(resp, delimiter)
	if note == "" {
		return generation{}, fmt.Errorf("response has no note body")
	}
	if !found {
		return generation{note: note, tags: []string{}}, nil
	}
	tags, err := ParseTags(tagBlock)
	if err != nil {
		return generation{note: note, tags: []string{TagParseErrorSentinel}, tagErr: err}, nil
	}
	return generation{note: note, tags: tags}, nil
}

// truncateRunes cuts s to at most n runes; n <= 0 disables the limit.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func preview(s string, n int) string {
	cut := truncateRunes(s, n)
	if len(cut) < len(s) {
		return strings.TrimSpace(cut) + "..."
	}
	return cut
}
