package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/spark/internal/ai"
	"github.com/xxxsen/spark/internal/corpus"
	"github.com/xxxsen/spark/internal/linking"
	"github.com/xxxsen/spark/internal/model"
	"github.com/xxxsen/spark/internal/pipeline"
	appErr "github.com/xxxsen/spark/internal/pkg/errors"
)

// scriptedService answers by looking for a keyword of the prompt.
type scriptedService struct {
	notes map[string]string
	vecs  map[string][]float32
}

func (s *scriptedService) Generate(ctx context.Context, prompt string, media *ai.Media) (string, error) {
	for key, note := range s.notes {
		if strings.Contains(prompt, key) {
			return note, nil
		}
	}
	return "", errors.New("model overloaded")
}

func (s *scriptedService) Embed(ctx context.Context, text string) ([]float32, error) {
	for key, vec := range s.vecs {
		if strings.Contains(text, key) {
			return vec, nil
		}
	}
	return nil, errors.New("no vector")
}

func newTestService() *SparkService {
	gen := &scriptedService{
		notes: map[string]string{
			"topic-alpha": "# Names and Reality\nbody\nTagsJSON: [\"#politics\", \"#philosophy\"]",
			"topic-beta":  "# Mencius\nbody\nTagsJSON: [\"#Philosophy\", \"#history\"]",
			"topic-gamma": "# Noodles\nbody\nTagsJSON: [\"#food\"]",
		},
		vecs: map[string][]float32{
			"Names and Reality": {1, 0},
			"# Mencius":         {0.9, 0.1},
			"# Noodles":         {-1, 0},
		},
	}
	store := corpus.NewStore()
	p := pipeline.New(nil, gen, store, pipeline.DefaultConfig())
	return NewSparkService(p, store, linking.NewEngine(store, linking.DefaultConfig()))
}

func TestSparkService_IngestAndRelate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.Ingest(ctx, IngestRequest{SourceKind: "chat_log", RawContent: "talk about topic-alpha"})
	require.NoError(t, err)
	require.Equal(t, "processed", a.Status)
	require.Equal(t, "Names and Reality", a.Title)
	require.True(t, a.InCorpus)
	require.Equal(t, 2, a.EmbeddingDim)

	b, err := svc.Ingest(ctx, IngestRequest{SourceKind: "article_highlight", RawContent: "topic-beta said"})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, IngestRequest{SourceKind: "article_highlight", RawContent: "topic-gamma notes"})
	require.NoError(t, err)

	related, err := svc.Related(ctx, a.ID, 3)
	require.NoError(t, err)
	require.Len(t, related, 1)
	require.Equal(t, b.ID, related[0].Block.ID)
	require.InDelta(t, 0.9939, related[0].Score, 1e-3)
	require.Equal(t, []string{"#Philosophy"}, related[0].SharedTags)

	list := svc.List(ctx)
	require.Len(t, list, 3)
	require.Equal(t, a.ID, list[2].ID)
	require.Len(t, svc.Corpus(ctx), 3)
}

func TestSparkService_FailedBlockVisibleButNotLinked(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	failed, err := svc.Ingest(ctx, IngestRequest{SourceKind: "chat_log", RawContent: "unknown topic"})
	require.NoError(t, err)
	require.Equal(t, "failed", failed.Status)
	require.Equal(t, untitled, failed.Title)
	require.False(t, failed.InCorpus)
	require.True(t, strings.HasPrefix(failed.ProcessedContent, pipeline.ErrorPrefix))

	got, err := svc.Get(ctx, failed.ID)
	require.NoError(t, err)
	require.Equal(t, failed.ID, got.ID)
	require.Empty(t, svc.Corpus(ctx))

	related, err := svc.Related(ctx, failed.ID, 3)
	require.NoError(t, err)
	require.Empty(t, related)
}

func TestSparkService_Validation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Ingest(ctx, IngestRequest{SourceKind: "podcast", RawContent: "x"})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = svc.Ingest(ctx, IngestRequest{SourceKind: "chat_log", RawContent: "  "})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = svc.Ingest(ctx, IngestRequest{SourceKind: "video_snippet"})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = svc.Related(ctx, "missing", 3)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = svc.AddUserTags(ctx, "missing", []string{"#x"})
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestSparkService_AddUserTags(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	a, err := svc.Ingest(ctx, IngestRequest{SourceKind: "chat_log", RawContent: "topic-alpha again"})
	require.NoError(t, err)

	view, err := svc.AddUserTags(ctx, a.ID, []string{"#Project-Politics"})
	require.NoError(t, err)
	require.Equal(t, []string{"#Project-Politics"}, view.UserTags)
	require.Equal(t, []string{"#politics", "#philosophy"}, view.AITags)

	_, err = svc.AddUserTags(ctx, a.ID, []string{" "})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestSharedTags(t *testing.T) {
	require.Equal(t, []string{"#B", "#c"}, sharedTags([]string{"#a", "#b", "#c"}, []string{"#B", "#c", "#c", "#d"}))
	require.Equal(t, []string{}, sharedTags(nil, []string{"#a"}))
}

func TestSparkService_CreateThenProcess(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, IngestRequest{SourceKind: "chat_log", RawContent: "topic-alpha once more"})
	require.NoError(t, err)
	require.Equal(t, "pending", created.Status)
	require.False(t, created.InCorpus)

	processed, err := svc.Process(ctx, created.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "processed", processed.Status)
	require.True(t, processed.InCorpus)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "processed", got.Status)
	require.Len(t, svc.List(ctx), 1)

	_, err = svc.Process(ctx, created.ID, nil)
	require.ErrorIs(t, err, appErr.ErrConflict)
	_, err = svc.Process(ctx, "missing", nil)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestSparkService_EmbeddingRetryCommitsSharedBlock(t *testing.T) {
	gen := &scriptedService{
		notes: map[string]string{"topic-alpha": "# Late Vector\nbody\nTagsJSON: [\"#late\"]"},
		vecs:  map[string][]float32{},
	}
	store := corpus.NewStore()
	p := pipeline.New(nil, gen, store, pipeline.DefaultConfig())
	svc := NewSparkService(p, store, linking.NewEngine(store, linking.DefaultConfig()))
	ctx := context.Background()

	view, err := svc.Ingest(ctx, IngestRequest{SourceKind: "chat_log", RawContent: "topic-alpha"})
	require.NoError(t, err)
	require.Equal(t, "processed", view.Status)
	require.False(t, view.InCorpus)
	require.Equal(t, 1, p.PendingEmbeddings())

	gen.vecs["Late Vector"] = []float32{0.5, 0.5}
	n, err := p.RetryEmbeddings(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := svc.Get(ctx, view.ID)
	require.NoError(t, err)
	require.True(t, got.InCorpus)
	require.Equal(t, 2, got.EmbeddingDim)
}

type gatedProcessor struct {
	next    Processor
	started chan struct{}
	release chan struct{}
}

func (g *gatedProcessor) Process(ctx context.Context, b *model.Block, media *ai.Media) {
	close(g.started)
	<-g.release
	g.next.Process(ctx, b, media)
}

func TestSparkService_UserTagsAddedDuringProcessingSurvive(t *testing.T) {
	gen := &scriptedService{
		notes: map[string]string{"topic-alpha": "# Names and Reality\nbody\nTagsJSON: [\"#politics\"]"},
		vecs:  map[string][]float32{"Names and Reality": {1, 0}},
	}
	store := corpus.NewStore()
	gate := &gatedProcessor{
		next:    pipeline.New(nil, gen, store, pipeline.DefaultConfig()),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := NewSparkService(gate, store, linking.NewEngine(store, linking.DefaultConfig()))
	ctx := context.Background()

	created, err := svc.Create(ctx, IngestRequest{SourceKind: "chat_log", RawContent: "topic-alpha"})
	require.NoError(t, err)
	_, err = svc.AddUserTags(ctx, created.ID, []string{"#early"})
	require.NoError(t, err)

	var processed *BlockView
	var processErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		processed, processErr = svc.Process(ctx, created.ID, nil)
	}()
	<-gate.started

	_, err = svc.AddUserTags(ctx, created.ID, []string{"#mine"})
	require.NoError(t, err)
	_, err = svc.Process(ctx, created.ID, nil)
	require.ErrorIs(t, err, appErr.ErrConflict)

	close(gate.release)
	<-done
	require.NoError(t, processErr)
	require.Equal(t, "processed", processed.Status)
	require.Equal(t, []string{"#early", "#mine"}, processed.UserTags)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"#early", "#mine"}, got.UserTags)
	require.Equal(t, []string{"#politics"}, got.AITags)
}
