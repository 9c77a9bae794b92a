// Package pipeline turns a raw content block into a tagged, embedded note and
// commits it to the corpus.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/spark/internal/ai"
	"github.com/xxxsen/spark/internal/model"
	"github.com/xxxsen/spark/internal/transcript"
)

const (
	DefaultEmbedMaxChars = 8000
	DefaultPreviewChars  = 200

	// ErrorPrefix marks ProcessedContent that carries a failure message.
	ErrorPrefix = "❌ "
)

type GenerationService interface {
	Generate(ctx context.Context, prompt string, media *ai.Media) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Corpus interface {
	Append(b *model.Block) error
}

type Config struct {
	TagDelimiter  string
	EmbedMaxChars int
	PreviewChars  int
}

func DefaultConfig() Config {
	return Config{
		TagDelimiter:  DefaultTagDelimiter,
		EmbedMaxChars: DefaultEmbedMaxChars,
		PreviewChars:  DefaultPreviewChars,
	}
}

// Pipeline processes blocks one stage after another. Different blocks may be
// processed concurrently; a single block must not be.
type Pipeline struct {
	fetcher transcript.Fetcher
	gen     GenerationService
	corpus  Corpus
	cfg     Config

	mu      sync.Mutex
	pending []*model.Block
	// guards blocks that already left Process and are now shared with readers
	shared sync.Locker
}

func New(fetcher transcript.Fetcher, gen GenerationService, corpus Corpus, cfg Config) *Pipeline {
	if cfg.TagDelimiter == "" {
		cfg.TagDelimiter = DefaultTagDelimiter
	}
	if cfg.PreviewChars <= 0 {
		cfg.PreviewChars = DefaultPreviewChars
	}
	if cfg.EmbedMaxChars <= 0 {
		cfg.EmbedMaxChars = DefaultEmbedMaxChars
	}
	return &Pipeline{
		fetcher: fetcher,
		gen:     gen,
		corpus:  corpus,
		cfg:     cfg,
		shared:  noopLocker{},
	}
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// SetSharedLocker makes RetryEmbeddings hold l while it updates queued blocks,
// for owners that hand processed blocks to concurrent readers.
func (p *Pipeline) SetSharedLocker(l sync.Locker) {
	if l == nil {
		l = noopLocker{}
	}
	p.shared = l
}

// Process runs the block through input resolution, generation, tag parsing and
// embedding, then commits it to the corpus if it became linkable. It never
// fails: errors end up in the block's Status, Failure and ProcessedContent.
// media is optional and passed to the generation call as is.
func (p *Pipeline) Process(ctx context.Context, b *model.Block, media *ai.Media) {
	if b == nil {
		return
	}
	logger := logutil.GetLogger(ctx).With(zap.String("block_id", b.ID), zap.String("source_kind", string(b.SourceKind)))
	if b.Status != model.BlockPending {
		logger.Warn("block already processed, skip", zap.String("status", string(b.Status)))
		return
	}
	logger.Info("processing block")

	res, err := resolveInput(ctx, p.fetcher, b, p.cfg.PreviewChars)
	if err != nil {
		logger.Error("resolve input failed", zap.Error(err))
		fail(b, model.FailureAcquisition, "transcript fetch failed", err)
		return
	}
	res.apply(b)

	prompt := BuildPrompt(b.SourceKind, res.text, p.cfg.TagDelimiter)
	logger.Debug("prompt assembled", zap.Int("chars", len(prompt)), zap.Bool("media", media != nil))
	resp, err := p.gen.Generate(ctx, prompt, media)
	if err == nil {
		var g generation
		if g, err = parseGeneration(resp, p.cfg.TagDelimiter); err == nil {
			if g.tagErr != nil {
				logger.Warn("tag block malformed", zap.Error(g.tagErr))
			}
			g.apply(b)
		}
	}
	if err != nil {
		logger.Error("generation failed", zap.Error(err))
		fail(b, model.FailureGeneration, "generation failed", err)
		return
	}

	vec, embedErr := p.embed(ctx, b)
	if embedErr == nil {
		b.Embedding = vec
	}
	p.commit(ctx, b)
	if embedErr != nil {
		logger.Warn("embedding failed, block stays unlinkable", zap.Error(embedErr))
		// queued last: once queued, retries may touch the block
		p.enqueue(b)
	}
	logger.Info("block processed", zap.Strings("ai_tags", b.AITags), zap.Int("embedding_dim", len(b.Embedding)))
}

func (p *Pipeline) embed(ctx context.Context, b *model.Block) ([]float32, error) {
	if b.Status != model.BlockProcessed || b.ProcessedContent == "" {
		return nil, fmt.Errorf("block has no note to embed")
	}
	return p.gen.Embed(ctx, truncateRunes(b.ProcessedContent, p.cfg.EmbedMaxChars))
}

// commit is the single point where blocks enter the corpus.
func (p *Pipeline) commit(ctx context.Context, b *model.Block) bool {
	if !b.Linkable() {
		return false
	}
	if err := p.corpus.Append(b); err != nil {
		logutil.GetLogger(ctx).Error("corpus append failed", zap.String("block_id", b.ID), zap.Error(err))
		return false
	}
	return true
}

func (p *Pipeline) enqueue(b *model.Block) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, b)
}

// PendingEmbeddings is the number of processed blocks still waiting for an embedding.
func (p *Pipeline) PendingEmbeddings() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// RetryEmbeddings embeds blocks whose embedding failed earlier and commits the
// ones that succeed. It returns how many blocks were committed.
func (p *Pipeline) RetryEmbeddings(ctx context.Context) (int, error) {
	p.mu.Lock()
	queue := p.pending
	p.pending = nil
	p.mu.Unlock()

	logger := logutil.GetLogger(ctx)
	committed := 0
	var remaining []*model.Block
	for i, b := range queue {
		if err := ctx.Err(); err != nil {
			remaining = append(remaining, queue[i:]...)
			p.requeue(remaining)
			return committed, err
		}
		vec, err := p.embed(ctx, b)
		if err != nil {
			logger.Debug("embedding retry failed", zap.String("block_id", b.ID), zap.Error(err))
			remaining = append(remaining, b)
			continue
		}
		p.shared.Lock()
		b.Embedding = vec
		ok := p.commit(ctx, b)
		p.shared.Unlock()
		if ok {
			committed++
		}
	}
	p.requeue(remaining)
	if committed > 0 {
		logger.Info("embedding retry committed blocks", zap.Int("committed", committed), zap.Int("remaining", len(remaining)))
	}
	return committed, nil
}

func (p *Pipeline) requeue(blocks []*model.Block) {
	if len(blocks) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(blocks, p.pending...)
}

func fail(b *model.Block, kind model.FailureKind, what string, err error) {
	b.Status = model.BlockFailed
	b.Failure = &model.Failure{Kind: kind, Cause: err.Error()}
	b.ProcessedContent = fmt.Sprintf("%s%s: %v", ErrorPrefix, what, err)
	b.AITags = []string{}
	b.Embedding = nil
}
