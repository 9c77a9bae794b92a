package service

import (
	"context"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/spark/internal/ai"
	"github.com/xxxsen/spark/internal/model"
	appErr "github.com/xxxsen/spark/internal/pkg/errors"
)

type Processor interface {
	Process(ctx context.Context, b *model.Block, media *ai.Media)
}

type Linker interface {
	FindRelated(target *model.Block, topK int) []model.Related
}

type CorpusReader interface {
	Snapshot() []*model.Block
	Contains(id string) bool
	Dimension() int
}

type IngestRequest struct {
	SourceKind string
	RawContent string
	Metadata   map[string]any
	Media      *ai.Media
}

// SparkService keeps every block ingested in this session, failed ones
// included, and exposes processing and linking over them.
type SparkService struct {
	pipeline Processor
	corpus   CorpusReader
	linker   Linker

	mu      sync.RWMutex
	blocks  []*model.Block
	index   map[string]*model.Block
	running map[string]bool
}

func NewSparkService(pipeline Processor, corpus CorpusReader, linker Linker) *SparkService {
	s := &SparkService{
		pipeline: pipeline,
		corpus:   corpus,
		linker:   linker,
		index:    make(map[string]*model.Block),
		running:  make(map[string]bool),
	}
	// embedding retries mutate blocks this service already hands out
	if l, ok := pipeline.(sharedLocking); ok {
		l.SetSharedLocker(&s.mu)
	}
	return s
}

type sharedLocking interface {
	SetSharedLocker(l sync.Locker)
}

// Ingest creates a block from req, processes it and registers it. The block
// is only visible to readers once processing finished.
func (s *SparkService) Ingest(ctx context.Context, req IngestRequest) (*BlockView, error) {
	block, err := newBlock(req)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("block_id", block.ID))
	s.pipeline.Process(ctx, block, req.Media)
	if block.Failed() {
		logger.Warn("block ingestion failed", zap.String("kind", string(block.Failure.Kind)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = append(s.blocks, block)
	s.index[block.ID] = block
	return s.viewLocked(block), nil
}

// Create registers a pending block without processing it.
func (s *SparkService) Create(ctx context.Context, req IngestRequest) (*BlockView, error) {
	block, err := newBlock(req)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = append(s.blocks, block)
	s.index[block.ID] = block
	logutil.GetLogger(ctx).Debug("block created", zap.String("block_id", block.ID))
	return s.viewLocked(block), nil
}

// Process runs a block created earlier through the pipeline. Blocks that are
// being processed or are no longer pending yield ErrConflict.
func (s *SparkService) Process(ctx context.Context, id string, media *ai.Media) (*BlockView, error) {
	s.mu.Lock()
	block, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return nil, appErr.ErrNotFound
	}
	if s.running[id] || block.Status != model.BlockPending {
		s.mu.Unlock()
		return nil, appErr.ErrConflict
	}
	s.running[id] = true
	// readers keep seeing the pending block until the processed copy replaces it
	work := *block
	work.UserTags = append([]string{}, block.UserTags...)
	s.mu.Unlock()

	s.pipeline.Process(ctx, &work, media)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
	// user tags belong to the caller and may have changed while processing
	work.UserTags = block.UserTags
	for i := range s.blocks {
		if s.blocks[i] == block {
			s.blocks[i] = &work
		}
	}
	s.index[id] = &work
	return s.viewLocked(&work), nil
}

func newBlock(req IngestRequest) (*model.Block, error) {
	kind, err := model.ParseSourceKind(req.SourceKind)
	if err != nil {
		return nil, appErr.ErrInvalid
	}
	raw := strings.TrimSpace(req.RawContent)
	if kind == model.SourceVideoSnippet {
		if url, _ := req.Metadata[model.MetaURL].(string); raw == "" && strings.TrimSpace(url) == "" {
			return nil, appErr.ErrInvalid
		}
	} else if raw == "" {
		return nil, appErr.ErrInvalid
	}
	return model.NewBlock(kind, req.RawContent, req.Metadata)
}

func (s *SparkService) Get(ctx context.Context, id string) (*BlockView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.index[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return s.viewLocked(b), nil
}

// List returns all session blocks, newest first.
func (s *SparkService) List(ctx context.Context) []*BlockView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*BlockView, 0, len(s.blocks))
	for i := len(s.blocks) - 1; i >= 0; i-- {
		out = append(out, s.viewLocked(s.blocks[i]))
	}
	return out
}

// Corpus returns the linkable blocks in insertion order.
func (s *SparkService) Corpus(ctx context.Context) []*BlockView {
	snap := s.corpus.Snapshot()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*BlockView, 0, len(snap))
	for _, b := range snap {
		out = append(out, s.viewLocked(b))
	}
	return out
}

// CorpusDimension is the embedding size shared by the corpus, 0 while empty.
func (s *SparkService) CorpusDimension(ctx context.Context) int {
	return s.corpus.Dimension()
}

func (s *SparkService) Related(ctx context.Context, id string, topK int) ([]RelatedView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target, ok := s.index[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	related := s.linker.FindRelated(target, topK)
	out := make([]RelatedView, 0, len(related))
	for _, r := range related {
		out = append(out, RelatedView{
			Block:      s.viewLocked(r.Block),
			Score:      r.Score,
			SharedTags: sharedTags(target.Tags(), r.Block.Tags()),
		})
	}
	logutil.GetLogger(ctx).Debug("related blocks found", zap.String("block_id", id), zap.Int("count", len(out)))
	return out, nil
}

func (s *SparkService) AddUserTags(ctx context.Context, id string, tags []string) (*BlockView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.index[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	before := len(b.UserTags)
	b.AddUserTags(tags...)
	if len(b.UserTags) == before {
		return nil, appErr.ErrInvalid
	}
	return s.viewLocked(b), nil
}

func (s *SparkService) viewLocked(b *model.Block) *BlockView {
	return newBlockView(b, s.corpus.Contains(b.ID))
}

func sharedTags(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[strings.ToLower(t)] = true
	}
	out := []string{}
	seen := make(map[string]bool)
	for _, t := range b {
		key := strings.ToLower(t)
		if set[key] && !seen[key] {
			seen[key] = true
			out = append(out, t)
		}
	}
	return out
}
