// Package linking ranks corpus blocks by embedding similarity to a target block.
package linking

import (
	"sort"

	"github.com/xxxsen/spark/internal/model"
)

const (
	DefaultTopK          = 3
	DefaultMinSimilarity = 0.3
)

type Corpus interface {
	Snapshot() []*model.Block
}

type Config struct {
	TopK          int
	MinSimilarity float64
}

func DefaultConfig() Config {
	return Config{TopK: DefaultTopK, MinSimilarity: DefaultMinSimilarity}
}

type Engine struct {
	corpus Corpus
	cfg    Config
}

func NewEngine(corpus Corpus, cfg Config) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Engine{corpus: corpus, cfg: cfg}
}

// FindRelated returns at most topK corpus blocks most similar to target,
// best first. The similarity floor is applied after the top-k cut, so fewer
// than topK results may come back even when more candidates exist.
// topK <= 0 selects the configured default.
func (e *Engine) FindRelated(target *model.Block, topK int) []model.Related {
	if target == nil || len(target.Embedding) == 0 {
		return []model.Related{}
	}
	if topK <= 0 {
		topK = e.cfg.TopK
	}
	candidates := e.corpus.Snapshot()
	scored := make([]model.Related, 0, len(candidates))
	for _, b := range candidates {
		if b == nil || b.ID == target.ID || len(b.Embedding) == 0 {
			continue
		}
		score, ok := CosineSimilarity(target.Embedding, b.Embedding)
		if !ok {
			continue
		}
		scored = append(scored, model.Related{Block: b, Score: score})
	}
	// stable: equal scores keep corpus insertion order
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	out := make([]model.Related, 0, len(scored))
	for _, r := range scored {
		if r.Score > e.cfg.MinSimilarity {
			out = append(out, r)
		}
	}
	return out
}
