package main

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/spark/internal/ai"
	"github.com/xxxsen/spark/internal/config"
	"github.com/xxxsen/spark/internal/corpus"
	"github.com/xxxsen/spark/internal/embedcache"
	"github.com/xxxsen/spark/internal/linking"
	"github.com/xxxsen/spark/internal/pipeline"
	"github.com/xxxsen/spark/internal/service"
	"github.com/xxxsen/spark/internal/transcript"
)

type app struct {
	cfg      *config.Config
	manager  *ai.Manager
	cache    *embedcache.Embedder
	pipeline *pipeline.Pipeline
	corpus   *corpus.Store
	service  *service.SparkService
}

func buildApp(cfg *config.Config) (*app, error) {
	gen, err := ai.BuildGenerator(providerSpecs(cfg.AI.Generators))
	if err != nil {
		return nil, fmt.Errorf("init generators: %w", err)
	}
	emb, err := ai.BuildEmbedder(providerSpecs(cfg.AI.Embedders))
	if err != nil {
		return nil, fmt.Errorf("init embedders: %w", err)
	}
	emb = embedcache.Wrap(emb, cfg.AI.EmbedCache.Size, time.Duration(cfg.AI.EmbedCache.TTLSeconds)*time.Second)
	manager := ai.NewManager(gen, emb, buildThrottle(cfg.AI.Throttle), ai.ManagerConfig{
		Timeout:       cfg.AI.Timeout,
		EmbedTaskType: cfg.AI.EmbedTaskType,
	})
	a := newApp(cfg, transcript.NewYouTubeFetcher(cfg.Pipeline.TranscriptLanguages), manager)
	a.manager = manager
	a.cache, _ = emb.(*embedcache.Embedder)
	return a, nil
}

// logSummary reports the embedding setup and what the session produced.
func (a *app) logSummary(ctx context.Context, msg string) {
	fields := []zap.Field{
		zap.Int("corpus_size", a.corpus.Len()),
		zap.Int("corpus_dimension", a.corpus.Dimension()),
		zap.Int("pending_embeddings", a.pipeline.PendingEmbeddings()),
	}
	if a.manager != nil {
		fields = append(fields, zap.String("embedding_model", a.manager.EmbeddingModelName()))
	}
	if a.cache != nil {
		stats := a.cache.Stats()
		fields = append(fields, zap.Uint64("embed_cache_hits", stats.Hits), zap.Uint64("embed_cache_misses", stats.Misses))
	}
	logutil.GetLogger(ctx).Info(msg, fields...)
}

func newApp(cfg *config.Config, fetcher transcript.Fetcher, gen pipeline.GenerationService) *app {
	store := corpus.NewStore()
	p := pipeline.New(fetcher, gen, store, pipeline.Config{
		TagDelimiter:  cfg.Pipeline.TagDelimiter,
		EmbedMaxChars: cfg.Pipeline.EmbedMaxChars,
		PreviewChars:  cfg.Pipeline.PreviewChars,
	})
	engine := linking.NewEngine(store, linking.Config{
		TopK:          cfg.Pipeline.TopK,
		MinSimilarity: *cfg.Pipeline.MinSimilarity,
	})
	return &app{
		cfg:      cfg,
		pipeline: p,
		corpus:   store,
		service:  service.NewSparkService(p, store, engine),
	}
}

func providerSpecs(entries []config.AIEntry) []ai.ProviderSpec {
	specs := make([]ai.ProviderSpec, 0, len(entries))
	for _, e := range entries {
		var args interface{} = e.Data
		if e.Data == nil {
			args = map[string]interface{}{}
		}
		specs = append(specs, ai.ProviderSpec{
			Name:     e.Name,
			Provider: e.Provider,
			Model:    e.Model,
			Args:     args,
		})
	}
	return specs
}

func buildThrottle(cfg config.ThrottleConfig) ai.Throttle {
	switch cfg.Mode {
	case config.ThrottleCooldown:
		return ai.NewCooldownThrottle(time.Duration(cfg.CooldownMs) * time.Millisecond)
	case config.ThrottleRate:
		return ai.NewRateThrottle(cfg.RPS, cfg.Burst)
	default:
		return ai.NoopThrottle()
	}
}
