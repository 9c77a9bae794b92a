package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const DefaultEmbedTaskType = "RETRIEVAL_DOCUMENT"

type ManagerConfig struct {
	Timeout       int
	EmbedTaskType string
}

// Manager is the generation service seen by the pipeline: one generator chain,
// one embedder chain, a throttle in front of generation and a per-call timeout.
type Manager struct {
	generator IGenerator
	embedder  IEmbedder
	throttle  Throttle
	cfg       ManagerConfig
}

func NewManager(generator IGenerator, embedder IEmbedder, throttle Throttle, cfg ManagerConfig) *Manager {
	if throttle == nil {
		throttle = NoopThrottle()
	}
	if strings.TrimSpace(cfg.EmbedTaskType) == "" {
		cfg.EmbedTaskType = DefaultEmbedTaskType
	}
	return &Manager{
		generator: generator,
		embedder:  embedder,
		throttle:  throttle,
		cfg:       cfg,
	}
}

func (m *Manager) Generate(ctx context.Context, prompt string, media *Media) (string, error) {
	if m.generator == nil {
		return "", fmt.Errorf("generator not configured: %w", ErrUnavailable)
	}
	if err := m.throttle.Wait(ctx); err != nil {
		return "", fmt.Errorf("throttle: %w", err)
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	resp, err := m.generator.Generate(ctx, prompt, media)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func (m *Manager) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured: %w", ErrUnavailable)
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	vec, err := m.embedder.Embed(ctx, text, m.cfg.EmbedTaskType)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	return vec, nil
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
	}
	return context.WithCancel(ctx)
}
