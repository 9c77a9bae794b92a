package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnavailable      = errors.New("ai provider unavailable")
	ErrMediaUnsupported = errors.New("ai provider does not accept media")
)

// Media is binary input sent alongside a prompt, e.g. an image or audio clip.
type Media struct {
	MIMEType string
	Data     []byte
}

func (m *Media) empty() bool {
	return m == nil || len(m.Data) == 0
}

type IAIProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string, media *Media) (string, error)
}

type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error)
}

type IGenerator interface {
	Generate(ctx context.Context, prompt string, media *Media) (string, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	ModelName() string
}

type generator struct {
	provider IAIProvider
	model    string
}

func NewGenerator(p IAIProvider, model string) IGenerator {
	return &generator{provider: p, model: model}
}

func (g *generator) Generate(ctx context.Context, prompt string, media *Media) (string, error) {
	return g.provider.Generate(ctx, g.model, prompt, media)
}

type embedder struct {
	provider IEmbedProvider
	model    string
}

func NewEmbedder(p IEmbedProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return e.provider.Embed(ctx, e.model, text, taskType)
}

func (e *embedder) ModelName() string {
	return e.model
}

type ProviderFactory func(args interface{}) (IAIProvider, error)

type EmbedProviderFactory func(args interface{}) (IEmbedProvider, error)

var (
	registry      = map[string]ProviderFactory{}
	embedRegistry = map[string]EmbedProviderFactory{}
)

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func RegisterEmbed(name string, factory EmbedProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func NewProvider(name string, args interface{}) (IAIProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embed provider: %s", name)
	}
	return factory(args)
}

// ProviderSpec names one entry of a generator or embedder chain.
type ProviderSpec struct {
	Name     string
	Provider string
	Model    string
	Args     interface{}
}

// BuildGenerator creates a fallback chain from specs, in order.
func BuildGenerator(specs []ProviderSpec) (IGenerator, error) {
	entries := make([]GeneratorEntry, 0, len(specs))
	for _, spec := range specs {
		p, err := NewProvider(spec.Provider, spec.Args)
		if err != nil {
			return nil, fmt.Errorf("init generator %s: %w", spec.Name, err)
		}
		entries = append(entries, GeneratorEntry{Name: entryName(spec), Generator: NewGenerator(p, spec.Model)})
	}
	gen := NewGroupGenerator(entries)
	if gen == nil {
		return nil, fmt.Errorf("no generator configured")
	}
	return gen, nil
}

func BuildEmbedder(specs []ProviderSpec) (IEmbedder, error) {
	entries := make([]EmbedderEntry, 0, len(specs))
	for _, spec := range specs {
		p, err := NewEmbedProvider(spec.Provider, spec.Args)
		if err != nil {
			return nil, fmt.Errorf("init embedder %s: %w", spec.Name, err)
		}
		entries = append(entries, EmbedderEntry{Name: entryName(spec), Embedder: NewEmbedder(p, spec.Model)})
	}
	emb := NewGroupEmbedder(entries)
	if emb == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	return emb, nil
}

func entryName(spec ProviderSpec) string {
	if name := strings.TrimSpace(spec.Name); name != "" {
		return name
	}
	return spec.Provider + ":" + spec.Model
}
