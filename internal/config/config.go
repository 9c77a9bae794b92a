package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

const (
	ThrottleNone     = "none"
	ThrottleCooldown = "cooldown"
	ThrottleRate     = "rate"

	EnvGoogleAPIKey = "GOOGLE_API_KEY"
)

type Config struct {
	LogConfig logger.LogConfig `json:"log_config"`
	AI        AIConfig         `json:"ai"`
	Pipeline  PipelineConfig   `json:"pipeline"`
	Server    ServerConfig     `json:"server"`
}

type AIEntry struct {
	Name     string                 `json:"name"`
	Provider string                 `json:"provider"`
	Model    string                 `json:"model"`
	Data     map[string]interface{} `json:"data"`
}

type ThrottleConfig struct {
	Mode       string  `json:"mode"`
	CooldownMs int     `json:"cooldown_ms"`
	RPS        float64 `json:"rps"`
	Burst      int     `json:"burst"`
}

type EmbedCacheConfig struct {
	Size       int `json:"size"`
	TTLSeconds int `json:"ttl_seconds"`
}

type AIConfig struct {
	Generators    []AIEntry        `json:"generators"`
	Embedders     []AIEntry        `json:"embedders"`
	Timeout       int              `json:"timeout"`
	Throttle      ThrottleConfig   `json:"throttle"`
	EmbedCache    EmbedCacheConfig `json:"embed_cache"`
	EmbedTaskType string           `json:"embed_task_type"`
}

type PipelineConfig struct {
	TagDelimiter        string   `json:"tag_delimiter"`
	EmbedMaxChars       int      `json:"embed_max_chars"`
	PreviewChars        int      `json:"preview_chars"`
	TopK                int      `json:"top_k"`
	MinSimilarity       *float64 `json:"min_similarity"`
	TranscriptLanguages []string `json:"transcript_languages"`
	EmbedRetryCron      string   `json:"embed_retry_cron"`
}

type ServerConfig struct {
	Port             int      `json:"port"`
	CORSAllowlist    []string `json:"cors_allowlist"`
	RateLimitSeconds int      `json:"rate_limit_seconds"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a JSON config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if len(cfg.AI.Generators) == 0 {
		cfg.AI.Generators = []AIEntry{{Name: "gemini", Provider: "gemini", Model: "gemini-2.0-flash"}}
	}
	if len(cfg.AI.Embedders) == 0 {
		cfg.AI.Embedders = []AIEntry{{Name: "gemini-embed", Provider: "gemini", Model: "text-embedding-004"}}
	}
	fillGeminiKeys(cfg.AI.Generators)
	fillGeminiKeys(cfg.AI.Embedders)
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 120
	}
	if cfg.AI.Throttle.Mode == "" {
		cfg.AI.Throttle.Mode = ThrottleNone
	}
	if cfg.Pipeline.TagDelimiter == "" {
		cfg.Pipeline.TagDelimiter = "TagsJSON:"
	}
	if cfg.Pipeline.EmbedMaxChars == 0 {
		cfg.Pipeline.EmbedMaxChars = 8000
	}
	if cfg.Pipeline.PreviewChars == 0 {
		cfg.Pipeline.PreviewChars = 200
	}
	if cfg.Pipeline.TopK == 0 {
		cfg.Pipeline.TopK = 3
	}
	if cfg.Pipeline.MinSimilarity == nil {
		v := 0.3
		cfg.Pipeline.MinSimilarity = &v
	}
	if len(cfg.Pipeline.TranscriptLanguages) == 0 {
		cfg.Pipeline.TranscriptLanguages = []string{"zh-Hans", "zh-Hant", "en"}
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}

// fillGeminiKeys lets GOOGLE_API_KEY stand in for an empty gemini api_key.
func fillGeminiKeys(entries []AIEntry) {
	key := strings.TrimSpace(os.Getenv(EnvGoogleAPIKey))
	if key == "" {
		return
	}
	for i := range entries {
		if !strings.EqualFold(entries[i].Provider, "gemini") {
			continue
		}
		if entries[i].Data == nil {
			entries[i].Data = map[string]interface{}{}
		}
		if v, _ := entries[i].Data["api_key"].(string); strings.TrimSpace(v) == "" {
			entries[i].Data["api_key"] = key
		}
	}
}

func validate(cfg *Config) error {
	for _, group := range [][]AIEntry{cfg.AI.Generators, cfg.AI.Embedders} {
		for i, e := range group {
			if strings.TrimSpace(e.Provider) == "" {
				return fmt.Errorf("ai entry %d: provider is required", i)
			}
			if strings.TrimSpace(e.Model) == "" {
				return fmt.Errorf("ai entry %d (%s): model is required", i, e.Provider)
			}
		}
	}
	switch cfg.AI.Throttle.Mode {
	case ThrottleNone:
	case ThrottleCooldown:
		if cfg.AI.Throttle.CooldownMs <= 0 {
			return fmt.Errorf("ai.throttle.cooldown_ms must be positive for cooldown mode")
		}
	case ThrottleRate:
		if cfg.AI.Throttle.RPS <= 0 {
			return fmt.Errorf("ai.throttle.rps must be positive for rate mode")
		}
	default:
		return fmt.Errorf("ai.throttle.mode must be none, cooldown or rate")
	}
	if cfg.AI.Timeout < 0 {
		return fmt.Errorf("ai.timeout must not be negative")
	}
	if cfg.Pipeline.TopK < 0 {
		return fmt.Errorf("pipeline.top_k must not be negative")
	}
	if s := *cfg.Pipeline.MinSimilarity; s < -1 || s > 1 {
		return fmt.Errorf("pipeline.min_similarity must be within [-1, 1]")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range")
	}
	return nil
}
