package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort          = 8080
	defaultEnv           = "development"
	defaultRedisURL      = "redis://localhost:6379/0"
	defaultCacheMaxItems = 50
	defaultModel         = "openai:gpt-4o-mini"
	defaultLocale        = "en"
	defaultPromptsDir    = "prompts"
	defaultWhisperMode   = WhisperLocal
	defaultWhisperModel  = "base"
	defaultWhisperJobs   = 2
)

// Whisper fallback modes for caption-less videos.
const (
	WhisperLocal    = "local"
	WhisperOpenAI   = "openai"
	WhisperDisabled = "disabled"
)

// AppConfig holds runtime startup configuration loaded from YAML, with
// environment overrides for secrets.
type AppConfig struct {
	Port           int             `yaml:"port"`
	Env            string          `yaml:"env"` // "development" | "production"
	RedisURL       string          `yaml:"redis_url"`
	CacheMaxItems  int             `yaml:"cache_max_items"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	DefaultModel   string          `yaml:"default_model"`
	DefaultLocale  string          `yaml:"default_locale"`
	AllowedLocales []string        `yaml:"allowed_locales"`
	PromptsDir     string          `yaml:"prompts_dir"`
	Providers      ProvidersConfig `yaml:"providers"`
	Whisper        WhisperConfig   `yaml:"whisper"`
}

// ProvidersConfig carries LLM provider credentials.
type ProvidersConfig struct {
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
}

// WhisperConfig controls the audio-transcription fallback.
type WhisperConfig struct {
	Mode  string `yaml:"mode"` // "local" | "openai" | "disabled"
	Model string `yaml:"model"`
	// MaxConcurrent bounds the transcription worker pool.
	MaxConcurrent int64 `yaml:"max_concurrent"`
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env != "production" }

// Load reads the YAML config at path, applies defaults and environment
// overrides. A missing file yields the default configuration.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{
		Port:           defaultPort,
		Env:            defaultEnv,
		RedisURL:       defaultRedisURL,
		CacheMaxItems:  defaultCacheMaxItems,
		DefaultModel:   defaultModel,
		DefaultLocale:  defaultLocale,
		AllowedLocales: []string{"en", "ru"},
		PromptsDir:     defaultPromptsDir,
		Whisper: WhisperConfig{
			Mode:          defaultWhisperMode,
			Model:         defaultWhisperModel,
			MaxConcurrent: defaultWhisperJobs,
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	normalize(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.Providers.OpenAIAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		cfg.Providers.AnthropicAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("WHISPER_MODE")); v != "" {
		cfg.Whisper.Mode = v
	}
	if v := strings.TrimSpace(os.Getenv("WHISPER_MODEL")); v != "" {
		cfg.Whisper.Model = v
	}
}

func normalize(cfg *AppConfig) {
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	cfg.Whisper.Mode = strings.ToLower(strings.TrimSpace(cfg.Whisper.Mode))
	if cfg.Whisper.Mode == "" {
		cfg.Whisper.Mode = defaultWhisperMode
	}
	if cfg.Whisper.Model == "" {
		cfg.Whisper.Model = defaultWhisperModel
	}
	if cfg.Whisper.MaxConcurrent <= 0 {
		cfg.Whisper.MaxConcurrent = defaultWhisperJobs
	}
	if cfg.CacheMaxItems <= 0 {
		cfg.CacheMaxItems = defaultCacheMaxItems
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaultModel
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = defaultLocale
	}
	if cfg.PromptsDir == "" {
		cfg.PromptsDir = defaultPromptsDir
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
}

func validate(cfg *AppConfig) error {
	switch cfg.Whisper.Mode {
	case WhisperLocal, WhisperOpenAI, WhisperDisabled:
	default:
		return fmt.Errorf("invalid whisper mode: %q", cfg.Whisper.Mode)
	}
	return nil
}
