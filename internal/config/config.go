package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/spf13/viper"
)

// Config is the fully resolved application configuration.
type Config struct {
	Logging   LoggingConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Knowledge KnowledgeConfig
	LLM       LLMConfig
	Cities    []model.City
	Scope     ScopeConfig
	Guard     GuardConfig
	Pipeline  PipelineConfig
}

// KnowledgeConfig locates per-city knowledge files.
type KnowledgeConfig struct {
	Dir       string
	MinLength int
	CacheTTL  time.Duration
	Watch     bool
}

// LLMConfig selects and tunes the completion provider.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	RateLimit   float64
	Burst       int
}

// ScopeConfig tunes the scope classifier.
type ScopeConfig struct {
	ExcludedPlaces []string
	MaxQueryLength int
	MemoSize       int
}

// GuardConfig tunes the hallucination guard.
type GuardConfig struct {
	AllowedTerms       []string
	MaxUngroundedRatio float64
	MinOverlap         float64
}

// PipelineConfig holds the refusal mapping. Values are 1-based phrase numbers.
type PipelineConfig struct {
	Refusals RefusalMapping
}

// RefusalMapping assigns one refusal phrase to each failure class.
type RefusalMapping struct {
	ScopeRejected    int
	GenerationFailed int
	GuardRejected    int
}

// DatabaseConfig controls the optional interaction history store.
type DatabaseConfig struct {
	Path    string
	Enabled bool
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string
	Format string
}

// ServerConfig controls the HTTP transport.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
	// SessionTTL closes HTTP sessions left idle this long. Zero keeps them
	// until deleted.
	SessionTTL time.Duration
}

// Defaults.
const (
	DefaultMinKnowledgeLength = 200
	DefaultMaxQueryLength     = 1000
	DefaultTemperature        = 0.1
	DefaultMaxTokens          = 2048
	DefaultTimeout            = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultMinOverlap         = 0.3
)

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("cities", []string{"madurai", "dindigul"})

	v.SetDefault("knowledge.dir", "./context")
	v.SetDefault("knowledge.min_length", DefaultMinKnowledgeLength)
	v.SetDefault("knowledge.cache_ttl", 10*time.Minute)
	v.SetDefault("knowledge.watch", false)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.temperature", DefaultTemperature)
	v.SetDefault("llm.max_tokens", DefaultMaxTokens)
	v.SetDefault("llm.timeout", DefaultTimeout)
	v.SetDefault("llm.max_retries", DefaultMaxRetries)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.rate_limit", 2.0)
	v.SetDefault("llm.burst", 1)

	v.SetDefault("scope.max_query_length", DefaultMaxQueryLength)
	v.SetDefault("scope.memo_size", 1024)
	v.SetDefault("scope.excluded_places", []string{
		"new york", "london", "paris", "tokyo", "dubai", "singapore",
		"mumbai", "delhi", "bangalore", "bengaluru", "hyderabad", "kolkata",
	})

	v.SetDefault("guard.max_ungrounded_ratio", 0.0)
	v.SetDefault("guard.min_overlap", DefaultMinOverlap)
	v.SetDefault("guard.allowed_terms", []string{})

	v.SetDefault("pipeline.refusals.scope_rejected", 1)
	v.SetDefault("pipeline.refusals.generation_failed", 2)
	v.SetDefault("pipeline.refusals.guard_rejected", 3)

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.path", "~/.local/share/localguide/history.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.session_ttl", 30*time.Minute)
}

// Load reads the configuration out of v, applying defaults first.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	cfg := Config{
		Cities: normalizeCities(v.GetStringSlice("cities")),
		Knowledge: KnowledgeConfig{
			Dir:       ExpandPath(v.GetString("knowledge.dir")),
			MinLength: v.GetInt("knowledge.min_length"),
			CacheTTL:  v.GetDuration("knowledge.cache_ttl"),
			Watch:     v.GetBool("knowledge.watch"),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(v.GetString("llm.provider")),
			Model:       v.GetString("llm.model"),
			APIKey:      v.GetString("llm.api_key"),
			BaseURL:     v.GetString("llm.base_url"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			Timeout:     v.GetDuration("llm.timeout"),
			MaxRetries:  v.GetInt("llm.max_retries"),
			RetryDelay:  v.GetDuration("llm.retry_delay"),
			RateLimit:   v.GetFloat64("llm.rate_limit"),
			Burst:       v.GetInt("llm.burst"),
		},
		Scope: ScopeConfig{
			ExcludedPlaces: v.GetStringSlice("scope.excluded_places"),
			MaxQueryLength: v.GetInt("scope.max_query_length"),
			MemoSize:       v.GetInt("scope.memo_size"),
		},
		Guard: GuardConfig{
			AllowedTerms:       v.GetStringSlice("guard.allowed_terms"),
			MaxUngroundedRatio: v.GetFloat64("guard.max_ungrounded_ratio"),
			MinOverlap:         v.GetFloat64("guard.min_overlap"),
		},
		Pipeline: PipelineConfig{
			Refusals: RefusalMapping{
				ScopeRejected:    v.GetInt("pipeline.refusals.scope_rejected"),
				GenerationFailed: v.GetInt("pipeline.refusals.generation_failed"),
				GuardRejected:    v.GetInt("pipeline.refusals.guard_rejected"),
			},
		},
		Database: DatabaseConfig{
			Enabled: v.GetBool("database.enabled"),
			Path:    ExpandPath(v.GetString("database.path")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			SessionTTL:      v.GetDuration("server.session_ttl"),
		},
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKeyFromEnv(v, cfg.LLM.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. It does not check that knowledge
// files exist; that is reported per city at selection time.
func (c Config) Validate() error {
	if len(c.Cities) == 0 {
		return fmt.Errorf("%w: at least one city must be configured", common.ErrInvalidConfig)
	}
	if c.Knowledge.Dir == "" {
		return fmt.Errorf("%w: knowledge.dir is required", common.ErrMissingConfig)
	}
	if c.Knowledge.MinLength < 1 {
		return fmt.Errorf("%w: knowledge.min_length must be positive, got %d", common.ErrInvalidConfig, c.Knowledge.MinLength)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature must be within [0, 2], got %g", common.ErrInvalidConfig, c.LLM.Temperature)
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("%w: llm.max_tokens must be positive", common.ErrInvalidConfig)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("%w: llm.timeout must be positive", common.ErrInvalidConfig)
	}
	if c.LLM.MaxRetries < 1 {
		return fmt.Errorf("%w: llm.max_retries must be at least 1", common.ErrInvalidConfig)
	}
	if c.Scope.MaxQueryLength < 1 {
		return fmt.Errorf("%w: scope.max_query_length must be positive", common.ErrInvalidConfig)
	}
	if c.Guard.MaxUngroundedRatio < 0 || c.Guard.MaxUngroundedRatio > 1 {
		return fmt.Errorf("%w: guard.max_ungrounded_ratio must be within [0, 1]", common.ErrInvalidConfig)
	}
	if c.Guard.MinOverlap < 0 || c.Guard.MinOverlap > 1 {
		return fmt.Errorf("%w: guard.min_overlap must be within [0, 1]", common.ErrInvalidConfig)
	}
	if c.Server.SessionTTL < 0 {
		return fmt.Errorf("%w: server.session_ttl must not be negative", common.ErrInvalidConfig)
	}
	if c.Database.Enabled && c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required when the database is enabled", common.ErrMissingConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := c.Pipeline.Refusals.Phrases(); err != nil {
		return err
	}
	return nil
}

// RefusalPhrases is the resolved refusal mapping.
type RefusalPhrases struct {
	ScopeRejected    model.RefusalPhrase
	GenerationFailed model.RefusalPhrase
	GuardRejected    model.RefusalPhrase
}

// Phrases resolves the mapping, requiring three distinct phrases.
func (m RefusalMapping) Phrases() (RefusalPhrases, error) {
	numbers := []struct {
		key string
		n   int
	}{
		{"scope_rejected", m.ScopeRejected},
		{"generation_failed", m.GenerationFailed},
		{"guard_rejected", m.GuardRejected},
	}

	resolved := make([]model.RefusalPhrase, 0, len(numbers))
	seen := make(map[int]string, len(numbers))
	for _, num := range numbers {
		phrase, ok := model.RefusalPhraseByNumber(num.n)
		if !ok {
			return RefusalPhrases{}, fmt.Errorf("%w: pipeline.refusals.%s must be 1, 2 or 3, got %d",
				common.ErrInvalidConfig, num.key, num.n)
		}
		if other, dup := seen[num.n]; dup {
			return RefusalPhrases{}, fmt.Errorf("%w: pipeline.refusals.%s and pipeline.refusals.%s both use phrase %d",
				common.ErrInvalidConfig, other, num.key, num.n)
		}
		seen[num.n] = num.key
		resolved = append(resolved, phrase)
	}

	return RefusalPhrases{
		ScopeRejected:    resolved[0],
		GenerationFailed: resolved[1],
		GuardRejected:    resolved[2],
	}, nil
}

// DefaultRefusalPhrases is the stock mapping.
func DefaultRefusalPhrases() RefusalPhrases {
	return RefusalPhrases{
		ScopeRejected:    model.RefusalNotCovered,
		GenerationFailed: model.RefusalNotEnoughData,
		GuardRejected:    model.RefusalLimitedToContext,
	}
}

func normalizeCities(raw []string) []model.City {
	seen := make(map[model.City]bool, len(raw))
	cities := make([]model.City, 0, len(raw))
	for _, r := range raw {
		c := model.NormalizeCity(r)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cities = append(cities, c)
	}
	return cities
}

func providerKeyFromEnv(v *viper.Viper, provider string) string {
	var key string
	switch provider {
	case "openai":
		key = "OPENAI_API_KEY"
	case "anthropic":
		key = "ANTHROPIC_API_KEY"
	case "gemini":
		key = "GEMINI_API_KEY"
	default:
		return ""
	}
	_ = v.BindEnv("llm.provider_key", key)
	return v.GetString("llm.provider_key")
}
