package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Review  Review  `yaml:"review"`
	Market  Market  `yaml:"market"`
	Cache   Cache   `yaml:"cache"`
	Results Results `yaml:"results"`
	Sandbox Sandbox `yaml:"sandbox"`
	Pricing Pricing `yaml:"pricing"`
	Secrets Secrets `yaml:"secrets"`

	// APIKey is read from OPENAI_API_KEY or the secrets env file, never
	// from the config file.
	APIKey string `yaml:"-"`
}

type Review struct {
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	MaxCalls        int    `yaml:"max_calls"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

type Market struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	// MinPopularScore is on the 0-1 scale.
	MinPopularScore float64 `yaml:"min_popular_score"`
}

// Cache holds the cache root. An empty Dir disables caching.
type Cache struct {
	Dir string `yaml:"dir"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

// Sandbox configures the optional container check. It is disabled while
// Image is empty.
type Sandbox struct {
	Image          string   `yaml:"image"`
	Command        []string `yaml:"command"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

type Pricing struct {
	File string `yaml:"file"`
}

type Secrets struct {
	EnvFile string `yaml:"env_file"`
}

// Environment variables recognized on top of the config file.
const (
	EnvAPIKey          = "OPENAI_API_KEY"
	EnvBaseURL         = "OPENAI_BASE_URL"
	EnvModel           = "GPT_MODEL"
	EnvMaxCalls        = "MAX_GPT_CALLS"
	EnvCacheTTL        = "GPT_CACHE_TTL"
	EnvMarketCacheTTL  = "MARKET_CACHE_TTL"
	EnvCachePath       = "GPT_ANALYSIS_CACHE_PATH"
	EnvMinPopularScore = "MIN_POPULAR_SCORE"
)

var envKeys = []string{
	EnvAPIKey, EnvBaseURL, EnvModel, EnvMaxCalls,
	EnvCacheTTL, EnvMarketCacheTTL, EnvCachePath, EnvMinPopularScore,
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Review: Review{
			BaseURL:         "https://api.openai.com/v1",
			Model:           "gpt-4",
			MaxCalls:        5,
			CacheTTLSeconds: 86400,
			TimeoutSeconds:  60,
		},
		Market: Market{
			CacheTTLSeconds: 86400,
			MinPopularScore: 0.5,
		},
		Results: Results{Dir: "results"},
		Sandbox: Sandbox{TimeoutSeconds: 120},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, the optional secrets env file and the process environment, in
// increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	v := viper.New()
	if cfg.Secrets.EnvFile != "" {
		vars, err := ParseEnvFile(cfg.Secrets.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("reading secrets file %s: %w", cfg.Secrets.EnvFile, err)
		}
		for k, val := range vars {
			v.SetDefault(k, val)
		}
	}
	for _, k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("binding %s: %w", k, err)
		}
	}
	if err := applyEnv(cfg, v); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		if path != "" {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, v *viper.Viper) error {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = strings.TrimSpace(v.GetString(key))
		}
	}
	integer := func(key string, dst *int) error {
		if !v.IsSet(key) {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return &Error{Field: key, Message: fmt.Sprintf("not an integer: %q", v.GetString(key))}
		}
		*dst = n
		return nil
	}

	str(EnvAPIKey, &cfg.APIKey)
	str(EnvBaseURL, &cfg.Review.BaseURL)
	str(EnvModel, &cfg.Review.Model)
	str(EnvCachePath, &cfg.Cache.Dir)
	if err := integer(EnvMaxCalls, &cfg.Review.MaxCalls); err != nil {
		return err
	}
	if err := integer(EnvCacheTTL, &cfg.Review.CacheTTLSeconds); err != nil {
		return err
	}
	if err := integer(EnvMarketCacheTTL, &cfg.Market.CacheTTLSeconds); err != nil {
		return err
	}
	if v.IsSet(EnvMinPopularScore) {
		raw := strings.TrimSpace(v.GetString(EnvMinPopularScore))
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return &Error{Field: EnvMinPopularScore, Message: fmt.Sprintf("not a number: %q", raw)}
		}
		// The environment uses the 0-10 display scale.
		cfg.Market.MinPopularScore = f / 10
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.Review.Model == "" {
		return &Error{Field: "review.model", Message: "must not be empty"}
	}
	if cfg.Review.BaseURL == "" {
		return &Error{Field: "review.base_url", Message: "must not be empty"}
	}
	if cfg.Review.MaxCalls < 0 {
		return &Error{Field: "review.max_calls", Message: "must not be negative"}
	}
	if cfg.Review.CacheTTLSeconds < 0 {
		return &Error{Field: "review.cache_ttl_seconds", Message: "must not be negative"}
	}
	if cfg.Review.TimeoutSeconds <= 0 {
		return &Error{Field: "review.timeout_seconds", Message: "must be positive"}
	}
	if cfg.Market.CacheTTLSeconds < 0 {
		return &Error{Field: "market.cache_ttl_seconds", Message: "must not be negative"}
	}
	if cfg.Market.MinPopularScore < 0 || cfg.Market.MinPopularScore > 1 {
		return &Error{Field: "market.min_popular_score", Message: "must be between 0 and 1"}
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	if cfg.Sandbox.Image != "" {
		if len(cfg.Sandbox.Command) == 0 {
			return &Error{Field: "sandbox.command", Message: "required when sandbox.image is set"}
		}
		if cfg.Sandbox.TimeoutSeconds <= 0 {
			return &Error{Field: "sandbox.timeout_seconds", Message: "must be positive"}
		}
	}
	return nil
}

// RequireAPIKey returns a config error when no reviewer credential is set.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return &Error{Field: EnvAPIKey, Message: "not set"}
	}
	return nil
}

func (r Review) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

func (r Review) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func (m Market) CacheTTL() time.Duration {
	return time.Duration(m.CacheTTLSeconds) * time.Second
}

func (s Sandbox) Enabled() bool {
	return s.Image != ""
}

func (s Sandbox) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}
