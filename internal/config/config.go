// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/humexxx/tech9-parserdf/internal/llm"
	"github.com/humexxx/tech9-parserdf/internal/server/ratelimit"
)

// DefaultMaxUploadBytes caps uploaded resume files (10 MiB).
const DefaultMaxUploadBytes int64 = 10 << 20

// Environment names recognised by ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config is the process configuration. Values come from the environment,
// with an optional JSON file filling anything the environment leaves unset.
type Config struct {
	// Server
	Port        int    `json:"port,omitempty"`
	Env         string `json:"env,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"`
	LogLevel    string `json:"log_level,omitempty"`

	// LLM providers
	DefaultProvider string `json:"default_provider,omitempty"`
	GrokAPIKey      string `json:"grok_api_key,omitempty"`
	GeminiAPIKey    string `json:"gemini_api_key,omitempty"`
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty"`
	GrokModel       string `json:"grok_model,omitempty"`
	GeminiModel     string `json:"gemini_model,omitempty"`
	AnthropicModel  string `json:"anthropic_model,omitempty"`

	// PDF rendering
	ChromePath           string `json:"chrome_path,omitempty"`
	ChromiumPackURL      string `json:"chromium_pack_url,omitempty"`
	ChromiumCacheDir     string `json:"chromium_cache_dir,omitempty"`
	RenderTimeoutSeconds int    `json:"render_timeout_seconds,omitempty"`

	// Uploads
	MaxUploadBytes int64 `json:"max_upload_bytes,omitempty"`

	// Client
	APIURL string `json:"api_url,omitempty"`

	// Rate limiting; zero values use the limiter's built-in defaults
	RateLimitDisabled      bool     `json:"rate_limit_disabled,omitempty"`
	RateLimitDefault       int      `json:"rate_limit_default,omitempty"`
	RateLimitWindowSeconds int      `json:"rate_limit_window_seconds,omitempty"`
	RateLimitAllow         []string `json:"rate_limit_allow,omitempty"`
	RateLimitDeny          []string `json:"rate_limit_deny,omitempty"`
}

// Defaults returns the built-in configuration values
func Defaults() Config {
	return Config{
		Port:                 8080,
		Env:                  EnvDevelopment,
		LogLevel:             "info",
		DefaultProvider:      string(llm.DefaultProvider),
		RenderTimeoutSeconds: 60,
		MaxUploadBytes:       DefaultMaxUploadBytes,
		APIURL:               "http://localhost:8080",
	}
}

// FromEnv reads configuration from environment variables. Unset variables
// leave the field at its zero value so defaults can be merged afterwards.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:              normalizeEnv(os.Getenv("ENV")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		DefaultProvider:  os.Getenv("DEFAULT_PROVIDER"),
		GrokAPIKey:       os.Getenv("GROK_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		GrokModel:        os.Getenv("GROK_MODEL"),
		GeminiModel:      os.Getenv("GEMINI_MODEL"),
		AnthropicModel:   os.Getenv("ANTHROPIC_MODEL"),
		ChromePath:       os.Getenv("CHROME_PATH"),
		ChromiumPackURL:  os.Getenv("CHROMIUM_PACK_URL"),
		ChromiumCacheDir: os.Getenv("CHROMIUM_CACHE_DIR"),
		APIURL:           os.Getenv("API_URL"),
	}

	var err error
	if cfg.Port, err = envInt("PORT"); err != nil {
		return nil, err
	}
	if cfg.RenderTimeoutSeconds, err = envInt("RENDER_TIMEOUT_SECONDS"); err != nil {
		return nil, err
	}
	if cfg.RateLimitDefault, err = envInt("RATE_LIMIT_DEFAULT_LIMIT"); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindowSeconds, err = envInt("RATE_LIMIT_WINDOW_SECONDS"); err != nil {
		return nil, err
	}
	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_ENABLED: %v", err)
		}
		cfg.RateLimitDisabled = !enabled
	}
	cfg.RateLimitAllow = envList("RATE_LIMIT_WHITELIST")
	cfg.RateLimitDeny = envList("RATE_LIMIT_BLACKLIST")
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %v", err)
		}
		cfg.MaxUploadBytes = n
	}
	return cfg, nil
}

// Load reads the environment, fills gaps from the optional JSON file at path
// and then from Defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		merged := cfg.MergeWithDefaults(*fileCfg)
		cfg = &merged
	}

	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	cfg.Env = normalizeEnv(cfg.Env)

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535, got %d", c.Port)
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("config error: 'max_upload_bytes' must be non-negative")
	}
	if c.RenderTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'render_timeout_seconds' must be non-negative")
	}
	if c.RateLimitDefault < 0 || c.RateLimitWindowSeconds < 0 {
		return fmt.Errorf("config error: rate limit values must be non-negative")
	}
	if c.DefaultProvider != "" {
		if _, err := llm.ParseProvider(c.DefaultProvider); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	switch c.Env {
	case "", EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("config error: unknown env %q", c.Env)
	}
	if c.ChromePath != "" {
		if _, err := os.Stat(c.ChromePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: chrome binary not found: %s", c.ChromePath)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	mergeString(&result.Env, defaults.Env)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)
	mergeString(&result.LogLevel, defaults.LogLevel)
	mergeString(&result.DefaultProvider, defaults.DefaultProvider)
	mergeString(&result.GrokAPIKey, defaults.GrokAPIKey)
	mergeString(&result.GeminiAPIKey, defaults.GeminiAPIKey)
	mergeString(&result.AnthropicAPIKey, defaults.AnthropicAPIKey)
	mergeString(&result.GrokModel, defaults.GrokModel)
	mergeString(&result.GeminiModel, defaults.GeminiModel)
	mergeString(&result.AnthropicModel, defaults.AnthropicModel)
	mergeString(&result.ChromePath, defaults.ChromePath)
	mergeString(&result.ChromiumPackURL, defaults.ChromiumPackURL)
	mergeString(&result.ChromiumCacheDir, defaults.ChromiumCacheDir)
	mergeString(&result.APIURL, defaults.APIURL)

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.RenderTimeoutSeconds == 0 {
		result.RenderTimeoutSeconds = defaults.RenderTimeoutSeconds
	}
	if result.MaxUploadBytes == 0 {
		result.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if result.RateLimitDefault == 0 {
		result.RateLimitDefault = defaults.RateLimitDefault
	}
	if result.RateLimitWindowSeconds == 0 {
		result.RateLimitWindowSeconds = defaults.RateLimitWindowSeconds
	}
	if result.RateLimitAllow == nil {
		result.RateLimitAllow = defaults.RateLimitAllow
	}
	if result.RateLimitDeny == nil {
		result.RateLimitDeny = defaults.RateLimitDeny
	}
	result.RateLimitDisabled = result.RateLimitDisabled || defaults.RateLimitDisabled

	return result
}

// IsProduction reports whether error details must be withheld from responses
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Provider returns the default LLM provider, falling back to anthropic
func (c *Config) Provider() llm.Provider {
	p, err := llm.ParseProvider(c.DefaultProvider)
	if err != nil {
		return llm.DefaultProvider
	}
	return p
}

// Credentials returns the provider API keys and model overrides
func (c *Config) Credentials() llm.Credentials {
	models := map[llm.Provider]string{}
	if c.GrokModel != "" {
		models[llm.ProviderGrok] = c.GrokModel
	}
	if c.GeminiModel != "" {
		models[llm.ProviderGemini] = c.GeminiModel
	}
	if c.AnthropicModel != "" {
		models[llm.ProviderAnthropic] = c.AnthropicModel
	}
	return llm.Credentials{
		GrokAPIKey:      c.GrokAPIKey,
		GeminiAPIKey:    c.GeminiAPIKey,
		AnthropicAPIKey: c.AnthropicAPIKey,
		Models:          models,
	}
}

// RenderTimeout returns the per-render deadline
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutSeconds) * time.Second
}

// RateLimit builds the API rate limiter configuration
func (c *Config) RateLimit() *ratelimit.Config {
	if c.RateLimitDisabled {
		return ratelimit.Disabled()
	}
	window := time.Duration(c.RateLimitWindowSeconds) * time.Second
	return ratelimit.NewConfig(c.RateLimitDefault, window, c.RateLimitAllow, c.RateLimitDeny)
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func envInt(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}

// envList splits a comma separated variable, dropping blanks
func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// normalizeEnv maps common spellings onto the known environment names.
func normalizeEnv(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return ""
	case "prod", "production":
		return EnvProduction
	case "dev", "development", "local":
		return EnvDevelopment
	case "test", "testing":
		return EnvTest
	default:
		return strings.ToLower(strings.TrimSpace(v))
	}
}
