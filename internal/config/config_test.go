package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humexxx/tech9-parserdf/internal/llm"
)

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "LOG_LEVEL", "DEFAULT_PROVIDER",
	"GROK_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY",
	"GROK_MODEL", "GEMINI_MODEL", "ANTHROPIC_MODEL",
	"CHROME_PATH", "CHROMIUM_PACK_URL", "CHROMIUM_CACHE_DIR",
	"RENDER_TIMEOUT_SECONDS", "MAX_UPLOAD_BYTES", "API_URL",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_DEFAULT_LIMIT", "RATE_LIMIT_WINDOW_SECONDS",
	"RATE_LIMIT_WHITELIST", "RATE_LIMIT_BLACKLIST",
}

// clearEnv blanks every recognised variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9090,
		"env": "prod",
		"default_provider": "gemini",
		"max_upload_bytes": 2048
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, "gemini", cfg.DefaultProvider)
	assert.Equal(t, int64(2048), cfg.MaxUploadBytes)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{ invalid json }`))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("ENV", "Production")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, "sk-ant", cfg.AnthropicAPIKey)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.True(t, cfg.IsProduction())
}

func TestFromEnv_InvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "invalid PORT")

	t.Setenv("PORT", "")
	t.Setenv("MAX_UPLOAD_BYTES", "big")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "invalid MAX_UPLOAD_BYTES")
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	path := writeConfig(t, `{"port": 9090, "grok_api_key": "xai-file", "log_level": "debug"}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "xai-file", cfg.GrokAPIKey)
	assert.Equal(t, "debug", cfg.LogLevel)
	// built-in defaults fill the rest
	assert.Equal(t, DefaultMaxUploadBytes, cfg.MaxUploadBytes)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 60*time.Second, cfg.RenderTimeout())
}

func TestLoad_InvalidProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEFAULT_PROVIDER", "openai")
	_, err := Load("")
	assert.ErrorContains(t, err, "unsupported provider")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"defaults", Defaults(), ""},
		{"port too large", Config{Port: 70000}, "'port'"},
		{"negative upload", Config{MaxUploadBytes: -1}, "'max_upload_bytes'"},
		{"negative timeout", Config{RenderTimeoutSeconds: -1}, "'render_timeout_seconds'"},
		{"unknown env", Config{Env: "staging"}, "unknown env"},
		{"missing chrome", Config{ChromePath: "/nonexistent/chrome"}, "chrome binary not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{Port: 1234, GeminiModel: "gemini-pro"}
	merged := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, 1234, merged.Port)
	assert.Equal(t, "gemini-pro", merged.GeminiModel)
	assert.Equal(t, string(llm.DefaultProvider), merged.DefaultProvider)
	assert.Equal(t, "http://localhost:8080", merged.APIURL)
	// receiver untouched
	assert.Equal(t, "", cfg.APIURL)
}

func TestCredentials(t *testing.T) {
	cfg := Config{GeminiAPIKey: "g-key", AnthropicModel: "claude-sonnet-4-5"}
	creds := cfg.Credentials()

	assert.Equal(t, "g-key", creds.GeminiAPIKey)
	assert.Equal(t, "claude-sonnet-4-5", creds.Models[llm.ProviderAnthropic])
	_, ok := creds.Models[llm.ProviderGrok]
	assert.False(t, ok)
}

func TestProvider_Fallback(t *testing.T) {
	assert.Equal(t, llm.ProviderAnthropic, (&Config{}).Provider())
	assert.Equal(t, llm.ProviderGrok, (&Config{DefaultProvider: "grok"}).Provider())
	assert.Equal(t, llm.ProviderAnthropic, (&Config{DefaultProvider: "bogus"}).Provider())
}

func TestRateLimit(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "30")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, ,10.0.0.2")

	cfg, err := Load("")
	require.NoError(t, err)
	rl := cfg.RateLimit()
	assert.True(t, rl.Enabled)
	assert.Equal(t, 42, rl.DefaultLimit)
	assert.Equal(t, 30*time.Second, rl.DefaultWindow)
	assert.Len(t, rl.Whitelist, 2)
	assert.True(t, rl.Whitelist["10.0.0.2"])

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.False(t, cfg.RateLimit().Enabled)

	t.Setenv("RATE_LIMIT_ENABLED", "maybe")
	_, err = Load("")
	assert.ErrorContains(t, err, "invalid RATE_LIMIT_ENABLED")
}
