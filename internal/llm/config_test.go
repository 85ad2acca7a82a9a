package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("")
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, p)

	p, err = ParseProvider(" Gemini ")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p)

	p, err = ParseProvider("grok")
	require.NoError(t, err)
	assert.Equal(t, ProviderGrok, p)

	_, err = ParseProvider("openai")
	assert.Error(t, err)
}

func TestDefaultOptions(t *testing.T) {
	grok := DefaultOptions(ProviderGrok)
	assert.Equal(t, "grok-beta", grok.Model)
	assert.InDelta(t, 0.1, *grok.Temperature, 1e-9)
	assert.Equal(t, 16000, grok.MaxTokens)

	gemini := DefaultOptions(ProviderGemini)
	assert.Equal(t, "gemini-2.5-flash", gemini.Model)
	assert.Equal(t, 16000, gemini.MaxTokens)

	claude := DefaultOptions(ProviderAnthropic)
	assert.Equal(t, "claude-haiku-4-5", claude.Model)
	assert.Zero(t, *claude.Temperature)
	assert.Equal(t, 4096, claude.MaxTokens)
}

func TestOptions_WithDefaults_KeepsOverrides(t *testing.T) {
	opts := Options{Temperature: Temp(0.7), MaxTokens: 100}.WithDefaults(ProviderGemini)

	assert.Equal(t, "gemini-2.5-flash", opts.Model)
	assert.InDelta(t, 0.7, *opts.Temperature, 1e-9)
	assert.Equal(t, 100, opts.MaxTokens)
}
