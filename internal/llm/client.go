package llm

import (
	"context"
	"fmt"
	"strings"
)

// Role tags a message
type Role string

// Role constants
const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// InlineData is a base64-encoded binary attachment typed by MIME
type InlineData struct {
	MIMEType string
	Data     string
}

// Part is one piece of a message: text or an inline attachment
type Part struct {
	Text   string
	Inline *InlineData
}

// TextPart builds a text part
func TextPart(text string) Part {
	return Part{Text: text}
}

// InlinePart builds an attachment part
func InlinePart(mimeType, base64Data string) Part {
	return Part{Inline: &InlineData{MIMEType: mimeType, Data: base64Data}}
}

// Message is a role-tagged list of parts
type Message struct {
	Role  Role
	Parts []Part
}

// Text joins the text parts of the message
func (m Message) Text() string {
	var parts []string
	for _, p := range m.Parts {
		if p.Inline == nil && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Attachment returns the message's inline attachment, if any
func (m Message) Attachment() *InlineData {
	for _, p := range m.Parts {
		if p.Inline != nil {
			return p.Inline
		}
	}
	return nil
}

// Validate checks the unified message shape: system messages are text only and
// a user message carries at most one attachment.
func Validate(messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("at least one message is required")
	}
	for i, m := range messages {
		attachments := 0
		for _, p := range m.Parts {
			if p.Inline != nil {
				attachments++
			}
		}
		switch m.Role {
		case RoleSystem:
			if attachments > 0 {
				return fmt.Errorf("message %d: system messages cannot carry attachments", i)
			}
		case RoleUser:
			if attachments > 1 {
				return fmt.Errorf("message %d: at most one attachment per user message", i)
			}
		default:
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	return nil
}

// CompletionProvider is the capability shared by every LLM backend
type CompletionProvider interface {
	// Complete sends the messages and returns the model's text completion
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
	// Name identifies the provider
	Name() Provider
}

// NewProvider creates the CompletionProvider for p. A missing API key is a
// *ConfigError and no client is built.
func NewProvider(ctx context.Context, p Provider, creds Credentials) (CompletionProvider, error) {
	key, envName := creds.keyFor(p)
	if envName == "" {
		return nil, fmt.Errorf("unsupported provider %q", p)
	}
	if strings.TrimSpace(key) == "" {
		return nil, missingKey(p, envName)
	}

	model := creds.Models[p]
	switch p {
	case ProviderGrok:
		return NewGrokClient(key, model), nil
	case ProviderGemini:
		client, err := NewGeminiClient(ctx, key, model)
		if err != nil {
			return nil, err
		}
		return client, nil
	case ProviderAnthropic:
		return NewAnthropicClient(key, model), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", p)
	}
}

// Registry resolves providers lazily per call
type Registry struct {
	creds Credentials
	// factory is swapped in tests
	factory func(ctx context.Context, p Provider, creds Credentials) (CompletionProvider, error)
}

// NewRegistry creates a registry backed by NewProvider
func NewRegistry(creds Credentials) *Registry {
	return &Registry{creds: creds, factory: NewProvider}
}

// NewStaticRegistry serves fixed providers, used by tests and offline tooling
func NewStaticRegistry(providers ...CompletionProvider) *Registry {
	byName := make(map[Provider]CompletionProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Registry{factory: func(_ context.Context, p Provider, _ Credentials) (CompletionProvider, error) {
		if cp, ok := byName[p]; ok {
			return cp, nil
		}
		_, envName := Credentials{}.keyFor(p)
		return nil, missingKey(p, envName)
	}}
}

// Get returns the provider implementation for p
func (r *Registry) Get(ctx context.Context, p Provider) (CompletionProvider, error) {
	return r.factory(ctx, p, r.creds)
}
