package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"github.com/humexxx/tech9-parserdf/internal/observability"
)

// AnthropicClient implements CompletionProvider for Anthropic Claude
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Name identifies the provider
func (c *AnthropicClient) Name() Provider {
	return ProviderAnthropic
}

// Complete sends the messages through the Messages API
func (c *AnthropicClient) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if err := Validate(messages); err != nil {
		return "", err
	}
	if opts.Model == "" {
		opts.Model = c.model
	}
	opts = opts.WithDefaults(ProviderAnthropic)

	params, skipped := anthropicParams(messages, opts)
	log := observability.Logger().WithFields(logrus.Fields{
		"provider": ProviderAnthropic,
		"model":    opts.Model,
	})
	for _, mime := range skipped {
		log.WithField("mime_type", mime).Warn("unsupported attachment type, skipping")
	}
	log.Debug("sending completion request")

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classifyAnthropicError(err)
	}

	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	text := strings.Join(parts, "")
	if strings.TrimSpace(text) == "" {
		return "", &EmptyResponseError{Provider: ProviderAnthropic}
	}
	return text, nil
}

// anthropicParams maps the unified messages to the Messages API. System text
// becomes the system prompt, PDFs become document blocks and images become
// image blocks. Other attachment types are returned in skipped.
func anthropicParams(messages []Message, opts Options) (anthropic.MessageNewParams, []string) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		MaxTokens: int64(opts.MaxTokens),
	}
	if opts.Temperature != nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}

	var skipped []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			if text := m.Text(); text != "" {
				params.System = append(params.System, anthropic.TextBlockParam{Text: text})
			}
			continue
		}

		var blocks []anthropic.ContentBlockParamUnion
		for _, p := range m.Parts {
			if p.Inline == nil {
				if p.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(p.Text))
				}
				continue
			}
			switch {
			case p.Inline.MIMEType == "application/pdf":
				blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: p.Inline.Data}))
			case isAnthropicImage(p.Inline.MIMEType):
				blocks = append(blocks, anthropic.NewImageBlockBase64(p.Inline.MIMEType, p.Inline.Data))
			default:
				skipped = append(skipped, p.Inline.MIMEType)
			}
		}
		if len(blocks) > 0 {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(blocks...))
		}
	}
	return params, skipped
}

func isAnthropicImage(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func classifyAnthropicError(err error) *ProviderError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return newProviderError(ProviderAnthropic, apiErr.StatusCode, KindUnknown, err)
	}
	return newProviderError(ProviderAnthropic, 0, KindUnknown, err)
}
