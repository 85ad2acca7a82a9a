package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/humexxx/tech9-parserdf/internal/observability"
)

// GrokBaseURL is the xAI OpenAI-compatible endpoint
const GrokBaseURL = "https://api.x.ai/v1"

// GrokClient implements CompletionProvider for xAI Grok
type GrokClient struct {
	client *openai.Client
	model  string
}

// NewGrokClient creates a new Grok client
func NewGrokClient(apiKey, model string) *GrokClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = GrokBaseURL
	return &GrokClient{client: openai.NewClientWithConfig(cfg), model: model}
}

// Name identifies the provider
func (c *GrokClient) Name() Provider {
	return ProviderGrok
}

// Complete sends the messages through the chat completions API
func (c *GrokClient) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if err := Validate(messages); err != nil {
		return "", err
	}
	if opts.Model == "" {
		opts.Model = c.model
	}
	opts = opts.WithDefaults(ProviderGrok)

	req := grokRequest(messages, opts)
	observability.Logger().WithFields(logrus.Fields{
		"provider": ProviderGrok,
		"model":    opts.Model,
	}).Debug("sending completion request")

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyGrokError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &EmptyResponseError{Provider: ProviderGrok}
	}
	return resp.Choices[0].Message.Content, nil
}

// grokRequest maps the unified messages to OpenAI-style chat messages.
// Attachments travel as data URLs in an image_url part.
func grokRequest(messages []Message, opts Options) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:     opts.Model,
		MaxTokens: opts.MaxTokens,
	}
	if opts.Temperature != nil {
		req.Temperature = float32(*opts.Temperature)
	}

	for _, m := range messages {
		if m.Role == RoleSystem {
			req.Messages = append(req.Messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: m.Text(),
			})
			continue
		}

		var parts []openai.ChatMessagePart
		for _, p := range m.Parts {
			if p.Inline != nil {
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: fmt.Sprintf("data:%s;base64,%s", p.Inline.MIMEType, p.Inline.Data),
					},
				})
				continue
			}
			if p.Text != "" {
				parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: p.Text})
			}
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:         openai.ChatMessageRoleUser,
			MultiContent: parts,
		})
	}
	return req
}

func classifyGrokError(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return newProviderError(ProviderGrok, apiErr.HTTPStatusCode, KindUnknown, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return newProviderError(ProviderGrok, reqErr.HTTPStatusCode, KindUnknown, err)
	}
	return newProviderError(ProviderGrok, 0, KindUnknown, err)
}
