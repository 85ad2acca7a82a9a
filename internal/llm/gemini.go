package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/humexxx/tech9-parserdf/internal/observability"
)

// GeminiClient implements CompletionProvider for Google Gemini
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, missingKey(ProviderGemini, "GEMINI_API_KEY")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Name identifies the provider
func (c *GeminiClient) Name() Provider {
	return ProviderGemini
}

// Complete sends the conversation as a single content turn in JSON response mode
func (c *GeminiClient) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if err := Validate(messages); err != nil {
		return "", err
	}
	if opts.Model == "" {
		opts.Model = c.model
	}
	opts = opts.WithDefaults(ProviderGemini)

	parts, err := geminiParts(messages)
	if err != nil {
		return "", err
	}

	model := c.client.GenerativeModel(opts.Model)
	model.SetTemperature(float32(*opts.Temperature))
	model.SetMaxOutputTokens(int32(opts.MaxTokens))
	model.ResponseMIMEType = "application/json"

	observability.Logger().WithFields(logrus.Fields{
		"provider": ProviderGemini,
		"model":    opts.Model,
		"parts":    len(parts),
	}).Debug("sending completion request")

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	text := extractTextFromResponse(resp)
	if strings.TrimSpace(text) == "" {
		return "", &EmptyResponseError{Provider: ProviderGemini}
	}
	return text, nil
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// geminiParts flattens the messages into one user turn: system text first,
// then user text and the decoded attachment as a blob.
func geminiParts(messages []Message) ([]genai.Part, error) {
	var parts []genai.Part
	for _, m := range messages {
		for _, p := range m.Parts {
			if p.Inline != nil {
				data, err := base64.StdEncoding.DecodeString(p.Inline.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to decode inline data: %w", err)
				}
				parts = append(parts, genai.Blob{MIMEType: p.Inline.MIMEType, Data: data})
				continue
			}
			if p.Text != "" {
				parts = append(parts, genai.Text(p.Text))
			}
		}
	}
	return parts, nil
}

// extractTextFromResponse joins the text parts of the first candidate
func extractTextFromResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	return strings.Join(parts, "")
}

func classifyGeminiError(err error) *ProviderError {
	// Gemini reports a bad key as INVALID_ARGUMENT
	if strings.Contains(err.Error(), "API key not valid") {
		return newProviderError(ProviderGemini, 0, KindAuth, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return newProviderError(ProviderGemini, gerr.Code, KindUnknown, err)
	}

	if st, ok := status.FromError(err); ok {
		kind := KindUnknown
		switch st.Code() {
		case codes.Unauthenticated:
			kind = KindAuth
		case codes.PermissionDenied:
			kind = KindPermission
		case codes.ResourceExhausted:
			kind = KindRateLimit
		case codes.InvalidArgument, codes.FailedPrecondition:
			kind = KindBadRequest
		}
		return newProviderError(ProviderGemini, 0, kind, err)
	}

	return newProviderError(ProviderGemini, 0, KindUnknown, err)
}
