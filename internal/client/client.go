// Package client talks to the parserdf HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/humexxx/tech9-parserdf/internal/llm"
	"github.com/humexxx/tech9-parserdf/internal/parsing"
	"github.com/humexxx/tech9-parserdf/internal/rendering"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

// DefaultTimeout covers a slow LLM parse or a cold browser start.
const DefaultTimeout = 3 * time.Minute

// DefaultUserAgent is sent with every request.
const DefaultUserAgent = "parserdf-client/1.0"

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api error %d: %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client is an HTTP client for the parserdf API.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type parseResponse struct {
	Success bool                    `json:"success"`
	Data    *types.StructuredResume `json:"data"`
}

// ParseResume uploads one document and returns the structured resume.
// An empty provider leaves the choice to the server.
func (c *Client) ParseResume(ctx context.Context, provider llm.Provider, fileName string, data []byte) (*types.StructuredResume, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(fileName)))
	h.Set("Content-Type", parsing.DetectMIMEType(fileName, "", data))
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	path := "/parse-resume"
	if provider != "" {
		path += "?" + url.Values{"provider": {string(provider)}}.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out parseResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, fmt.Errorf("parse response carried no data")
	}
	return out.Data, nil
}

type saveRequest struct {
	ID string `json:"id,omitempty"`
	types.ResumeInput
}

// SaveResume creates a record, or replaces the one identified by id.
func (c *Client) SaveResume(ctx context.Context, in types.ResumeInput, id *uuid.UUID) (*types.ResumeRecord, error) {
	body := saveRequest{ResumeInput: in}
	if id != nil {
		body.ID = id.String()
	}
	var rec types.ResumeRecord
	if err := c.doJSON(ctx, http.MethodPost, "/resumes", body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateResume applies a partial update.
func (c *Client) UpdateResume(ctx context.Context, id uuid.UUID, patch types.ResumePatch) (*types.ResumeRecord, error) {
	var rec types.ResumeRecord
	if err := c.doJSON(ctx, http.MethodPatch, "/resumes/"+id.String(), patch, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetResume fetches a single record.
func (c *Client) GetResume(ctx context.Context, id uuid.UUID) (*types.ResumeRecord, error) {
	var rec types.ResumeRecord
	if err := c.doJSON(ctx, http.MethodGet, "/resumes/"+id.String(), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListResumes returns favorites and the recent window.
func (c *Client) ListResumes(ctx context.Context) (*types.ResumeList, error) {
	var list types.ResumeList
	if err := c.doJSON(ctx, http.MethodGet, "/resumes", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteResume removes a record permanently.
func (c *Client) DeleteResume(ctx context.Context, id uuid.UUID) error {
	return c.doJSON(ctx, http.MethodDelete, "/resumes/"+id.String(), nil, nil)
}

type cleanupResponse struct {
	Success      bool  `json:"success"`
	DeletedCount int64 `json:"deletedCount"`
}

// Cleanup runs the retention sweep and returns how many records were removed.
func (c *Client) Cleanup(ctx context.Context) (int64, error) {
	var out cleanupResponse
	if err := c.doJSON(ctx, http.MethodPost, "/resumes/cleanup", nil, &out); err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}

// PDFRequest is the body of a PDF download.
type PDFRequest struct {
	ResumeData     *types.StructuredResume `json:"resumeData"`
	Format         types.Layout            `json:"format"`
	FileName       string                  `json:"fileName"`
	HiddenSections types.HiddenSections    `json:"hiddenSections,omitempty"`
}

// PDF is a rendered document and the file name the server suggested.
type PDF struct {
	FileName string
	Data     []byte
}

// DownloadPDF renders a resume on the server.
func (c *Client) DownloadPDF(ctx context.Context, in PDFRequest) (*PDF, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/download-pdf", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}

	name := attachmentName(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = rendering.PDFFileName(in.FileName)
	}
	return &PDF{FileName: name, Data: data}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// doJSON sends an optional JSON body and decodes a JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError reads the {error, details} body; a non-JSON body becomes the message.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Details = body.Details
		if apiErr.Details == "" {
			apiErr.Details = body.Message
		}
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// attachmentName returns the file name of a Content-Disposition header.
func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
