package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humexxx/tech9-parserdf/internal/llm"
	"github.com/humexxx/tech9-parserdf/internal/parsing"
	"github.com/humexxx/tech9-parserdf/internal/resumes"
	"github.com/humexxx/tech9-parserdf/internal/server/ratelimit"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

// fakeParser records the provider and file it was called with
type fakeParser struct {
	mu       sync.Mutex
	provider llm.Provider
	file     *parsing.FileInput
	result   *types.StructuredResume
	err      error
}

func (f *fakeParser) Parse(_ context.Context, provider llm.Provider, file *parsing.FileInput) (*types.StructuredResume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provider = provider
	f.file = file
	if err := parsing.ValidateFile(file); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeRenderer returns fixed bytes and captures its inputs
type fakeRenderer struct {
	layout types.Layout
	hidden types.HiddenSections
	resume *types.StructuredResume
	err    error
}

func (f *fakeRenderer) Render(_ context.Context, resume *types.StructuredResume, layout types.Layout, hidden types.HiddenSections) ([]byte, error) {
	f.resume, f.layout, f.hidden = resume, layout, hidden
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 fake"), nil
}

type testServer struct {
	*Server
	parser   *fakeParser
	renderer *fakeRenderer
	service  *resumes.Service
	clock    *time.Time
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := &testServer{
		parser:   &fakeParser{result: &types.StructuredResume{Name: "Jane Doe", Skills: []string{"Go"}}},
		renderer: &fakeRenderer{},
		clock:    &now,
	}
	ts.service = resumes.NewService(resumes.NewMemoryRepository(), resumes.WithClock(func() time.Time { return *ts.clock }))

	if cfg.RateLimit == nil {
		cfg.RateLimit = &ratelimit.Config{Enabled: false}
	}
	s, err := New(cfg, Dependencies{Parser: ts.parser, Renderer: ts.renderer, Resumes: ts.service})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	ts.Server = s
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func (ts *testServer) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return ts.do(req)
}

// multipartUpload builds a multipart body with one "file" part
func multipartUpload(t *testing.T, name, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{}, Dependencies{})
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestCORS_Preflight(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.do(httptest.NewRequest(http.MethodOptions, "/resumes/abc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestRateLimit_ParseResume(t *testing.T) {
	ts := newTestServer(t, Config{RateLimit: &ratelimit.Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{{Path: "/parse-resume", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1}},
	}})

	send := func() *httptest.ResponseRecorder {
		body, ct := multipartUpload(t, "cv.pdf", parsing.MIMEPDF, []byte("%PDF-1.4"))
		req := httptest.NewRequest(http.MethodPost, "/parse-resume", body)
		req.Header.Set("Content-Type", ct)
		return ts.do(req)
	}

	first := send()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := send()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode[map[string]any](t, second)["error"])

	// health stays reachable
	assert.Equal(t, http.StatusOK, ts.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, Config{})
	w := ts.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClose_RunsShutdownHooks(t *testing.T) {
	called := 0
	s, err := New(Config{RateLimit: &ratelimit.Config{Enabled: false}}, Dependencies{
		Parser:     &fakeParser{},
		Renderer:   &fakeRenderer{},
		Resumes:    resumes.NewService(resumes.NewMemoryRepository()),
		OnShutdown: []func(){func() { called++ }},
	})
	require.NoError(t, err)

	s.Close()
	s.Close()
	assert.Equal(t, 1, called)
}
