package main

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/humexxx/tech9-parserdf/internal/client"
	"github.com/humexxx/tech9-parserdf/internal/llm"
	"github.com/humexxx/tech9-parserdf/internal/parsing"
	"github.com/humexxx/tech9-parserdf/internal/resumes"
	"github.com/humexxx/tech9-parserdf/internal/server"
	"github.com/humexxx/tech9-parserdf/internal/server/ratelimit"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

// getBinaryPath returns the path to the parserdf binary for testing
func getBinaryPath(t *testing.T) string {
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", "parserdf")
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'go build -o bin/parserdf ./cmd/parserdf'", binaryPath)
	}
	return binaryPath
}

// stubParser names the resume after the uploaded file and fails for names containing "broken"
type stubParser struct{}

func (stubParser) Parse(_ context.Context, _ llm.Provider, file *parsing.FileInput) (*types.StructuredResume, error) {
	if err := parsing.ValidateFile(file); err != nil {
		return nil, err
	}
	if strings.Contains(file.Name, "broken") {
		return nil, &parsing.ParseError{Message: "model returned prose"}
	}
	return &types.StructuredResume{
		Name:   strings.TrimSuffix(file.Name, filepath.Ext(file.Name)),
		Skills: []string{"Go", "PostgreSQL"},
	}, nil
}

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, resume *types.StructuredResume, _ types.Layout, _ types.HiddenSections) ([]byte, error) {
	return []byte("%PDF-1.7 " + resume.Name), nil
}

// newTestAPI serves the real API over an in-memory store with stubbed parsing and rendering
func newTestAPI(t *testing.T) *client.Client {
	t.Helper()

	srv, err := server.New(server.Config{RateLimit: ratelimit.Disabled()}, server.Dependencies{
		Parser:   stubParser{},
		Renderer: stubRenderer{},
		Resumes:  resumes.NewService(resumes.NewMemoryRepository()),
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return client.New(ts.URL, client.WithHTTPClient(ts.Client()))
}
