package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humexxx/tech9-parserdf/internal/pipeline"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConvertFiles(t *testing.T) {
	api := newTestAPI(t)
	in, out := t.TempDir(), t.TempDir()

	files := []string{
		writeInput(t, in, "jane doe.pdf", "%PDF-1.4 jane"),
		writeInput(t, in, "broken.pdf", "%PDF-1.4 broken"),
		writeInput(t, in, "notes.txt", "plain text"),
	}

	var buf bytes.Buffer
	written, err := convertFiles(t.Context(), api, convertOptions{
		Files:  files,
		Layout: types.LayoutSkillsBottom,
		OutDir: out,
	}, &buf)
	require.NoError(t, err)

	require.Equal(t, []string{filepath.Join(out, "jane_doe_Resume.pdf")}, written)
	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 jane doe", string(data))

	output := buf.String()
	assert.Contains(t, output, "✓ jane doe.pdf")
	assert.Contains(t, output, "✗ broken.pdf")
	assert.NotContains(t, output, "notes.txt")
	assert.Contains(t, output, "Wrote "+written[0]+"\n")

	// only the parsed file was saved
	list, err := api.ListResumes(t.Context())
	require.NoError(t, err)
	require.Len(t, list.Recent, 1)
	assert.Equal(t, "jane doe.pdf", list.Recent[0].Name)
	assert.Equal(t, types.LayoutSkillsBottom, list.Recent[0].Format)
}

func TestConvertFiles_NothingAccepted(t *testing.T) {
	api := newTestAPI(t)
	in := t.TempDir()

	_, err := convertFiles(t.Context(), api, convertOptions{
		Files:  []string{writeInput(t, in, "photo.png", "png")},
		Layout: types.DefaultLayout,
		OutDir: t.TempDir(),
	}, &bytes.Buffer{})
	assert.ErrorIs(t, err, pipeline.ErrNoFiles)
}

func TestConvertFiles_MissingFile(t *testing.T) {
	api := newTestAPI(t)

	_, err := convertFiles(t.Context(), api, convertOptions{
		Files:  []string{filepath.Join(t.TempDir(), "missing.pdf")},
		Layout: types.DefaultLayout,
		OutDir: t.TempDir(),
	}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	dir := filepath.Join("out", "pdfs")
	tests := []struct {
		name      string
		suggested string
		want      string
	}{
		{name: "plain", suggested: "jane_Resume.pdf", want: filepath.Join(dir, "jane_Resume.pdf")},
		{name: "parent traversal", suggested: "../../evil.pdf", want: filepath.Join(dir, "evil.pdf")},
		{name: "absolute", suggested: "/etc/evil.pdf", want: filepath.Join(dir, "evil.pdf")},
		{name: "empty", suggested: "", want: filepath.Join(dir, "jane doe.pdf")},
		{name: "dot dot", suggested: "..", want: filepath.Join(dir, "jane doe.pdf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outputPath(dir, tt.suggested, "jane doe.docx"))
		})
	}
}
