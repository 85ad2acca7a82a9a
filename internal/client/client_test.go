package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humexxx/tech9-parserdf/internal/llm"
	"github.com/humexxx/tech9-parserdf/internal/parsing"
	"github.com/humexxx/tech9-parserdf/internal/resumes"
	"github.com/humexxx/tech9-parserdf/internal/server"
	"github.com/humexxx/tech9-parserdf/internal/server/ratelimit"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

type stubParser struct {
	provider llm.Provider
	file     *parsing.FileInput
	err      error
}

func (s *stubParser) Parse(_ context.Context, provider llm.Provider, file *parsing.FileInput) (*types.StructuredResume, error) {
	s.provider, s.file = provider, file
	if err := parsing.ValidateFile(file); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return &types.StructuredResume{Name: "Jane Doe", Skills: []string{"Go", "SQL"}}, nil
}

type stubRenderer struct {
	layout types.Layout
	hidden types.HiddenSections
	err    error
}

func (s *stubRenderer) Render(_ context.Context, _ *types.StructuredResume, layout types.Layout, hidden types.HiddenSections) ([]byte, error) {
	s.layout, s.hidden = layout, hidden
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.7 stub"), nil
}

type fixture struct {
	client   *Client
	parser   *stubParser
	renderer *stubRenderer
	now      *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := &fixture{parser: &stubParser{}, renderer: &stubRenderer{}, now: &now}
	svc := resumes.NewService(resumes.NewMemoryRepository(), resumes.WithClock(func() time.Time { return *f.now }))

	srv, err := server.New(server.Config{RateLimit: &ratelimit.Config{Enabled: false}}, server.Dependencies{
		Parser:   f.parser,
		Renderer: f.renderer,
		Resumes:  svc,
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	f.client = New(ts.URL+"/", WithHTTPClient(ts.Client()))
	return f
}

func TestParseResume(t *testing.T) {
	f := newFixture(t)

	resume, err := f.client.ParseResume(context.Background(), llm.ProviderGemini, "jane.pdf", []byte("%PDF-1.4 body"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", resume.Name)
	assert.Equal(t, llm.ProviderGemini, f.parser.provider)
	assert.Equal(t, "jane.pdf", f.parser.file.Name)
	assert.Equal(t, parsing.MIMEPDF, f.parser.file.MIMEType)
}

func TestParseResume_DefaultProvider(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.ParseResume(context.Background(), "", "jane.docx", []byte("PK"))
	require.NoError(t, err)
	assert.Equal(t, llm.DefaultProvider, f.parser.provider)
}

func TestParseResume_Errors(t *testing.T) {
	t.Run("unsupported file", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.client.ParseResume(context.Background(), "", "notes.txt", []byte("plain text"))

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Equal(t, parsing.MsgInvalidFileType, apiErr.Message)
	})

	t.Run("provider failure carries details", func(t *testing.T) {
		f := newFixture(t)
		f.parser.err = &llm.ProviderError{Provider: llm.ProviderAnthropic, Kind: llm.KindRateLimit, Status: 429, Cause: errors.New("slow down")}
		_, err := f.client.ParseResume(context.Background(), "", "jane.pdf", []byte("%PDF"))

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
		assert.Equal(t, server.MsgParseFailed, apiErr.Message)
		assert.NotEmpty(t, apiErr.Details)
	})

	t.Run("unknown provider", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.client.ParseResume(context.Background(), "openai", "jane.pdf", []byte("%PDF"))

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	})
}

func TestResumeLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.client.SaveResume(ctx, types.ResumeInput{
		Name:           "jane.pdf",
		ResumeData:     types.StructuredResume{Name: "Jane Doe"},
		Format:         types.LayoutSkillsBottom,
		HiddenSections: types.NewHiddenSections("skills", "name"),
	}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, types.LayoutSkillsBottom, created.Format)
	assert.Equal(t, []string{"skills"}, created.HiddenSections.Strings())
	assert.False(t, created.IsFavorite)

	*f.now = f.now.Add(time.Minute)
	renamed, err := f.client.SaveResume(ctx, types.ResumeInput{
		Name:       "jane-final.pdf",
		ResumeData: types.StructuredResume{Name: "Jane Doe"},
	}, &created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, renamed.ID)
	assert.Equal(t, "jane-final.pdf", renamed.Name)
	assert.True(t, renamed.UpdatedAt.After(created.UpdatedAt))

	fav := true
	updated, err := f.client.UpdateResume(ctx, created.ID, types.ResumePatch{IsFavorite: &fav})
	require.NoError(t, err)
	assert.True(t, updated.IsFavorite)

	got, err := f.client.GetResume(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane-final.pdf", got.Name)

	list, err := f.client.ListResumes(ctx)
	require.NoError(t, err)
	require.Len(t, list.Favorites, 1)
	assert.Empty(t, list.Recent)

	require.NoError(t, f.client.DeleteResume(ctx, created.ID))

	_, err = f.client.GetResume(ctx, created.ID)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(f.client.DeleteResume(ctx, created.ID)))
}

func TestCleanup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.SaveResume(ctx, types.ResumeInput{Name: "old.pdf"}, nil)
	require.NoError(t, err)
	fav := true
	_, err = f.client.SaveResume(ctx, types.ResumeInput{Name: "pinned.pdf", IsFavorite: &fav}, nil)
	require.NoError(t, err)

	*f.now = f.now.AddDate(0, 0, 91)
	n, err := f.client.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := f.client.ListResumes(ctx)
	require.NoError(t, err)
	require.Len(t, list.Favorites, 1)
	assert.Equal(t, "pinned.pdf", list.Favorites[0].Name)
}

func TestDownloadPDF(t *testing.T) {
	f := newFixture(t)

	pdf, err := f.client.DownloadPDF(context.Background(), PDFRequest{
		ResumeData:     &types.StructuredResume{Name: "José Pérez"},
		Format:         types.LayoutSkillsTop,
		FileName:       "José Pérez CV.docx",
		HiddenSections: types.NewHiddenSections("skills"),
	})
	require.NoError(t, err)
	assert.Equal(t, "José_Pérez_CV_Resume.pdf", pdf.FileName)
	assert.Equal(t, []byte("%PDF-1.7 stub"), pdf.Data)
	assert.Equal(t, types.LayoutSkillsTop, f.renderer.layout)
	assert.True(t, f.renderer.hidden.Contains(types.SectionSkills))
}

func TestDownloadPDF_Errors(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.client.DownloadPDF(context.Background(), PDFRequest{FileName: "a.pdf"})

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Equal(t, server.MsgPDFFieldsMissing, apiErr.Message)
	})

	t.Run("render failure", func(t *testing.T) {
		f := newFixture(t)
		f.renderer.err = errors.New("browser crashed")
		_, err := f.client.DownloadPDF(context.Background(), PDFRequest{
			ResumeData: &types.StructuredResume{Name: "Jane"},
			Format:     types.LayoutSkillsTop,
			FileName:   "jane.pdf",
		})

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
		assert.Equal(t, server.MsgPDFFailed, apiErr.Message)
		assert.Equal(t, "browser crashed", apiErr.Details)
	})
}

func TestDecodeError_PlainBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL).ListResumes(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "502")
}

func TestAttachmentName(t *testing.T) {
	assert.Equal(t, "a b.pdf", attachmentName(`attachment; filename="a%20b.pdf"; filename*=UTF-8''a%20b.pdf`))
	assert.Equal(t, "plain.pdf", attachmentName(`attachment; filename="plain.pdf"`))
	assert.Empty(t, attachmentName(""))
	assert.Empty(t, attachmentName(";;"))
}
