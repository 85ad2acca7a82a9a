// Package pipeline drives the conversion of uploaded resumes: intake, format
// selection, sequential parsing, edits with autosave and PDF export.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/humexxx/tech9-parserdf/internal/client"
	"github.com/humexxx/tech9-parserdf/internal/llm"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

// Stage is the step of the conversion flow a session is in
type Stage string

// Stages in the order a session moves through them
const (
	StageUpload          Stage = "upload"
	StageFileList        Stage = "fileList"
	StageFormatSelection Stage = "formatSelection"
	StagePreview         Stage = "preview"
)

const (
	// DefaultMaxFileBytes is the per-file upload ceiling
	DefaultMaxFileBytes = 10 << 20
	// DefaultSaveTimeout bounds a single autosave call
	DefaultSaveTimeout = 30 * time.Second
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// Parser turns an uploaded document into structured data
type Parser interface {
	ParseResume(ctx context.Context, provider llm.Provider, fileName string, data []byte) (*types.StructuredResume, error)
}

// Store persists converted resumes
type Store interface {
	SaveResume(ctx context.Context, in types.ResumeInput, id *uuid.UUID) (*types.ResumeRecord, error)
}

// Renderer produces the downloadable PDF
type Renderer interface {
	DownloadPDF(ctx context.Context, in client.PDFRequest) (*client.PDF, error)
}

// File is a document offered to Intake
type File struct {
	Name string
	Data []byte
}

// Config holds session options
type Config struct {
	// Provider is sent with every parse; empty lets the server choose.
	Provider     llm.Provider
	MaxFileBytes int64
	SaveTimeout  time.Duration
	// OnEvent receives progress events. Calls are serialized, so the
	// callback needs no locking of its own, and it may call back into the session.
	OnEvent EventCallback
}

// Dependencies are the collaborators a session calls out to
type Dependencies struct {
	Parser   Parser
	Store    Store
	Renderer Renderer
}

// pendingFile is an accepted upload waiting in the file list
type pendingFile struct {
	name     string
	original string
	data     []byte
}

// Session is one conversion flow. All methods are safe for concurrent use.
type Session struct {
	cfg      Config
	parser   Parser
	store    Store
	renderer Renderer

	mu         sync.Mutex
	stage      Stage
	files      []pendingFile
	formats    map[string]types.Layout
	entries    []*entry
	processed  map[string]bool
	generation uint64

	// emitMu serializes OnEvent calls from Preview and autosave goroutines
	emitMu sync.Mutex
	saves  sync.WaitGroup
}

// NewSession creates a session in the upload stage
func NewSession(cfg Config, deps Dependencies) (*Session, error) {
	if deps.Parser == nil || deps.Store == nil || deps.Renderer == nil {
		return nil, fmt.Errorf("parser, store and renderer are required")
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultSaveTimeout
	}
	return &Session{
		cfg:       cfg,
		parser:    deps.Parser,
		store:     deps.Store,
		renderer:  deps.Renderer,
		stage:     StageUpload,
		processed: make(map[string]bool),
	}, nil
}

// Stage returns the current stage
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Files returns the display names in the file list, in upload order
func (s *Session) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.files))
	for i, f := range s.files {
		names[i] = f.name
	}
	return names
}

// Accepts reports whether a file passes the type and size checks.
func (s *Session) Accepts(name string, size int64) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))] && size <= s.cfg.MaxFileBytes
}

// Intake adds files to the list. Unsupported or oversized files are dropped,
// as are names already listed or already processed in this session.
// It returns how many files were added.
func (s *Session) Intake(files []File) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageUpload && s.stage != StageFileList {
		return 0, &StageError{Op: "intake", Stage: s.stage, Expected: StageUpload}
	}

	listed := make(map[string]bool, len(s.files))
	for _, f := range s.files {
		listed[f.original] = true
	}

	added := 0
	for _, f := range files {
		if !s.Accepts(f.Name, int64(len(f.Data))) || listed[f.Name] || s.processed[f.Name] {
			continue
		}
		listed[f.Name] = true
		s.files = append(s.files, pendingFile{name: f.Name, original: f.Name, data: f.Data})
		added++
	}

	if len(s.files) == 0 {
		return 0, ErrNoFiles
	}
	s.stage = StageFileList
	return added, nil
}

// Remove drops a file from the list; removing the last one returns to upload.
func (s *Session) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageFileList {
		return &StageError{Op: "remove", Stage: s.stage, Expected: StageFileList}
	}
	if i < 0 || i >= len(s.files) {
		return &IndexError{Index: i, Len: len(s.files)}
	}
	s.files = append(s.files[:i], s.files[i+1:]...)
	if len(s.files) == 0 {
		s.stage = StageUpload
	}
	return nil
}

// Rename changes a file's display name, keeping its extension. Blank names are ignored.
func (s *Session) Rename(i int, base string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageFileList {
		return &StageError{Op: "rename", Stage: s.stage, Expected: StageFileList}
	}
	if i < 0 || i >= len(s.files) {
		return &IndexError{Index: i, Len: len(s.files)}
	}
	name, ok := renamed(s.files[i].name, base)
	if !ok || name == s.files[i].name {
		return nil
	}
	for j, f := range s.files {
		if j != i && f.name == name {
			return &DuplicateNameError{Name: name}
		}
	}
	s.files[i].name = name
	return nil
}

// ContinueToFormats moves from the file list to format selection
func (s *Session) ContinueToFormats() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageFileList {
		return &StageError{Op: "continue", Stage: s.stage, Expected: StageFileList}
	}
	s.stage = StageFormatSelection
	return nil
}

// SelectBulk applies one layout to every file and enters preview
func (s *Session) SelectBulk(layout types.Layout) error {
	if _, err := types.ParseLayout(string(layout)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageFormatSelection {
		return &StageError{Op: "select format", Stage: s.stage, Expected: StageFormatSelection}
	}
	s.formats = make(map[string]types.Layout, len(s.files))
	for _, f := range s.files {
		s.formats[f.name] = layout
	}
	s.stage = StagePreview
	return nil
}

// SelectIndividual assigns a layout per display name and enters preview.
// Files without an entry use the default layout.
func (s *Session) SelectIndividual(layouts map[string]types.Layout) error {
	for name, l := range layouts {
		if _, err := types.ParseLayout(string(l)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageFormatSelection {
		return &StageError{Op: "select format", Stage: s.stage, Expected: StageFormatSelection}
	}
	s.formats = make(map[string]types.Layout, len(s.files))
	for _, f := range s.files {
		if l, ok := layouts[f.name]; ok {
			s.formats[f.name] = l
		}
	}
	s.stage = StagePreview
	return nil
}

func (s *Session) layoutFor(name string) types.Layout {
	if l, ok := s.formats[name]; ok {
		return l
	}
	return types.DefaultLayout
}

// Reset discards all state and returns to upload. Calls still in flight
// finish, but their results are ignored.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.stage = StageUpload
	s.files = nil
	s.formats = nil
	s.entries = nil
	s.processed = make(map[string]bool)
}

// Wait blocks until every dispatched autosave has returned
func (s *Session) Wait() {
	s.saves.Wait()
}

// renamed applies a new base name to current, keeping current's extension.
func renamed(current, base string) (string, bool) {
	base = strings.TrimSpace(base)
	ext := filepath.Ext(current)
	if ext != "" && strings.EqualFold(filepath.Ext(base), ext) {
		base = strings.TrimSpace(base[:len(base)-len(ext)])
	}
	if base == "" {
		return current, false
	}
	return base + ext, true
}
