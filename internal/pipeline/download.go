package pipeline

import (
	"context"
	"fmt"

	"github.com/humexxx/tech9-parserdf/internal/client"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

// Download renders entry i. The entry must have completed; otherwise a
// *NotReadyError is returned and nothing is sent to the renderer.
func (s *Session) Download(ctx context.Context, i int) (*client.PDF, error) {
	s.mu.Lock()
	e, err := s.entryLocked(i)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if e.Status != StatusCompleted {
		s.mu.Unlock()
		return nil, &NotReadyError{Files: []string{e.FileName}}
	}
	req := pdfRequest(e)
	s.mu.Unlock()

	return s.render(ctx, req)
}

// DownloadAll renders every entry in upload order. All entries must have
// completed. If any render fails no PDF is returned.
func (s *Session) DownloadAll(ctx context.Context) ([]*client.PDF, error) {
	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return nil, ErrNoFiles
	}
	var pending []string
	reqs := make([]client.PDFRequest, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Status != StatusCompleted {
			pending = append(pending, e.FileName)
			continue
		}
		reqs = append(reqs, pdfRequest(e))
	}
	s.mu.Unlock()

	if len(pending) > 0 {
		return nil, &NotReadyError{Files: pending}
	}

	pdfs := make([]*client.PDF, 0, len(reqs))
	for _, req := range reqs {
		pdf, err := s.render(ctx, req)
		if err != nil {
			return nil, err
		}
		pdfs = append(pdfs, pdf)
	}
	return pdfs, nil
}

func (s *Session) render(ctx context.Context, req client.PDFRequest) (*client.PDF, error) {
	pdf, err := s.renderer.DownloadPDF(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", req.FileName, err)
	}
	return pdf, nil
}

func pdfRequest(e *entry) client.PDFRequest {
	return client.PDFRequest{
		ResumeData:     e.Data.Clone(),
		Format:         e.Format,
		FileName:       e.FileName,
		HiddenSections: append(types.HiddenSections{}, e.HiddenSections...),
	}
}
