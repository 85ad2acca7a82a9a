package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/humexxx/tech9-parserdf/internal/llm"
	"github.com/humexxx/tech9-parserdf/internal/observability"
	"github.com/humexxx/tech9-parserdf/internal/parsing"
	"github.com/humexxx/tech9-parserdf/internal/rendering"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

// Messages returned by the conversion endpoints
const (
	MsgParseFailed      = "Failed to parse resume"
	MsgPDFFailed        = "Failed to generate PDF"
	MsgPDFFieldsMissing = "resumeData, format, and fileName are required"
)

// ParseResumeResponse is the success body of POST /parse-resume
type ParseResumeResponse struct {
	Success bool                    `json:"success"`
	Data    *types.StructuredResume `json:"data"`
}

// DownloadPDFRequest is the body of POST /download-pdf
type DownloadPDFRequest struct {
	ResumeData     *types.StructuredResume `json:"resumeData" validate:"required"`
	Format         string                  `json:"format" validate:"required"`
	FileName       string                  `json:"fileName" validate:"required"`
	HiddenSections types.HiddenSections    `json:"hiddenSections,omitempty"`
}

// handleParseResume parses an uploaded PDF or Word document with the selected LLM provider
func (s *Server) handleParseResume(w http.ResponseWriter, r *http.Request) {
	provider := s.cfg.DefaultProvider
	if name := r.URL.Query().Get("provider"); name != "" {
		p, err := llm.ParseProvider(name)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		provider = p
	}

	file, err := s.readUpload(w, r)
	if err != nil {
		var invalid *ErrValidation
		if errors.As(err, &invalid) {
			s.errorResponse(w, http.StatusBadRequest, invalid.Message)
			return
		}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	resume, err := s.parser.Parse(r.Context(), provider, file)
	if err != nil {
		var fileErr *parsing.ValidationError
		if errors.As(err, &fileErr) {
			s.errorResponse(w, http.StatusBadRequest, fileErr.Message)
			return
		}
		observability.Logger().WithFields(logrus.Fields{
			"provider": provider,
			"file":     file.Name,
		}).WithError(err).Error("resume parsing failed")
		s.detailedErrorResponse(w, http.StatusInternalServerError, MsgParseFailed, parsing.NormalizeError(err), true)
		return
	}

	s.jsonResponse(w, http.StatusOK, ParseResumeResponse{Success: true, Data: resume})
}

// readUpload reads the multipart "file" field, capped at MaxUploadBytes.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*parsing.FileInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes + multipartOverhead); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, &ErrValidation{Field: "file", Message: s.tooLargeMessage()}
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, &ErrValidation{Field: "file", Message: parsing.MsgNoFile}
		}
		return nil, &ErrValidation{Field: "file", Message: fmt.Sprintf("Invalid form data: %v", err)}
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, header, err := r.FormFile("file")
	if err != nil {
		return nil, &ErrValidation{Field: "file", Message: parsing.MsgNoFile}
	}
	defer func() { _ = f.Close() }()

	if header.Size > s.cfg.MaxUploadBytes {
		return nil, &ErrValidation{Field: "file", Message: s.tooLargeMessage()}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	return &parsing.FileInput{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func (s *Server) tooLargeMessage() string {
	if s.cfg.MaxUploadBytes >= 1<<20 {
		return fmt.Sprintf("File exceeds the maximum size of %d MB", s.cfg.MaxUploadBytes>>20)
	}
	return fmt.Sprintf("File exceeds the maximum size of %d bytes", s.cfg.MaxUploadBytes)
}

// jsonBodyLimit caps JSON request bodies. A saved resume carries the upload
// base64 encoded, so the cap follows MaxUploadBytes.
func (s *Server) jsonBodyLimit() int64 {
	return s.cfg.MaxUploadBytes/3*4 + multipartOverhead
}

// decodeJSON reads a size-capped JSON body into v, answering 413 or 400 on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.jsonBodyLimit())
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body is too large")
			return false
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// handleDownloadPDF renders the submitted resume to a PDF attachment
func (s *Server) handleDownloadPDF(w http.ResponseWriter, r *http.Request) {
	var req DownloadPDFRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, MsgPDFFieldsMissing)
		return
	}

	layout, err := types.ParseLayout(req.Format)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	pdf, err := s.renderer.Render(r.Context(), req.ResumeData, layout, req.HiddenSections)
	if err != nil {
		observability.Logger().WithField("file", req.FileName).WithError(err).Error("pdf generation failed")
		s.detailedErrorResponse(w, http.StatusInternalServerError, MsgPDFFailed, err.Error(), false)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", rendering.ContentDisposition(rendering.PDFFileName(req.FileName)))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		observability.Logger().WithError(err).Warn("failed to write pdf response")
	}
}
