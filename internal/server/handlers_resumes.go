package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/humexxx/tech9-parserdf/internal/observability"
	"github.com/humexxx/tech9-parserdf/internal/resumes"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

// Messages returned by the persistence endpoints
const (
	MsgResumeNotFound = "Resume not found"
	MsgFetchFailed    = "Failed to fetch resumes"
	MsgSaveFailed     = "Failed to save resume"
	MsgUpdateFailed   = "Failed to update resume"
	MsgDeleteFailed   = "Failed to delete resume"
	MsgCleanupFailed  = "Failed to cleanup resumes"
)

// SaveResumeRequest is the body of POST /resumes. A present id updates that record.
type SaveResumeRequest struct {
	ID               string                 `json:"id,omitempty" validate:"omitempty,uuid"`
	Name             string                 `json:"name" validate:"required"`
	ResumeData       types.StructuredResume `json:"resumeData"`
	OriginalDocument string                 `json:"originalDocument"`
	Format           string                 `json:"format" validate:"omitempty,oneof=skill-at-top skill-at-bottom"`
	HiddenSections   types.HiddenSections   `json:"hiddenSections,omitempty"`
	IsFavorite       *bool                  `json:"isFavorite,omitempty"`
}

func (r *SaveResumeRequest) input() types.ResumeInput {
	return types.ResumeInput{
		Name:             r.Name,
		ResumeData:       r.ResumeData,
		OriginalDocument: r.OriginalDocument,
		Format:           types.Layout(r.Format),
		HiddenSections:   r.HiddenSections,
		IsFavorite:       r.IsFavorite,
	}
}

// CleanupResponse is the body of POST /resumes/cleanup
type CleanupResponse struct {
	Success      bool  `json:"success"`
	DeletedCount int64 `json:"deletedCount"`
}

// SuccessResponse acknowledges an operation without a payload
type SuccessResponse struct {
	Success bool `json:"success"`
}

// handleListResumes returns favorites and the recent window
func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	list, err := s.resumes.ListAll(r.Context())
	if err != nil {
		s.storeError(w, err, MsgFetchFailed)
		return
	}
	s.jsonResponse(w, http.StatusOK, list)
}

// handleSaveResume creates a record, or replaces one when the body carries an id
func (s *Server) handleSaveResume(w http.ResponseWriter, r *http.Request) {
	var req SaveResumeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid resume: "+err.Error())
		return
	}

	var id *uuid.UUID
	if req.ID != "" {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, (&ErrInvalidID{Value: req.ID}).Error())
			return
		}
		id = &parsed
	}

	rec, err := s.resumes.Save(r.Context(), req.input(), id)
	if err != nil {
		s.storeError(w, err, MsgSaveFailed)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleGetResume returns a single record
func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	rec, err := s.resumes.Get(r.Context(), id)
	if err != nil {
		s.storeError(w, err, MsgFetchFailed)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleUpdateResume applies a partial update (favorite toggle, edits, layout, visibility)
func (s *Server) handleUpdateResume(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var patch types.ResumePatch
	if !s.decodeJSON(w, r, &patch) {
		return
	}
	if patch.IsEmpty() {
		s.errorResponse(w, http.StatusBadRequest, "No fields to update")
		return
	}
	if patch.Format != nil {
		if _, err := types.ParseLayout(string(*patch.Format)); err != nil {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	rec, err := s.resumes.Update(r.Context(), id, patch)
	if err != nil {
		s.storeError(w, err, MsgUpdateFailed)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleDeleteResume removes a record permanently
func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.resumes.Delete(r.Context(), id); err != nil {
		s.storeError(w, err, MsgDeleteFailed)
		return
	}
	s.jsonResponse(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleCleanupResumes deletes non-favorites past the retention window
func (s *Server) handleCleanupResumes(w http.ResponseWriter, r *http.Request) {
	n, err := s.resumes.Cleanup(r.Context())
	if err != nil {
		s.storeError(w, err, MsgCleanupFailed)
		return
	}
	s.jsonResponse(w, http.StatusOK, CleanupResponse{Success: true, DeletedCount: n})
}

// pathID parses the {id} path value, writing a 400 when malformed.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, (&ErrInvalidID{Value: raw}).Error())
		return uuid.Nil, false
	}
	return id, true
}

// storeError maps persistence failures: unknown ids are 404, the rest 500.
func (s *Server) storeError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, resumes.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, MsgResumeNotFound)
		return
	}
	observability.Logger().WithError(err).Error(message)
	s.errorResponse(w, HTTPStatus(err), message)
}
