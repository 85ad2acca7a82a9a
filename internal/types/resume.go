// Package types provides type definitions for structured data used throughout the resume converter.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StructuredResume is the normalized representation of a parsed resume document.
// Absent values are empty strings or empty slices; nothing is required.
type StructuredResume struct {
	Name       string           `json:"name"`
	Location   string           `json:"location"`
	LinkedIn   string           `json:"linkedIn"`
	Summary    Summary          `json:"summary"`
	Experience []ExperienceItem `json:"experience"`
	Education  []EducationItem  `json:"education"`
	Awards     string           `json:"awards"`
	Projects   string           `json:"projects"`
	Skills     []string         `json:"skills"`
}

// Clone returns a deep copy; the copy shares no slices with r.
func (r *StructuredResume) Clone() *StructuredResume {
	if r == nil {
		return nil
	}
	out := *r
	out.Summary = cloneSlice(r.Summary)
	out.Experience = cloneSlice(r.Experience)
	out.Education = cloneSlice(r.Education)
	out.Skills = cloneSlice(r.Skills)
	return &out
}

// cloneSlice copies s, keeping nil and empty distinct
func cloneSlice[S ~[]E, E any](s S) S {
	if s == nil {
		return nil
	}
	return append(make(S, 0, len(s)), s...)
}

// ExperienceItem is one work experience entry
type ExperienceItem struct {
	Company      string `json:"company"`
	Location     string `json:"location"`
	Title        string `json:"title"`
	Period       string `json:"period"`
	Description  string `json:"description"`
	Technologies string `json:"technologies"`
}

// EducationItem is one education entry
type EducationItem struct {
	School   string `json:"school"`
	Location string `json:"location"`
	Degree   string `json:"degree"`
	Period   string `json:"period"`
}

// Summary holds ordered summary points. A single paragraph is a one-element summary.
type Summary []string

// UnmarshalJSON accepts either a list of points or a bare paragraph string.
func (s *Summary) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}

	var points []string
	if err := json.Unmarshal(data, &points); err == nil {
		*s = points
		return nil
	}

	var paragraph string
	if err := json.Unmarshal(data, &paragraph); err != nil {
		return fmt.Errorf("summary must be a string or a list of strings: %w", err)
	}
	if paragraph == "" {
		*s = Summary{}
		return nil
	}
	*s = Summary{paragraph}
	return nil
}

// Layout is the PDF layout variant
type Layout string

// Layout constants define the supported layout variants
const (
	// LayoutSkillsTop places the skills block right after the summary
	LayoutSkillsTop Layout = "skill-at-top"
	// LayoutSkillsBottom places the skills block at the end of the document
	LayoutSkillsBottom Layout = "skill-at-bottom"
)

// DefaultLayout is used when no layout was selected for a file
const DefaultLayout = LayoutSkillsTop

// ParseLayout validates a layout tag
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case LayoutSkillsTop, LayoutSkillsBottom:
		return Layout(s), nil
	default:
		return "", fmt.Errorf("unknown layout %q", s)
	}
}

// ResumeRecord is a persisted resume
type ResumeRecord struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	ResumeData       StructuredResume `json:"resumeData"`
	OriginalDocument string           `json:"originalDocument"`
	Format           Layout           `json:"format"`
	HiddenSections   HiddenSections   `json:"hiddenSections"`
	IsFavorite       bool             `json:"isFavorite"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// ResumeInput carries the fields accepted by a save (insert or full update)
type ResumeInput struct {
	Name             string           `json:"name"`
	ResumeData       StructuredResume `json:"resumeData"`
	OriginalDocument string           `json:"originalDocument"`
	Format           Layout           `json:"format"`
	HiddenSections   HiddenSections   `json:"hiddenSections,omitempty"`
	IsFavorite       *bool            `json:"isFavorite,omitempty"`
}

// ResumePatch is a partial update; nil fields are left untouched
type ResumePatch struct {
	Name           *string           `json:"name,omitempty"`
	ResumeData     *StructuredResume `json:"resumeData,omitempty"`
	Format         *Layout           `json:"format,omitempty"`
	HiddenSections *HiddenSections   `json:"hiddenSections,omitempty"`
	IsFavorite     *bool             `json:"isFavorite,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p ResumePatch) IsEmpty() bool {
	return p.Name == nil && p.ResumeData == nil && p.Format == nil && p.HiddenSections == nil && p.IsFavorite == nil
}

// ResumeList is the grouped listing of persisted resumes
type ResumeList struct {
	Favorites []ResumeRecord `json:"favorites"`
	Recent    []ResumeRecord `json:"recent"`
}
