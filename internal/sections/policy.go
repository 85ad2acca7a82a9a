// Package sections decides which resume sections start out hidden after a parse
// and normalizes the label prefixes that parsed values may carry.
package sections

import (
	"regexp"
	"strings"

	"github.com/humexxx/tech9-parserdf/internal/types"
)

// Label prefixes that parsed or edited values may carry.
const (
	LocationLabel = "Location:"
	LinkedInLabel = "LinkedIn Profile:"
)

var placeholderRe = regexp.MustCompile(`^(\[[^\]]*\][\s,.;]*)+$`)

// StripLabel removes a known label prefix (case-insensitive) and surrounding whitespace.
func StripLabel(value string) string {
	v := strings.TrimSpace(value)
	for _, label := range []string{LocationLabel, LinkedInLabel} {
		if len(v) >= len(label) && strings.EqualFold(v[:len(label)], label) {
			return strings.TrimSpace(v[len(label):])
		}
	}
	return v
}

// IsBlank reports whether a value is empty, whitespace, a bare label or only
// bracketed placeholders such as "[Insert Name]".
func IsBlank(value string) bool {
	v := StripLabel(value)
	if v == "" {
		return true
	}
	return placeholderRe.MatchString(v)
}

func allBlank(values []string) bool {
	for _, v := range values {
		if !IsBlank(v) {
			return false
		}
	}
	return true
}

func experienceBlank(items []types.ExperienceItem) bool {
	for _, e := range items {
		if !allBlank([]string{e.Company, e.Location, e.Title, e.Period, e.Description, e.Technologies}) {
			return false
		}
	}
	return true
}

func educationBlank(items []types.EducationItem) bool {
	for _, e := range items {
		if !allBlank([]string{e.School, e.Location, e.Degree, e.Period}) {
			return false
		}
	}
	return true
}

// IsSectionEmpty reports whether a section carries no renderable content
func IsSectionEmpty(r *types.StructuredResume, s types.Section) bool {
	if r == nil {
		return true
	}
	switch s {
	case types.SectionName:
		return IsBlank(r.Name)
	case types.SectionLocation:
		return IsBlank(r.Location)
	case types.SectionLinkedIn:
		return IsBlank(r.LinkedIn)
	case types.SectionSummary:
		return allBlank(r.Summary)
	case types.SectionSkills:
		return allBlank(r.Skills)
	case types.SectionExperience:
		return experienceBlank(r.Experience)
	case types.SectionEducation:
		return educationBlank(r.Education)
	case types.SectionAwards:
		return IsBlank(r.Awards)
	case types.SectionProjects:
		return IsBlank(r.Projects)
	default:
		return true
	}
}

// DefaultHidden computes the hidden sections for a freshly parsed resume.
// Name is never included, whatever its value.
func DefaultHidden(r *types.StructuredResume) types.HiddenSections {
	hidden := types.HiddenSections{}
	for _, s := range types.HideableSections {
		if IsSectionEmpty(r, s) {
			hidden = append(hidden, s)
		}
	}
	return hidden
}
