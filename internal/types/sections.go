package types

import (
	"encoding/json"
	"fmt"
)

// Section identifies a renderable resume section
type Section string

// Section keys. SectionName is mandatory and can never be hidden.
const (
	SectionName       Section = "name"
	SectionLocation   Section = "location"
	SectionLinkedIn   Section = "linkedIn"
	SectionSummary    Section = "summary"
	SectionSkills     Section = "skills"
	SectionExperience Section = "experience"
	SectionEducation  Section = "education"
	SectionAwards     Section = "awards"
	SectionProjects   Section = "projects"
)

// HideableSections lists every section that may be hidden, in document order
var HideableSections = []Section{
	SectionLocation,
	SectionLinkedIn,
	SectionSummary,
	SectionSkills,
	SectionExperience,
	SectionEducation,
	SectionAwards,
	SectionProjects,
}

// ParseSection validates a section key
func ParseSection(s string) (Section, error) {
	sec := Section(s)
	if sec == SectionName || sec.Hideable() {
		return sec, nil
	}
	return "", fmt.Errorf("unknown section %q", s)
}

// Hideable reports whether the section may be suppressed from rendering
func (s Section) Hideable() bool {
	for _, h := range HideableSections {
		if h == s {
			return true
		}
	}
	return false
}

// HiddenSections is the set of sections suppressed from rendering.
// The zero value is an empty set. It never contains SectionName.
type HiddenSections []Section

// NewHiddenSections builds a normalized set from raw keys, dropping
// unknown keys, duplicates and the mandatory name section.
func NewHiddenSections(keys ...string) HiddenSections {
	set := make(map[Section]bool, len(keys))
	for _, k := range keys {
		if s := Section(k); s.Hideable() {
			set[s] = true
		}
	}
	out := HiddenSections{}
	for _, s := range HideableSections {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

// Normalize returns the set in document order without duplicates or invalid keys
func (h HiddenSections) Normalize() HiddenSections {
	return NewHiddenSections(h.Strings()...)
}

// Contains reports whether the section is hidden
func (h HiddenSections) Contains(s Section) bool {
	for _, x := range h {
		if x == s {
			return true
		}
	}
	return false
}

// Hide returns a copy with the section added. Hiding name is a no-op.
func (h HiddenSections) Hide(s Section) HiddenSections {
	return NewHiddenSections(append(h.Strings(), string(s))...)
}

// Restore returns a copy with the section removed
func (h HiddenSections) Restore(s Section) HiddenSections {
	out := HiddenSections{}
	for _, x := range h.Normalize() {
		if x != s {
			out = append(out, x)
		}
	}
	return out
}

// Strings returns the raw keys
func (h HiddenSections) Strings() []string {
	out := make([]string, 0, len(h))
	for _, s := range h {
		out = append(out, string(s))
	}
	return out
}

// MarshalJSON encodes a nil set as an empty array
func (h HiddenSections) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Strings())
}

// UnmarshalJSON decodes and normalizes the set
func (h *HiddenSections) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*h = NewHiddenSections(keys...)
	return nil
}
