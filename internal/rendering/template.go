package rendering

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"sync"

	"github.com/humexxx/tech9-parserdf/internal/sections"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

//go:embed templates/resume.html.tmpl
var templateFS embed.FS

var (
	resumeTmpl     *template.Template
	resumeTmplErr  error
	resumeTmplOnce sync.Once
)

func loadTemplate() (*template.Template, error) {
	resumeTmplOnce.Do(func() {
		resumeTmpl, resumeTmplErr = template.ParseFS(templateFS, "templates/resume.html.tmpl")
	})
	return resumeTmpl, resumeTmplErr
}

type experienceView struct {
	Company      string
	Location     string
	Title        string
	Period       string
	Description  []string
	Technologies string
}

type educationView struct {
	School   string
	Location string
	Degree   string
	Period   string
}

// documentView is the template data after visibility and emptiness filtering.
// Empty slices and strings are skipped by the template.
type documentView struct {
	Name         string
	Location     string
	LinkedIn     string
	Summary      []string
	Skills       []string
	SkillsTop    bool
	SkillsBottom bool
	Experience   []experienceView
	Education    []educationView
	Awards       []string
	Projects     []string
}

// BuildHTML renders the resume document for the given layout. Hidden sections
// are omitted (name is always shown) and label prefixes are stripped.
func BuildHTML(resume *types.StructuredResume, layout types.Layout, hidden types.HiddenSections) (string, error) {
	if resume == nil {
		return "", &TemplateError{Message: "resume data is required"}
	}

	tmpl, err := loadTemplate()
	if err != nil {
		return "", &TemplateError{Message: "failed to parse template", Cause: err}
	}

	view := newDocumentView(resume, layout, hidden.Normalize())

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", &TemplateError{Message: "failed to execute template", Cause: err}
	}
	return buf.String(), nil
}

func newDocumentView(r *types.StructuredResume, layout types.Layout, hidden types.HiddenSections) documentView {
	show := func(s types.Section) bool {
		return !hidden.Contains(s) && !sections.IsSectionEmpty(r, s)
	}

	view := documentView{Name: sections.StripLabel(r.Name)}
	if show(types.SectionLocation) {
		view.Location = sections.StripLabel(r.Location)
	}
	if show(types.SectionLinkedIn) {
		view.LinkedIn = sections.StripLabel(r.LinkedIn)
	}
	if show(types.SectionSummary) {
		view.Summary = nonBlank(r.Summary)
	}
	if show(types.SectionSkills) {
		view.Skills = nonBlank(r.Skills)
		if layout == types.LayoutSkillsBottom {
			view.SkillsBottom = true
		} else {
			view.SkillsTop = true
		}
	}
	if show(types.SectionExperience) {
		for _, e := range r.Experience {
			if sections.IsBlank(e.Company) && sections.IsBlank(e.Title) && sections.IsBlank(e.Description) {
				continue
			}
			view.Experience = append(view.Experience, experienceView{
				Company:      strings.TrimSpace(e.Company),
				Location:     sections.StripLabel(e.Location),
				Title:        strings.TrimSpace(e.Title),
				Period:       strings.TrimSpace(e.Period),
				Description:  splitLines(e.Description),
				Technologies: strings.TrimSpace(e.Technologies),
			})
		}
	}
	if show(types.SectionEducation) {
		for _, e := range r.Education {
			if sections.IsBlank(e.School) && sections.IsBlank(e.Degree) {
				continue
			}
			view.Education = append(view.Education, educationView{
				School:   strings.TrimSpace(e.School),
				Location: sections.StripLabel(e.Location),
				Degree:   strings.TrimSpace(e.Degree),
				Period:   strings.TrimSpace(e.Period),
			})
		}
	}
	if show(types.SectionAwards) {
		view.Awards = splitLines(r.Awards)
	}
	if show(types.SectionProjects) {
		view.Projects = splitLines(r.Projects)
	}
	return view
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if !sections.IsBlank(v) {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}

// splitLines breaks free text into display lines, dropping bullet markers.
func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-•*")
		line = strings.TrimSpace(line)
		if line != "" && !sections.IsBlank(line) {
			out = append(out, line)
		}
	}
	return out
}
