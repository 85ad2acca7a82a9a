// Package observability provides the shared structured logger and formatted CLI output.
package observability

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/humexxx/tech9-parserdf/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI. It is safe for concurrent use;
// each call writes its output as one unit.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Printf writes a formatted line of free text.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// printBox prints a formatted box with a title and content. p.mu must be held.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintFileStatus writes one line for a file's processing status.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintFileStatus(fileName, status, message string) {
	icon := "•"
	switch status {
	case "loading":
		icon = "…"
	case "completed":
		icon = "✓"
	case "error":
		icon = "✗"
	case "saved":
		icon = "↑"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if message != "" {
		fmt.Fprintf(p.out, "%s %-32s %s: %s\n", icon, truncate(fileName, 32), status, message)
		return
	}
	fmt.Fprintf(p.out, "%s %-32s %s\n", icon, truncate(fileName, 32), status)
}

// PrintResume outputs a summary of a parsed resume and its hidden sections.
func (p *Printer) PrintResume(fileName string, resume *types.StructuredResume, hidden types.HiddenSections) {
	if resume == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:       %s\n", resume.Name))
	if resume.Location != "" {
		sb.WriteString(fmt.Sprintf("Location:   %s\n", resume.Location))
	}
	sb.WriteString(fmt.Sprintf("Experience: %d entries\n", len(resume.Experience)))
	sb.WriteString(fmt.Sprintf("Education:  %d entries\n", len(resume.Education)))

	if len(resume.Skills) > 0 {
		count := min(len(resume.Skills), maxItemsToShow)
		sb.WriteString(fmt.Sprintf("Skills:     %s", strings.Join(resume.Skills[:count], ", ")))
		if len(resume.Skills) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf(" (+%d)", len(resume.Skills)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	for i, exp := range resume.Experience {
		if i == maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(resume.Experience)-maxItemsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("  • %s, %s (%s)\n", exp.Title, exp.Company, exp.Period))
	}

	if len(hidden) > 0 {
		sb.WriteString(fmt.Sprintf("Hidden:     %s\n", strings.Join(hidden.Strings(), ", ")))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.printBox(fileName, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintLibrary outputs saved resumes grouped into favorites and recent.
func (p *Printer) PrintLibrary(list *types.ResumeList) {
	if list == nil {
		return
	}

	var sb strings.Builder
	writeGroup := func(title string, records []types.ResumeRecord) {
		sb.WriteString(fmt.Sprintf("%s (%d)\n", title, len(records)))
		if len(records) == 0 {
			sb.WriteString("  none\n")
			return
		}
		for _, r := range records {
			sb.WriteString(fmt.Sprintf("  %s  %-24s %s\n", r.ID.String()[:8], truncate(r.Name, 24), r.UpdatedAt.Format(time.DateOnly)))
		}
	}

	writeGroup("Favorites", list.Favorites)
	sb.WriteString("\n")
	writeGroup("Recent", list.Recent)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.printBox("SAVED RESUMES", strings.TrimSuffix(sb.String(), "\n"))
}
