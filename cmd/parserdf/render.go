package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/humexxx/tech9-parserdf/internal/config"
	"github.com/humexxx/tech9-parserdf/internal/rendering"
	"github.com/humexxx/tech9-parserdf/internal/schemas"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

var (
	renderFormat string
	renderHide   []string
	renderOut    string
	renderHTML   bool
)

var renderCmd = &cobra.Command{
	Use:   "render <resume.json>",
	Short: "Render a structured resume JSON file locally",
	Long: `Validates a structured resume document and renders it to PDF with a local
headless Chrome, or to the intermediate HTML document with --html.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", string(types.DefaultLayout), "Layout (skill-at-top or skill-at-bottom)")
	renderCmd.Flags().StringSliceVar(&renderHide, "hide", nil, "Sections to hide (comma separated)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output path (defaults to <name>_Resume.pdf next to the input)")
	renderCmd.Flags().BoolVar(&renderHTML, "html", false, "Write the HTML document instead of a PDF")

	rootCmd.AddCommand(renderCmd)
}

// renderOptions controls one local render
type renderOptions struct {
	Input  string
	Output string
	Layout types.Layout
	Hidden types.HiddenSections
	HTML   bool
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout, err := types.ParseLayout(renderFormat)
	if err != nil {
		return err
	}
	for _, key := range renderHide {
		if _, err := types.ParseSection(strings.TrimSpace(key)); err != nil {
			return err
		}
	}

	path, err := renderFile(cmd.Context(), cfg, renderOptions{
		Input:  args[0],
		Output: renderOut,
		Layout: layout,
		Hidden: types.NewHiddenSections(renderHide...),
		HTML:   renderHTML,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

// renderFile renders opts.Input and returns the path written
func renderFile(ctx context.Context, cfg *config.Config, opts renderOptions) (string, error) {
	resume, err := readResume(opts.Input)
	if err != nil {
		return "", err
	}

	out := opts.Output
	if out == "" {
		out = filepath.Join(filepath.Dir(opts.Input), defaultRenderName(opts.Input, opts.HTML))
	}

	var data []byte
	if opts.HTML {
		html, err := rendering.BuildHTML(resume, opts.Layout, opts.Hidden)
		if err != nil {
			return "", err
		}
		data = []byte(html)
	} else {
		locator := rendering.NewBrowserLocator(rendering.LocatorConfig{
			ConfiguredPath: cfg.ChromePath,
			PackURL:        cfg.ChromiumPackURL,
			CacheDir:       cfg.ChromiumCacheDir,
		})
		data, err = rendering.NewRenderer(locator, cfg.RenderTimeout()).Render(ctx, resume, opts.Layout, opts.Hidden)
		if err != nil {
			return "", err
		}
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	return out, nil
}

// readResume loads a structured resume after checking it against the schema
func readResume(path string) (*types.StructuredResume, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := schemas.ValidateStructuredResume(content); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var resume types.StructuredResume
	if err := json.Unmarshal(content, &resume); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &resume, nil
}

func defaultRenderName(input string, html bool) string {
	name := rendering.PDFFileName(filepath.Base(input))
	if html {
		return strings.TrimSuffix(name, ".pdf") + ".html"
	}
	return name
}
