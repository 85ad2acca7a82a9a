package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/humexxx/tech9-parserdf/internal/client"
	"github.com/humexxx/tech9-parserdf/internal/llm"
	"github.com/humexxx/tech9-parserdf/internal/observability"
	"github.com/humexxx/tech9-parserdf/internal/pipeline"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

var (
	convertFormat   string
	convertProvider string
	convertOutDir   string
	convertAPIURL   string
	convertVerbose  bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>...",
	Short: "Parse resumes and download them as formatted PDFs",
	Long: `Uploads each resume to the API for parsing, saves the parsed result,
and writes one formatted PDF per successfully parsed file into the output directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", string(types.DefaultLayout), "Layout for every file (skill-at-top or skill-at-bottom)")
	convertCmd.Flags().StringVarP(&convertProvider, "provider", "p", "", "LLM provider (grok, gemini or anthropic); empty uses the server default")
	convertCmd.Flags().StringVarP(&convertOutDir, "out", "o", ".", "Directory to write PDFs to")
	convertCmd.Flags().StringVar(&convertAPIURL, "api-url", "", "API base URL (overrides API_URL)")
	convertCmd.Flags().BoolVarP(&convertVerbose, "verbose", "v", false, "Print a summary of each parsed resume")

	rootCmd.AddCommand(convertCmd)
}

// convertOptions controls one convert run
type convertOptions struct {
	Files    []string
	Layout   types.Layout
	Provider llm.Provider
	OutDir   string
	Verbose  bool
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	layout, err := types.ParseLayout(convertFormat)
	if err != nil {
		return err
	}
	var provider llm.Provider
	if convertProvider != "" {
		if provider, err = llm.ParseProvider(convertProvider); err != nil {
			return err
		}
	}

	apiURL := cfg.APIURL
	if convertAPIURL != "" {
		apiURL = convertAPIURL
	}

	written, err := convertFiles(cmd.Context(), client.New(apiURL), convertOptions{
		Files:    args,
		Layout:   layout,
		Provider: provider,
		OutDir:   convertOutDir,
		Verbose:  convertVerbose,
	}, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if len(written) < len(args) {
		return fmt.Errorf("%d of %d files failed", len(args)-len(written), len(args))
	}
	return nil
}

// convertFiles runs the files through a session against api and writes the
// PDFs of every entry that parsed. It returns the paths written.
func convertFiles(ctx context.Context, api *client.Client, opts convertOptions, out io.Writer) ([]string, error) {
	log := observability.Logger()
	printer := observability.NewPrinter(out)

	session, err := pipeline.NewSession(pipeline.Config{
		Provider: opts.Provider,
		OnEvent: func(ev pipeline.Event) {
			switch ev.Type {
			case pipeline.EventStatus:
				printer.PrintFileStatus(ev.Entry.FileName, string(ev.Entry.Status), ev.Entry.ErrorMessage)
			case pipeline.EventSaved:
				printer.PrintFileStatus(ev.Entry.FileName, "saved", "")
			case pipeline.EventSaveFailed:
				log.WithError(ev.Err).WithField("file", ev.Entry.FileName).Warn("autosave failed")
			}
		},
	}, pipeline.Dependencies{Parser: api, Store: api, Renderer: api})
	if err != nil {
		return nil, err
	}
	defer session.Wait()

	files := make([]pipeline.File, 0, len(opts.Files))
	for _, path := range opts.Files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		name := filepath.Base(path)
		if !session.Accepts(name, int64(len(data))) {
			log.WithField("file", path).Warn("skipping file: only PDF, DOC and DOCX up to 10MB are accepted")
			continue
		}
		files = append(files, pipeline.File{Name: name, Data: data})
	}

	if _, err := session.Intake(files); err != nil {
		return nil, err
	}
	if err := session.ContinueToFormats(); err != nil {
		return nil, err
	}
	if err := session.SelectBulk(opts.Layout); err != nil {
		return nil, err
	}
	if err := session.Preview(ctx); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	for i, e := range session.Entries() {
		if e.Status != pipeline.StatusCompleted {
			continue
		}
		if opts.Verbose {
			printer.PrintResume(e.FileName, e.Data, e.HiddenSections)
		}
		pdf, err := session.Download(ctx, i)
		if err != nil {
			log.WithError(err).WithField("file", e.FileName).Error("download failed")
			continue
		}
		path := outputPath(opts.OutDir, pdf.FileName, e.FileName)
		if err := os.WriteFile(path, pdf.Data, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		printer.Printf("Wrote %s\n", path)
		written = append(written, path)
	}
	return written, nil
}

// outputPath places the server-suggested name inside dir, dropping any
// directory part it carries. An unusable name falls back to the entry's name.
func outputPath(dir, suggested, entryName string) string {
	name := filepath.Base(suggested)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		name = strings.TrimSuffix(filepath.Base(entryName), filepath.Ext(entryName)) + ".pdf"
	}
	return filepath.Join(dir, name)
}
