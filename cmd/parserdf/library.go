package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/humexxx/tech9-parserdf/internal/client"
	"github.com/humexxx/tech9-parserdf/internal/observability"
	"github.com/humexxx/tech9-parserdf/internal/pipeline"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

var (
	libraryAPIURL     string
	libraryFavorite   string
	libraryUnfavorite string
	libraryDelete     string
	libraryHide       string
	libraryRestore    string
	librarySection    string
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "List and manage saved resumes",
	Long: `Lists favorites and resumes from the last 30 days. Stale resumes are
cleaned up first. At most one change flag may be given per invocation.`,
	Args: cobra.NoArgs,
	RunE: runLibrary,
}

func init() {
	libraryCmd.Flags().StringVar(&libraryAPIURL, "api-url", "", "API base URL (overrides API_URL)")
	libraryCmd.Flags().StringVar(&libraryFavorite, "favorite", "", "Mark the resume with this ID as a favorite")
	libraryCmd.Flags().StringVar(&libraryUnfavorite, "unfavorite", "", "Remove the resume with this ID from favorites")
	libraryCmd.Flags().StringVar(&libraryDelete, "delete", "", "Delete the resume with this ID")
	libraryCmd.Flags().StringVar(&libraryHide, "hide", "", "Hide --section on the resume with this ID")
	libraryCmd.Flags().StringVar(&libraryRestore, "restore", "", "Restore --section on the resume with this ID")
	libraryCmd.Flags().StringVar(&librarySection, "section", "", "Section used by --hide and --restore")

	libraryCmd.MarkFlagsMutuallyExclusive("favorite", "unfavorite", "delete", "hide", "restore")
	rootCmd.AddCommand(libraryCmd)
}

// libraryAction is one change applied before listing
type libraryAction struct {
	Kind    string
	ID      string
	Section string
}

func runLibrary(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	apiURL := cfg.APIURL
	if libraryAPIURL != "" {
		apiURL = libraryAPIURL
	}

	var action libraryAction
	switch {
	case libraryFavorite != "":
		action = libraryAction{Kind: "favorite", ID: libraryFavorite}
	case libraryUnfavorite != "":
		action = libraryAction{Kind: "unfavorite", ID: libraryUnfavorite}
	case libraryDelete != "":
		action = libraryAction{Kind: "delete", ID: libraryDelete}
	case libraryHide != "":
		action = libraryAction{Kind: "hide", ID: libraryHide, Section: librarySection}
	case libraryRestore != "":
		action = libraryAction{Kind: "restore", ID: libraryRestore, Section: librarySection}
	}

	return manageLibrary(cmd.Context(), client.New(apiURL), action, cmd.OutOrStdout())
}

// manageLibrary loads the library, applies action when one is given and prints the result
func manageLibrary(ctx context.Context, store pipeline.LibraryStore, action libraryAction, out io.Writer) error {
	lib := pipeline.NewLibrary(store)
	if err := lib.Load(ctx); err != nil {
		return err
	}

	if action.Kind != "" {
		id, err := uuid.Parse(action.ID)
		if err != nil {
			return fmt.Errorf("invalid resume ID %q: %w", action.ID, err)
		}
		if err := applyLibraryAction(ctx, lib, id, action); err != nil {
			return err
		}
	}

	observability.NewPrinter(out).PrintLibrary(&types.ResumeList{
		Favorites: lib.Favorites(),
		Recent:    lib.Recent(),
	})
	return nil
}

func applyLibraryAction(ctx context.Context, lib *pipeline.Library, id uuid.UUID, action libraryAction) error {
	switch action.Kind {
	case "favorite":
		return lib.ToggleFavorite(ctx, id, true)
	case "unfavorite":
		return lib.ToggleFavorite(ctx, id, false)
	case "delete":
		return lib.Delete(ctx, id)
	case "hide", "restore":
		sec, err := types.ParseSection(action.Section)
		if err != nil {
			return err
		}
		if action.Kind == "hide" {
			return lib.HideSection(ctx, id, sec)
		}
		return lib.RestoreSection(ctx, id, sec)
	default:
		return fmt.Errorf("unknown library action %q", action.Kind)
	}
}
