package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/humexxx/tech9-parserdf/internal/resumes"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete stale resumes",
	Long:  "Deletes resumes that are not favorites and were created more than 90 days ago.",
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	n, err := resumes.NewService(database.Resumes()).Cleanup(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d stale resumes\n", n)
	return nil
}
