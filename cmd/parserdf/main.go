// Package main provides the parserdf command line: the HTTP API server and
// client commands for converting resumes to PDF.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/humexxx/tech9-parserdf/internal/config"
	"github.com/humexxx/tech9-parserdf/internal/observability"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "parserdf",
	Short:        "Resume parser and PDF converter",
	Long:         "parserdf parses uploaded resumes into structured data with an LLM provider, stores them, and renders formatted PDFs.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file (environment variables take precedence)")
}

// loadConfig reads configuration and applies its logging settings
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	observability.Configure(os.Stderr, cfg.LogLevel, cfg.Env)
	return cfg, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
