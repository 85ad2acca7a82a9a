package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/humexxx/tech9-parserdf/internal/config"
	"github.com/humexxx/tech9-parserdf/internal/db"
	"github.com/humexxx/tech9-parserdf/internal/llm"
	"github.com/humexxx/tech9-parserdf/internal/observability"
	"github.com/humexxx/tech9-parserdf/internal/parsing"
	"github.com/humexxx/tech9-parserdf/internal/rendering"
	"github.com/humexxx/tech9-parserdf/internal/resumes"
	"github.com/humexxx/tech9-parserdf/internal/server"
)

var (
	servePort   int
	serveMemory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the parse, download and resume storage endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "Keep resumes in memory instead of PostgreSQL")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	srv, err := buildServer(cmd.Context(), cfg, serveMemory)
	if err != nil {
		return err
	}
	return srv.Start()
}

// buildServer wires storage, the LLM providers and the PDF renderer into the API server
func buildServer(ctx context.Context, cfg *config.Config, memory bool) (*server.Server, error) {
	log := observability.Logger()

	var (
		repo     resumes.Repository
		shutdown []func()
	)
	if memory {
		log.Warn("using in-memory resume storage; data is lost on exit")
		repo = resumes.NewMemoryRepository()
	} else {
		database, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repo = database.Resumes()
		shutdown = append(shutdown, database.Close)
	}

	locator := rendering.NewBrowserLocator(rendering.LocatorConfig{
		ConfiguredPath: cfg.ChromePath,
		PackURL:        cfg.ChromiumPackURL,
		CacheDir:       cfg.ChromiumCacheDir,
	})

	srv, err := server.New(server.Config{
		Port:            cfg.Port,
		Production:      cfg.IsProduction(),
		DefaultProvider: cfg.Provider(),
		MaxUploadBytes:  cfg.MaxUploadBytes,
		RateLimit:       cfg.RateLimit(),
	}, server.Dependencies{
		Parser:     parsing.NewParser(llm.NewRegistry(cfg.Credentials())),
		Renderer:   rendering.NewRenderer(locator, cfg.RenderTimeout()),
		Resumes:    resumes.NewService(repo),
		OnShutdown: shutdown,
	})
	if err != nil {
		for _, fn := range shutdown {
			fn()
		}
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	return srv, nil
}

// openDatabase connects to PostgreSQL and applies pending migrations
func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required (or use --memory)")
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
