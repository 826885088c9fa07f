package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/genai"

	"github.com/clipsmith/clipsmith/internal/agent"
	"github.com/clipsmith/clipsmith/internal/config"
	"github.com/clipsmith/clipsmith/internal/database"
	"github.com/clipsmith/clipsmith/internal/ffmpeg"
	internalhttp "github.com/clipsmith/clipsmith/internal/http"
	"github.com/clipsmith/clipsmith/internal/http/handlers"
	"github.com/clipsmith/clipsmith/internal/media"
	"github.com/clipsmith/clipsmith/internal/models"
	"github.com/clipsmith/clipsmith/internal/pipeline"
	"github.com/clipsmith/clipsmith/internal/repository"
	"github.com/clipsmith/clipsmith/internal/service"
	"github.com/clipsmith/clipsmith/internal/storage"
	"github.com/clipsmith/clipsmith/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the clipsmith server",
	Long: `Start the clipsmith HTTP server and API.

The server provides:
- REST API for managing editing sessions and their versions
- Conversational agent endpoint for applying edits
- Health check endpoint
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("database", "clipsmith.db", "Database DSN")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("database.dsn", serveCmd.Flags().Lookup("database"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := models.Migrate(db.DB); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Repositories and services
	sessionService := service.NewSessionService(
		repository.NewSessionRepository(db.DB),
		repository.NewSessionStateRepository(db.DB),
		repository.NewSessionVersionRepository(db.DB),
	).WithLogger(logger)

	featureService := service.NewFeatureService(cfg.Storage.FeatureConfigPath, logger)

	// Gemini client, shared by the agent and TTS
	if cfg.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required (set CLIPSMITH_GEMINI_API_KEY)")
	}
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("creating Gemini client: %w", err)
	}

	// Artifact storage
	store, err := storage.NewGCSStore(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("initializing artifact storage: %w", err)
	}
	defer store.Close()

	// Rendering backends
	detector := ffmpeg.NewBinaryDetector(cfg.FFmpeg.BinaryPath, cfg.FFmpeg.ProbePath)
	if info, err := detector.Detect(ctx); err != nil {
		logger.Warn("ffmpeg not detected, rendering will fail", slog.String("error", err.Error()))
	} else {
		logger.Info("detected ffmpeg", slog.String("version", info.Version), slog.String("path", info.FFmpegPath))
	}

	tempDir := cfg.Storage.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	editor := media.NewEditor(store, detector, cfg.FFmpeg, tempDir, logger)
	synthesizer := media.NewGeminiSynthesizer(genaiClient, cfg.Gemini, store, tempDir, logger)

	// Pipeline, tools, agent
	engine := pipeline.NewEngine(synthesizer, editor, featureService.BrandColorForVideo, logger)
	tools := agent.NewTools(sessionService, engine, logger)
	editAgent := agent.NewAgent(genaiClient, tools, cfg.Gemini, cfg.Agent.MaxToolRounds, featureService.PromptFor, logger)

	// Scheduled temp-file cleanup
	if cfg.Cleanup.Enabled {
		cleanup := service.NewCleanupService(tempDir, cfg.Cleanup.TempMaxAge, logger)
		if err := cleanup.Start(cfg.Cleanup.Cron); err != nil {
			return fmt.Errorf("starting cleanup service: %w", err)
		}
		defer cleanup.Stop()
	}

	// HTTP server
	serverConfig := internalhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
	}
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	handlers.NewHealthHandler(version.Version).WithDB(db.DB).Register(server.API())
	handlers.NewSessionHandler(sessionService).Register(server.API())
	handlers.NewFeatureHandler(featureService).Register(server.API())
	handlers.NewChatHandler(editAgent, cfg.Agent.AppName).Register(server.API())

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting clipsmith server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}
