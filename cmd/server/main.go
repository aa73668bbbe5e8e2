// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/solobox/internal/api/connect"
	jukeboxv1 "github.com/osa030/solobox/internal/api/jukeboxv1"
	"github.com/osa030/solobox/internal/api/web"
	"github.com/osa030/solobox/internal/app/catalog"
	"github.com/osa030/solobox/internal/app/filter"
	"github.com/osa030/solobox/internal/app/session"
	"github.com/osa030/solobox/internal/infra/config"
	"github.com/osa030/solobox/internal/infra/library"
	"github.com/osa030/solobox/internal/infra/logger"
)

var (
	app        = kingpin.New("solobox-server", "solobox jukebox server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").Envar("SOLOBOX_CONFIG").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-tracks command
	listTracksCmd   = app.Command("list-tracks", "List the catalog and exit")
	listTracksQuery = listTracksCmd.Arg("query", "Only list tracks matching query").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-filters command
	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == listTracksCmd.FullCommand() {
		if err := listTracks(cfg, *listTracksQuery); err != nil {
			zlog.Error().Msgf("Failed to list tracks: %v", err)
			os.Exit(1)
		}
		return
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create catalog
	cat, err := catalog.NewFromConfig(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create catalog")
	}
	defer cat.Close()

	// Create session manager
	sessionMgr, err := session.NewManager(cfg, cat)
	if err != nil {
		return errors.Wrap(err, "failed to create session manager")
	}
	defer sessionMgr.Close()

	// Create HTTP mux
	mux := http.NewServeMux()

	// Register services
	playerPath, playerHandler := jukeboxv1.NewPlayerServiceHandler(
		apiconnect.NewPlayerService(sessionMgr, cfg),
		connect.WithInterceptors(apiconnect.NewAdminAuthInterceptor(cfg)),
	)
	mux.Handle(playerPath, playerHandler)
	mux.Handle(web.WebSocketPath, web.NewWebSocketHandler(sessionMgr, cfg))
	if _, ok := cat.(catalog.FileResolver); ok {
		mux.Handle(library.MediaPrefix, web.NewMediaHandler(sessionMgr))
	}

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start session
	if err := sessionMgr.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start session")
	}

	// Channel to capture server errors
	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")
	defer executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close session manager first to terminate active websocket streams
	sessionMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// listTracks prints the catalog.
func listTracks(cfg *config.Config, query string) error {
	ctx := context.Background()
	cat, err := catalog.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	tracks, err := cat.ListTracks(ctx)
	if err != nil {
		return err
	}
	if query != "" {
		tracks = cat.Search(query)
	}

	for _, t := range tracks {
		fmt.Printf("%-40s %6s  %s\n", t.ID, formatDuration(t.Duration), t.DisplayName)
	}
	fmt.Printf("%d tracks\n", len(tracks))
	return nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	fmt.Printf("  %-30s - %s [codes: %s] (always on)\n", "catalog_filter",
		"Rejects tracks that are not in the catalog", filter.CodeTrackNotFound)
	fmt.Printf("  %-30s - %s [codes: %s]\n", "duplicate_track_filter",
		"Rejects other versions of a track that is already queued", filter.CodeDuplicateTrack)
	registered := filter.GetRegistered()
	names := lo.Keys(registered)
	slices.Sort(names)
	for _, name := range names {
		f := registered[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
