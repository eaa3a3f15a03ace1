package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ngo-impact/impact-client/internal/api"
	"github.com/ngo-impact/impact-client/internal/logging"
	"github.com/ngo-impact/impact-client/internal/parser"
	"github.com/ngo-impact/impact-client/internal/session"
	"github.com/ngo-impact/impact-client/internal/storage"
	"github.com/ngo-impact/impact-client/internal/upload"
	"github.com/ngo-impact/impact-client/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Console server timeouts. Write stays open for SSE and WebSocket streams.
const (
	readTimeout     = 60 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)

var (
	portFlag int
	bindFlag string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local web console",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Console port (overrides config)")
	serveCmd.Flags().StringVar(&bindFlag, "bind", "", "Console bind address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if portFlag != 0 {
		cfg.Console.Port = portFlag
	}
	if bindFlag != "" {
		cfg.Console.BindAddress = bindFlag
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	svc, err := newClient()
	if err != nil {
		return err
	}

	fileStore, err := storage.NewLocalStore(cfg.Console.StagingDirectory)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	validator := upload.NewValidator(cfg.Upload.MaxFileSize)
	sessionMgr := session.NewManager(func() *upload.Controller {
		return upload.NewController(validator, svc, upload.NewPoller(svc, cfg.PollInterval(), cfg.Upload.StatusRetries))
	}, fileStore, cfg.Console.MaxSessions)
	defer sessionMgr.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessionMgr.RunCleanup(ctx, cfg.CleanupInterval(), cfg.SessionTimeout())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareConfig{
		EnableRequestLogging: cfg.Logging.EnableRequestLogging,
		EnableCORS:           cfg.Console.EnableCORS,
		AllowOrigins:         cfg.Console.AllowOrigins,
		BodyLimit:            cfg.Console.BodyLimit,
	})
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:        fileStore,
		Sessions:     sessionMgr,
		Service:      svc,
		Inspector:    parser.NewReportCSVInspector(),
		Validator:    validator,
		ServiceURL:   svc.BaseURL(),
		Version:      Version,
		SessionCount: sessionMgr.Count,
	}))

	embedded := web.HasEmbeddedFiles()
	if embedded {
		if err := web.RegisterStaticRoutes(e); err != nil {
			log.Warn().Err(err).Msg("Failed to register console page")
			embedded = false
		}
	}

	s := &http.Server{
		Addr:        cfg.GetServerAddr(),
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
	}

	printBanner(embedded)
	logging.Startup("console", map[string]string{
		"listen":      cfg.GetServerAddr(),
		"service":     svc.BaseURL(),
		"encoding":    cfg.Service.Encoding,
		"staging":     cfg.Console.StagingDirectory,
		"pollMs":      strconv.Itoa(cfg.Upload.PollIntervalMs),
		"maxSessions": strconv.Itoa(cfg.Console.MaxSessions),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down console")
	// ends open progress and WebSocket streams
	sessionMgr.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func printBanner(embedded bool) {
	mode := "API only"
	if embedded {
		mode = "Console (Embedded)"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           NGO Impact Console                              ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configFlag)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Service:   %-46s║\n", cfg.Service.BaseURL)
	fmt.Printf("║  Staging:   %-46s║\n", cfg.Console.StagingDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
