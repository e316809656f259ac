package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/darklens/internal/logging"
	"github.com/ppiankov/darklens/internal/render"
	"github.com/ppiankov/darklens/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scan API over HTTP and WebSocket",
	Long: `Serve exposes scanning to a browser front end:

  POST /api/v1/scans/upload   multipart form, field "file"
  POST /api/v1/scans/url      {"url": "example.com"}
  GET  /api/v1/scans/ws       WebSocket with live progress phases
  GET  /healthz

Example:
  darklens serve --addr 127.0.0.1:8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if verbose {
		cfg.Output.Verbose = true
	}

	// The server always logs requests, so info level is the floor
	level := logging.LevelInfo
	if cfg.Output.Verbose {
		level = logging.LevelDebug
	}
	logger := logging.NewJSONLogger(os.Stderr, "darklens", level)

	acquirer, err := buildAcquirer(cfg, logger)
	if err != nil {
		return err
	}
	analyzer, err := buildAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(server.Config{
		ListenAddr:         cfg.Server.Addr,
		Acquirer:           acquirer,
		Analyzer:           analyzer,
		Renderer:           render.NewRenderer(version, true),
		Provider:           analyzer.ProviderName(),
		MaxUploadBytes:     cfg.Upload.MaxBytes,
		MaxConcurrentScans: cfg.Server.MaxConcurrentScans,
		QueueDepth:         cfg.Server.QueueDepth,
		Logger:             logger.With(logging.F("component", "server")),
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", logging.F("addr", cfg.Server.Addr), logging.F("provider", analyzer.ProviderName()))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
