package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/metascan/internal/config"
	"github.com/MeKo-Tech/metascan/internal/mdns"
	"github.com/MeKo-Tech/metascan/internal/server"
	"github.com/MeKo-Tech/metascan/internal/version"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the scanning API",
	Long: `Start an HTTP server that scans uploads and streams descriptors.

The server provides the following endpoints:
  POST /scan/image      - Scan an uploaded image
  POST /scan/pdf        - Scan the images of an uploaded PDF
  GET  /descriptors     - List stored descriptors (requires --store)
  GET  /sessions        - List stored sessions (requires --store)
  GET  /ws/descriptors  - WebSocket stream of every scan result
  GET  /types           - Supported descriptor types
  GET  /health          - Health check endpoint
  GET  /metrics         - Prometheus metrics

Examples:
  metascan serve
  metascan serve --host 0.0.0.0 --port 3000 --store descriptors.db
  metascan serve --mqtt-broker tcp://localhost:1883 --mdns`,
	SilenceUsage: true,
	RunE:         runServe,
}

// applyServeFlags copies explicitly set server flags over cfg.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Server.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		cfg.Server.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-upload-size") {
		cfg.Server.MaxUploadMB, _ = f.GetInt("max-upload-size")
	}
	if f.Changed("timeout") {
		cfg.Server.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		cfg.Server.ShutdownTimeout, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("mdns") {
		cfg.Server.MDNS, _ = f.GetBool("mdns")
	}
	if f.Changed("rate-limit-enabled") {
		cfg.Server.RateLimitEnabled, _ = f.GetBool("rate-limit-enabled")
	}
	if f.Changed("requests-per-minute") {
		cfg.Server.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	}
	if f.Changed("requests-per-hour") {
		cfg.Server.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}
	if f.Changed("max-requests-per-day") {
		cfg.Server.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	}
	if f.Changed("max-data-per-day") {
		cfg.Server.MaxDataPerDay, _ = f.GetInt64("max-data-per-day")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyScannerFlags(cmd, cfg)
	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer func() { _ = st.Close() }()
	}
	pub, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()

	s, err := buildScanner(ctx, cfg, st, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize scanner: %w", err)
	}

	opts := []server.Option{server.WithPublisher(pub), server.WithLogger(slog.Default())}
	if st != nil {
		opts = append(opts, server.WithStore(st))
	}
	srv := server.NewServer(cfg.ToServerConfig(version.Version), s, opts...)

	timeout := time.Duration(cfg.Server.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}

	go func() {
		slog.Info("Starting metascan server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	if cfg.Server.MDNS {
		adv := mdns.New(slog.Default())
		if err := adv.Start(cfg.Server.Port, version.Version); err != nil {
			slog.Warn("mDNS advertisement failed", "error", err)
		}
		defer adv.Stop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}

	slog.Info("Graceful shutdown completed")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addScannerFlags(serveCmd.Flags())
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Bool("mdns", false, "advertise the server via mDNS/DNS-SD")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", 5000, "maximum requests per day per client")
	serveCmd.Flags().Int64("max-data-per-day", 100*1024*1024, "maximum data processed per day per client (bytes)")
}
