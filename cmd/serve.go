package main

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

	"tablesync/internal/api"
	"tablesync/internal/bootstrap"
	"tablesync/internal/config"
	"tablesync/internal/lifecycle"
	"tablesync/internal/logging"
	"tablesync/internal/monitoring"
	"tablesync/internal/store"
	"tablesync/internal/transport"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a peer with its HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "API server port")
	serveCmd.Flags().Int("metrics-port", 9090, "Metrics server port")
	serveCmd.Flags().String("peer", "", "peer id (default: random)")
	serveCmd.Flags().String("transport", "none", "peer transport: none, websocket, amqp or kafka")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"server.port":    "port",
		"metrics.port":   "metrics-port",
		"peer_id":        "peer",
		"transport.kind": "transport",
	})
	if err != nil {
		return err
	}
	if cfg.PeerID == "" {
		cfg.PeerID = uuid.NewString()
	}
	logger := logging.New(os.Stdout, "tablesync", cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader, err := bootstrap.NewLoader(cfg.Bootstrap)
	if err != nil {
		return err
	}
	peers, err := openTransport(ctx, cfg.Transport, logger)
	if err != nil {
		return err
	}
	defer peers.Close()

	metrics := monitoring.NewMetrics(cfg.PeerID)
	monitor := monitoring.NewMonitor(cfg.PeerID)
	st := store.New(store.Options{
		PeerID:    cfg.PeerID,
		Transport: peers,
		Loader:    loader,
		Notifier:  lifecycle.LogNotifier{Logger: logger},
		Metrics:   metrics,
		Monitor:   monitor,
		Logger:    logger,
	})
	defer st.Close()

	if err := st.FetchInitialData(ctx); err != nil {
		// The API stays up; POST /api/v1/bootstrap retries the load.
		logger.Error("initial load failed", "action", "bootstrap", "error", err)
	}
	if err := st.Start(ctx); err != nil {
		return err
	}

	srv := api.NewServer(api.Options{
		Store:     st,
		Monitor:   monitor,
		Logger:    logger,
		TaxRate:   cfg.Billing.TaxRate,
		LateAfter: cfg.Kitchen.LateAfter,
	})
	srv.StartFeed(ctx)

	if cfg.Metrics.Enabled {
		go startMetricsServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path, metrics.Registry(), logger)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router,
	}
	return serveUntilDone(ctx, server, logger)
}

func openTransport(ctx context.Context, cfg config.TransportConfig, logger *slog.Logger) (transport.Transport, error) {
	switch cfg.Kind {
	case "websocket":
		return transport.DialWebSocket(ctx, cfg.RelayURL, logger)
	case "amqp":
		return transport.DialAMQP(cfg.AMQP, logger)
	case "kafka":
		return transport.DialKafka(cfg.Kafka, logger)
	default:
		return transport.Nop{}, nil
	}
}

// serveUntilDone runs server until ctx is cancelled, then shuts it down.
func serveUntilDone(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "action", "listen", "addr", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server", "action", "shutdown", "addr", server.Addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func startMetricsServer(ctx context.Context, port int, path string, reg *prometheus.Registry, logger *slog.Logger) {
	metricsRouter := gin.New()
	metricsRouter.GET(path, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}
	if err := serveUntilDone(ctx, metricsServer, logger); err != nil {
		logger.Error("metrics server failed", "action", "metrics", "error", err)
	}
}
