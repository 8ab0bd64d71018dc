// scrcr-server is the membership and attendance backend. It serves the
// JSON API and the gated page routes on the main port, and health plus
// metrics probes on a separate port.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/scrcr/scrcr-server/pkg/api"
	"github.com/scrcr/scrcr-server/pkg/audit"
	"github.com/scrcr/scrcr-server/pkg/config"
	"github.com/scrcr/scrcr-server/pkg/db"
	"github.com/scrcr/scrcr-server/pkg/observability"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx := context.Background()

	conn, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}

	if err := db.RunMigrations(ctx, conn); err != nil {
		conn.Close()
		return err
	}
	logger.Info("database migrations applied")

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		conn.Close()
		return err
	}

	server, err := api.NewServer(cfg, conn, logger, metrics)
	if err != nil {
		conn.Close()
		return err
	}

	handler := server.Handler()
	if providers != nil {
		handler = otelhttp.NewHandler(handler, "scrcr-server")
	}

	mainSrv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthSrv := &http.Server{
		Addr:        cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:     healthMux(conn, metrics),
		ReadTimeout: 10 * time.Second,
	}

	retention, err := audit.NewRetentionJob(audit.NewPostgresRecorder(conn),
		cfg.Audit.RetentionDays, cfg.Audit.PruneSchedule, logger.Named("retention"))
	if err != nil {
		conn.Close()
		return err
	}
	if err := retention.Start(); err != nil {
		conn.Close()
		return err
	}

	if metrics != nil {
		go collectDBStats(ctx, conn, metrics)
	}

	sm := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, mainSrv, healthSrv)
	sm.RegisterShutdownFunc(retention.Stop)
	sm.RegisterShutdownFunc(providers.Shutdown)
	sm.RegisterShutdownFunc(func(context.Context) error { return conn.Close() })

	var g errgroup.Group
	g.Go(func() error {
		logger.Infof("serving on %s", mainSrv.Addr)
		if err := mainSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("health and metrics on %s", healthSrv.Addr)
		if err := healthSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	shutdownErr := sm.WaitForShutdown()
	if err := g.Wait(); err != nil {
		return err
	}
	return shutdownErr
}

func healthMux(conn *sql.DB, metrics *observability.Metrics) http.Handler {
	checker := observability.NewHealthChecker(conn)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", checker.Liveness)
	mux.HandleFunc("/readyz", checker.Readiness)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	return mux
}

// collectDBStats mirrors pool statistics into gauges every 15 seconds.
func collectDBStats(ctx context.Context, conn *sql.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.CollectDBStats(conn)
		}
	}
}
