package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hypewave/cheermeter/infrastructure/detector"
	"github.com/hypewave/cheermeter/infrastructure/middleware"
	"github.com/hypewave/cheermeter/infrastructure/scoring"
	"github.com/hypewave/cheermeter/infrastructure/transport"
	"github.com/hypewave/cheermeter/internal/application"
	"github.com/hypewave/cheermeter/internal/logging"
	"github.com/hypewave/cheermeter/internal/ports"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	flag.Parse()

	cfg := application.DefaultConfig()
	if *configPath != "" {
		loaded, err := application.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	logger := logging.NewStdLogger()
	if cfg.Logging.Filename != "" {
		logger = logging.NewFileLogger(
			cfg.Logging.Filename,
			cfg.Logging.MaxSizeMB,
			cfg.Logging.MaxBackups,
			cfg.Logging.MaxAgeDays,
			cfg.Logging.Compress,
		)
	}

	scorerCfg := scoring.DefaultConfig()
	if !cfg.Scoring.IsZero() {
		if err := cfg.Scoring.Decode(&scorerCfg); err != nil {
			log.Fatalf("Failed to decode scoring config: %v", err)
		}
	}

	var expr ports.ExpressionDetector
	if cfg.Detector.URL != "" {
		d, err := detector.NewHTTPDetector(
			logger,
			cfg.Detector.URL,
			time.Duration(cfg.Detector.TimeoutMS)*time.Millisecond,
		)
		if err != nil {
			log.Fatalf("Failed to create expression detector: %v", err)
		}
		expr = d
	} else {
		logger.Warn("no detector URL configured, expression scoring disabled")
	}

	metrics := middleware.NewPrometheusMetrics()
	limiter := middleware.NewStreamRateLimiter(
		cfg.Ingest.AudioPerSecond,
		cfg.Ingest.VideoPerSecond,
		cfg.Ingest.Burst,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The hub needs the dispatcher for inbound traffic and the
	// dispatcher needs the hub for outbound; build the hub first with a
	// late-bound submitter.
	var dispatcher *application.Dispatcher
	hub := transport.NewHub(logger, submitterFunc(func(msg application.InboundMessage) bool {
		return dispatcher.Submit(msg)
	}))

	registry := application.NewRegistry(logger, hub, expr, limiter, metrics, scorerCfg)
	dispatcher = application.NewDispatcher(logger, registry, hub, metrics, cfg.Ingest.QueueSize)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	server := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("dispatcher running")
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("listening for clients", zap.String("addr", cfg.Server.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var metricsServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsMux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		metricsServer = &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics listener running", zap.String("addr", cfg.Server.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("client listener shutdown failed", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics listener shutdown failed", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("engine exited", err)
		return
	}
	logger.Info("engine stopped")
}

// submitterFunc adapts a function to the transport.Submitter interface.
type submitterFunc func(msg application.InboundMessage) bool

func (f submitterFunc) Submit(msg application.InboundMessage) bool { return f(msg) }
