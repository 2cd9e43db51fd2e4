// Command mme runs the standalone EPS Mobility Management Entity core: the
// Attach Procedure Engine wired to its Context Store, admin
// HTTP surface, and Prometheus metrics, grounded on nf/amf/cmd/main.go's
// wiring shape from the reference 5G core.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oss-emm/epc-mme/internal/adminserver"
	"github.com/oss-emm/epc-mme/internal/config"
	"github.com/oss-emm/epc-mme/internal/emm/attach"
	emmcontext "github.com/oss-emm/epc-mme/internal/emm/context"
	"github.com/oss-emm/epc-mme/internal/emm/nas"
	"github.com/oss-emm/epc-mme/internal/emm/security"
	"github.com/oss-emm/epc-mme/internal/metrics"
	"github.com/oss-emm/epc-mme/internal/peer"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config/mme.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := createLogger(cfg.Observability.Logging.Level)
	defer logger.Sync()

	logger.Info("starting MME",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("instance_id", cfg.NF.InstanceID),
	)

	store := emmcontext.NewStore()

	transport := nas.NewLoggingTransport(logger)

	vectors := peer.NewHTTPVectorClient(cfg.Peers.VectorProvider.URL, cfg.Peers.VectorProvider.Timeout, logger)
	esm := peer.NewHTTPESMPeer(cfg.Peers.ESM.URL, cfg.Peers.ESM.Timeout, logger)

	engine := attach.NewEngine(store, transport, vectors, esm, logger, metrics.AttachMetrics{}, attach.Config{
		EmergencyBearersSupported: cfg.Emergency.BearersSupported,
		SecurityPolicy:            toSecurityPolicy(cfg.Security),
		GUTIAllocator: &attach.RandomGUTIAllocator{
			PLMN:        emmcontext.PLMNID{MCC: cfg.PLMN.MCC, MNC: cfg.PLMN.MNC},
			AMFRegionID: cfg.GUAMI.AMFRegionID,
			AMFSetID:    cfg.GUAMI.AMFSetID,
			AMFPointer:  cfg.GUAMI.AMFPointer,
		},
		T3450Duration:    cfg.Timers.T3450,
		T3402:            cfg.Timers.T3402,
		AttachCounterMax: cfg.Timers.AttachCounterMax,
	})

	adminSrv := adminserver.NewServer(cfg.Admin.BindAddress, store, logger)

	var metricsSrv *metrics.Server
	if cfg.Observability.Metrics.Enabled {
		metricsSrv = metrics.NewServer(cfg.Observability.Metrics.Port, logger)
		go func() {
			if err := metricsSrv.Start(); err != nil {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
		metrics.SetServiceUp(true)
		defer metrics.SetServiceUp(false)
	}

	go reportContextCountPeriodically(store, 10*time.Second)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("admin server listening", zap.String("address", cfg.Admin.BindAddress))
		serverErrors <- adminSrv.Start()
	}()

	// engine is driven by inbound NAS events delivered through whatever S1AP/wire
	// codec sits in front of this core; main only owns its lifecycle.
	_ = engine

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			logger.Fatal("admin server error", zap.Error(err))
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := adminSrv.Stop(shutdownCtx); err != nil {
			logger.Error("failed to gracefully stop admin server", zap.Error(err))
		}
		if metricsSrv != nil {
			if err := metricsSrv.Stop(shutdownCtx); err != nil {
				logger.Error("failed to gracefully stop metrics server", zap.Error(err))
			}
		}

		logger.Info("MME shutdown complete")
	}
}

func toSecurityPolicy(cfg config.SecurityConfig) security.Policy {
	return security.Policy{
		EEAPriority:        toAlgorithms(cfg.EEAPriority),
		EIAPriority:        toAlgorithms(cfg.EIAPriority),
		AllowNullCiphering: cfg.AllowNullCiphering,
	}
}

func toAlgorithms(names []string) []security.Algorithm {
	out := make([]security.Algorithm, 0, len(names))
	for _, n := range names {
		out = append(out, security.Algorithm(n))
	}
	return out
}

func reportContextCountPeriodically(store *emmcontext.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		metrics.SetUEContexts(store.Len())
	}
}

func createLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	return logger
}
