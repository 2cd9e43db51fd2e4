// Package metrics exposes the MME's Prometheus counters and gauges, and the
// HTTP server that serves /metrics, grounded on common/metrics/*.go from
// the reference 5G core.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Process-wide metrics common to the MME as a whole.
var (
	ServiceUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mme_service_up",
			Help: "Whether the MME process is up (1 = up, 0 = down)",
		},
	)

	UEContexts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mme_ue_contexts",
			Help: "Number of EMM contexts currently tracked",
		},
	)
)

// SetServiceUp sets the service health gauge.
func SetServiceUp(up bool) {
	if up {
		ServiceUp.Set(1)
	} else {
		ServiceUp.Set(0)
	}
}

// SetUEContexts reports the Context Store's current size.
func SetUEContexts(count int) {
	UEContexts.Set(float64(count))
}

// Server is a Prometheus metrics HTTP server.
type Server struct {
	port   int
	server *http.Server
	logger *zap.Logger
}

// NewServer creates a metrics server bound to port.
func NewServer(port int, logger *zap.Logger) *Server {
	return &Server{port: port, logger: logger}
}

// Start runs the metrics HTTP server until it errors or is stopped.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.logger.Info("starting metrics server", zap.Int("port", s.port))
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the metrics server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
