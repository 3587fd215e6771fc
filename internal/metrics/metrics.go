// Package metrics exposes the handful of Prometheus series this module's
// followers actually emit, plus the small gorilla/mux HTTP server they are
// read from. Scope is trimmed to what the followers in this repository
// measure: records processed/dropped, follower liveness, tail errors.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	RecordsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logmonitor_records_processed_total",
			Help: "Total number of rendered records emitted to the output lane",
		},
		[]string{"source_type", "source_id"},
	)

	RecordsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logmonitor_records_dropped_total",
			Help: "Total number of records discarded before emission (stale Modify events, undecodable trace or event-log records, etc.)",
		},
		[]string{"source_type", "reason"},
	)

	FollowerUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logmonitor_follower_up",
			Help: "Whether a configured follower is currently running (1) or stopped (0)",
		},
		[]string{"source_type", "source_id"},
	)

	TailErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logmonitor_tail_errors_total",
			Help: "Total number of per-file read errors encountered by the file tailer",
		},
		[]string{"source_id", "reason"},
	)
)

// RecordProcessed increments RecordsProcessedTotal for one follower.
func RecordProcessed(sourceType, sourceID string) {
	RecordsProcessedTotal.WithLabelValues(sourceType, sourceID).Inc()
}

// RecordDropped increments RecordsDroppedTotal for one follower.
func RecordDropped(sourceType, reason string) {
	RecordsDroppedTotal.WithLabelValues(sourceType, reason).Inc()
}

// SetFollowerUp reflects a follower's running state in FollowerUp.
func SetFollowerUp(sourceType, sourceID string, up bool) {
	var v float64
	if up {
		v = 1
	}
	FollowerUp.WithLabelValues(sourceType, sourceID).Set(v)
}

// RecordTailError increments TailErrorsTotal for one file-tailer source.
func RecordTailError(sourceID, reason string) {
	TailErrorsTotal.WithLabelValues(sourceID, reason).Inc()
}

// Server is the metrics/health HTTP endpoint, the only HTTP surface this
// module exposes.
type Server struct {
	httpServer *http.Server
	logger     *logrus.Logger
}

// NewServer builds a Server bound to addr, routed through gorilla/mux.
func NewServer(addr string, logger *logrus.Logger) *Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: router},
		logger:     logger,
	}
}

// Start launches the HTTP server in the background. Bind errors other than
// a clean shutdown are logged, not returned, since the metrics endpoint is
// ambient tooling and must never block core startup.
func (s *Server) Start() {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting metrics server")
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("metrics server stopped unexpectedly")
		}
	}()
}

// Stop gracefully shuts the server down within the given timeout.
func (s *Server) Stop(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
