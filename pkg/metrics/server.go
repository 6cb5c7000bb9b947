package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/shmbridge/internal/logger"
)

// Server serves /metrics, /live and /ready while the bridge is resident.
//
// Readiness is all-or-nothing: it flips true only once the entire segment
// batch is created and mapped, so an orchestrator polling /ready cannot
// start the guest against a half-created batch.
type Server struct {
	srv   *http.Server
	ready atomic.Bool
}

// NewServer builds the ops server on the given port.
func NewServer(port int, reg *prometheus.Registry) *Server {
	s := &Server{}

	health := healthcheck.NewHandler()
	health.AddReadinessCheck("segments", func() error {
		if !s.ready.Load() {
			return errors.New("segment batch not yet mapped")
		}
		return nil
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/live", health.LiveEndpoint)
	mux.HandleFunc("/ready", health.ReadyEndpoint)

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// SetReady marks the segment batch as fully mapped (or no longer so).
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start serves in a background goroutine until Shutdown is called.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", logger.KeyError, err)
		}
	}()
}

// Shutdown stops the ops server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
