package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline holds the transaction and quote collectors.
type Pipeline struct {
	Submitted       *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	Confirmed       *prometheus.CounterVec
	ConfirmLatency  *prometheus.HistogramVec
	QuoteRejections *prometheus.CounterVec
}

// NewPipeline registers the collectors on reg. A nil reg uses the default
// registerer.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Pipeline{
		Submitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swapctl_tx_submitted_total",
			Help: "Transactions broadcast, by ledger",
		}, []string{"ledger"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swapctl_tx_failures_total",
			Help: "Failed submits and waits, by ledger, stage and error kind",
		}, []string{"ledger", "stage", "kind"}),
		Confirmed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swapctl_tx_confirmed_total",
			Help: "Transactions seen included, by ledger",
		}, []string{"ledger"}),
		ConfirmLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swapctl_tx_confirm_seconds",
			Help:    "Time spent waiting for inclusion",
			Buckets: []float64{1, 2, 5, 10, 15, 30, 60, 120, 300, 600},
		}, []string{"ledger"}),
		QuoteRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swapctl_quote_rejections_total",
			Help: "Quotes refused before submit, by reason",
		}, []string{"reason"}),
	}
}

// Server exposes the default registry over HTTP.
type Server struct {
	srv *http.Server
}

// NewServer returns nil when addr is empty.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	if addr == "" {
		return nil
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
}

// Start serves until Stop; returns nil when disabled.
func (s *Server) Start() error {
	if s == nil {
		return nil
	}
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down; no-op when disabled.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
