// Package metrics records monitor runs as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

const namespace = "watchlists"

// Recorder owns a private registry so tests and batch pushes see only watchlist metrics.
type Recorder struct {
	registry *prometheus.Registry

	fetched     *prometheus.CounterVec
	unseen      *prometheus.CounterVec
	sent        *prometheus.CounterVec
	failed      *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	runFailures *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	runDuration *prometheus.HistogramVec
}

var _ ports.Metrics = (*Recorder)(nil)

func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}
	r.fetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_fetched_total",
		Help:      "Records returned by the upstream feed",
	}, []string{"monitor"})
	r.unseen = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_unseen_total",
		Help:      "Records not present in the ledger",
	}, []string{"monitor"})
	r.sent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Notifications delivered and marked seen",
	}, []string{"monitor"})
	r.failed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_failed_total",
		Help:      "Notifications the webhook rejected or never received",
	}, []string{"monitor"})
	r.skipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_skipped_total",
		Help:      "Records skipped because their id cannot be stored in the ledger",
	}, []string{"monitor"})
	r.runFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "run_failures_total",
		Help:      "Aborted runs by error kind",
	}, []string{"monitor", "kind"})
	r.lastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last run that completed",
	}, []string{"monitor"})
	r.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of a monitor run",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"monitor"})

	r.registry.MustRegister(
		r.fetched, r.unseen, r.sent, r.failed, r.skipped,
		r.runFailures, r.lastSuccess, r.runDuration,
	)
	return r
}

// ObserveRun records the outcome of one run.
func (r *Recorder) ObserveRun(report model.RunReport, err error) {
	m := report.Monitor
	r.fetched.WithLabelValues(m).Add(float64(report.Fetched))
	r.unseen.WithLabelValues(m).Add(float64(report.Unseen))
	r.sent.WithLabelValues(m).Add(float64(report.Delivered))
	r.failed.WithLabelValues(m).Add(float64(report.Failed))
	r.skipped.WithLabelValues(m).Add(float64(report.Skipped))
	r.runDuration.WithLabelValues(m).Observe(report.Duration().Seconds())

	if err != nil {
		r.runFailures.WithLabelValues(m, errors.Kind(err)).Inc()
		return
	}
	r.lastSuccess.WithLabelValues(m).Set(float64(report.Finished.Unix()))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Push sends the current metrics to a Pushgateway, grouped by monitor.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job, monitor string) error {
	p := push.New(gatewayURL, job).Gatherer(r.registry)
	if monitor != "" {
		p = p.Grouping("monitor", monitor)
	}
	if err := p.PushContext(ctx); err != nil {
		return errors.Wrap(err, "push metrics")
	}
	return nil
}

// Handler serves /metrics and /healthz.
func (r *Recorder) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// NewServer builds the HTTP server for Handler.
func (r *Recorder) NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
