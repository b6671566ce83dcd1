package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/modkit/internal/logfields"
)

// Recorder exposes watch-mode metrics via Prometheus.
type Recorder struct {
	registry       *prom.Registry
	runDuration    prom.Histogram
	runOutcomes    *prom.CounterVec
	artifactsTotal *prom.CounterVec
}

// NewRecorder constructs and registers the metrics. A nil registry gets a
// fresh one, which keeps tests isolated.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		registry: reg,
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "modkit",
			Name:      "run_duration_seconds",
			Help:      "Duration of generation passes",
			Buckets:   prom.DefBuckets,
		}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "modkit",
			Name:      "runs_total",
			Help:      "Generation passes by outcome",
		}, []string{"outcome"}),
		artifactsTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "modkit",
			Name:      "artifacts_total",
			Help:      "Artifact write decisions by status",
		}, []string{"status"}),
	}
	reg.MustRegister(r.runDuration, r.runOutcomes, r.artifactsTotal)
	return r
}

// ObserveRun records one pass.
func (r *Recorder) ObserveRun(d time.Duration, changed, unchanged int, success bool) {
	r.runDuration.Observe(d.Seconds())
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.runOutcomes.WithLabelValues(outcome).Inc()
	r.artifactsTotal.WithLabelValues("changed").Add(float64(changed))
	r.artifactsTotal.WithLabelValues("unchanged").Add(float64(unchanged))
}

// Serve exposes /metrics on addr until ctx is canceled.
func (r *Recorder) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Serving metrics", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Warn("Metrics server stopped", logfields.Error(err))
	}
}
