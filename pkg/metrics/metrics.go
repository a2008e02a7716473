package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tigerbot-team/avoidbot/pkg/policy"
	"github.com/tigerbot-team/avoidbot/pkg/telemetry"
)

type Metrics struct {
	Registry *prometheus.Registry

	decisions       *prometheus.CounterVec
	skipped         *prometheus.CounterVec
	transportErrors *prometheus.CounterVec
	planHold        prometheus.Histogram
	distance        *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avoidbot_decisions_total",
			Help: "Plans produced, by the rule that fired.",
		}, []string{"rule"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avoidbot_lines_skipped_total",
			Help: "Telemetry lines that produced no plan.",
		}, []string{"reason"}),
		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avoidbot_transport_errors_total",
			Help: "Serial link failures, by operation.",
		}, []string{"op"}),
		planHold: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "avoidbot_plan_hold_seconds",
			Help:    "Total hold time of each executed plan.",
			Buckets: []float64{0, 0.05, 0.1, 0.2, 0.5, 1, 2},
		}),
		distance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "avoidbot_distance_cm",
			Help: "Most recent distance reading per sensor.",
		}, []string{"sensor"}),
	}
	m.Registry.MustRegister(m.decisions, m.skipped, m.transportErrors, m.planHold, m.distance)
	return m
}

func (m *Metrics) OnDecision(r telemetry.Reading, d policy.Decision) {
	m.decisions.WithLabelValues(d.Rule.String()).Inc()
	m.planHold.Observe(d.Plan.Duration().Seconds())
	m.distance.WithLabelValues("front").Set(float64(r.Front))
	m.distance.WithLabelValues("left").Set(float64(r.Left))
	m.distance.WithLabelValues("right").Set(float64(r.Right))
}

func (m *Metrics) OnSkipped(line string, err error) {
	reason := "malformed"
	if errors.Is(err, telemetry.ErrNotRecord) {
		reason = "not_record"
	}
	m.skipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) OnTransportError(op string, err error) {
	m.transportErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.  It runs on its own
// goroutine and never touches the serial link.
func (m *Metrics) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Println("Serving metrics on", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Println("Metrics server failed:", err)
	}
}
