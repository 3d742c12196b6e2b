// internal/metrics/metrics.go

// Package metrics records build timings and page outcomes with Prometheus.
//
// A nil *Recorder is valid and records nothing, so components take one
// without checking whether metrics are enabled.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels a page's fate in a build.
type Outcome string

const (
	PageWritten   Outcome = "written"
	PageSkipped   Outcome = "skipped"
	PageDropped   Outcome = "dropped"
	PageOrphaned  Outcome = "orphaned"
	PagePaginated Outcome = "paginated"
)

// Recorder holds the build metrics registered on one registry.
type Recorder struct {
	reg           *prom.Registry
	buildDuration prom.Histogram
	stageDuration *prom.HistogramVec
	builds        *prom.CounterVec
	pages         *prom.CounterVec
	lastBuild     prom.Gauge
}

// NewRecorder registers the build metrics on reg, or on a fresh registry
// when reg is nil.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "skillet",
			Name:      "build_duration_seconds",
			Help:      "Total site build duration",
			Buckets:   prom.DefBuckets,
		}),
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "skillet",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		builds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "skillet",
			Name:      "builds_total",
			Help:      "Builds by result",
		}, []string{"result"}),
		pages: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "skillet",
			Name:      "pages_total",
			Help:      "Pages by outcome",
		}, []string{"outcome"}),
		lastBuild: prom.NewGauge(prom.GaugeOpts{
			Namespace: "skillet",
			Name:      "last_build_timestamp_seconds",
			Help:      "Unix time the last successful build finished",
		}),
	}
	reg.MustRegister(r.buildDuration, r.stageDuration, r.builds, r.pages, r.lastBuild)
	return r
}

// Stage starts timing a build stage; call the returned func when it ends.
func (r *Recorder) Stage(stage string) func() {
	if r == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		r.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// Build records a finished build.
func (r *Recorder) Build(d time.Duration, err error) {
	if r == nil {
		return
	}
	r.buildDuration.Observe(d.Seconds())
	if err != nil {
		r.builds.WithLabelValues("failed").Inc()
		return
	}
	r.builds.WithLabelValues("success").Inc()
	r.lastBuild.SetToCurrentTime()
}

// Page counts n pages with the given outcome.
func (r *Recorder) Page(outcome Outcome, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.pages.WithLabelValues(string(outcome)).Add(float64(n))
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
