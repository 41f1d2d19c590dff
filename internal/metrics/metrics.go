// Package metrics provides Prometheus metrics for the scheduler, outputs and
// the control API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stripd"

var (
	ticks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "ticks_total",
		Help:      "Total scheduler ticks",
	})

	tickOverruns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "tick_overruns_total",
		Help:      "Ticks whose work took longer than the tick interval",
	})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "tick_duration_seconds",
		Help:      "Time spent updating and flushing per tick",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .02, .03, .05, .1},
	})

	patternSwitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "pattern_switches_total",
		Help:      "Patterns becoming current, by reason",
	}, []string{"reason"})

	patternErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "pattern_errors_total",
		Help:      "Errors and panics raised by pattern Init or Update",
	}, []string{"pattern"})

	flushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "strip",
		Name:      "flush_errors_total",
		Help:      "Failed strip flushes",
	})

	hueUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "hue",
		Name:      "updates_total",
		Help:      "Hue mirror light updates, by result",
	}, []string{"result"})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "eventbus",
		Name:      "dropped_total",
		Help:      "Events dropped because the bus queue was full",
	})

	controlRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control",
		Name:      "requests_total",
		Help:      "Control API requests, by route and status code",
	}, []string{"route", "code"})
)

// Switch reasons.
const (
	ReasonStarted = "started"
	ReasonResumed = "resumed"
)

// Hue update results.
const (
	HueSent    = "sent"
	HueSkipped = "skipped"
	HueLimited = "limited"
	HueFailed  = "failed"
)

// ObserveTick records one tick and whether it overran its interval.
func ObserveTick(work, interval time.Duration) {
	ticks.Inc()
	tickDuration.Observe(work.Seconds())
	if work > interval {
		tickOverruns.Inc()
	}
}

// IncPatternSwitch counts a pattern becoming current.
func IncPatternSwitch(reason string) {
	patternSwitches.WithLabelValues(reason).Inc()
}

// IncPatternError counts a failed Init or Update.
func IncPatternError(pattern string) {
	patternErrors.WithLabelValues(pattern).Inc()
}

// IncFlushError counts a failed flush.
func IncFlushError() {
	flushErrors.Inc()
}

// IncHueUpdate counts a Hue mirror update attempt.
func IncHueUpdate(result string) {
	hueUpdates.WithLabelValues(result).Inc()
}

// IncEventDropped counts an event dropped by the bus.
func IncEventDropped() {
	eventsDropped.Inc()
}

// IncControlRequest counts a control API response.
func IncControlRequest(route, code string) {
	controlRequests.WithLabelValues(route, code).Inc()
}
