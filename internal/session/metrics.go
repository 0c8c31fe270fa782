// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects refresh activity. A nil *Metrics records nothing.
type Metrics struct {
	refreshes *prometheus.CounterVec
	waiters   *prometheus.CounterVec
	inFlight  prometheus.Gauge
	duration  prometheus.Histogram
}

// NewMetrics creates the session collectors and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storeconsole",
			Subsystem: "session",
			Name:      "refresh_total",
			Help:      "Refresh cycles by trigger and result.",
		}, []string{"trigger", "result"}),
		waiters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storeconsole",
			Subsystem: "session",
			Name:      "refresh_waiters_total",
			Help:      "Callers that waited for an in-flight refresh.",
		}, []string{"trigger"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storeconsole",
			Subsystem: "session",
			Name:      "refresh_in_flight",
			Help:      "Refresh calls currently in flight (0 or 1).",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storeconsole",
			Subsystem: "session",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of refresh cycles.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, collector := range []prometheus.Collector{metrics.refreshes, metrics.waiters, metrics.inFlight, metrics.duration} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return metrics, nil
}

func (m *Metrics) refreshStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) refreshFinished(trigger Trigger, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.duration.Observe(elapsed.Seconds())
	m.refreshes.WithLabelValues(string(trigger), refreshResult(err)).Inc()
}

func (m *Metrics) waiterQueued(trigger Trigger) {
	if m == nil {
		return
	}
	m.waiters.WithLabelValues(string(trigger)).Inc()
}

func refreshResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsTerminal(err):
		return "terminal"
	default:
		return "error"
	}
}
