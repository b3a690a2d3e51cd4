// metrics.go: Prometheus instrumentation for the stream endpoints
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package conduit

import (
	"time"

	"github.com/agilira/go-timecache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricBytesProduced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "conduit",
		Name:      "bytes_produced_total",
		Help:      "Total bytes written into the ring by the producer.",
	})

	metricBytesConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "conduit",
		Name:      "bytes_consumed_total",
		Help:      "Total bytes read out of the ring by the consumer.",
	})

	metricHandshakeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "conduit",
		Name:      "handshake_duration_seconds",
		Help:      "Time from WaitReady being called to the handshake completing.",
		Buckets:   prometheus.DefBuckets,
	})

	metricWaitSpins = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "conduit",
		Name:      "wait_spins_total",
		Help:      "Number of times the adaptive wait primitive fell back to sleeping.",
	})
)

// metricsTimeCache provides a coarse, cheap clock for marking the start of
// a handshake wait, refreshed at millisecond resolution the same way the
// teacher library caches time for its own hot path.
var metricsTimeCache = timecache.NewWithResolution(time.Millisecond)

// observeHandshakeStart returns a function that records the elapsed time
// into metricHandshakeDuration when called.
func observeHandshakeStart() func() {
	start := metricsTimeCache.CachedTime()
	return func() {
		metricHandshakeDuration.Observe(metricsTimeCache.CachedTime().Sub(start).Seconds())
	}
}
