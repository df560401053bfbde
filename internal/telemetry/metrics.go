// Package telemetry registers the process-wide Prometheus metrics shared
// across the validator's components: relay queue depth, mint call latency,
// and match throughput.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelayQueueDepth reports the current depth of the relay adapter's
	// bounded ingest queue.
	RelayQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "manastr_relay_queue_depth",
		Help: "Current depth of the relay adapter's bounded ingest queue.",
	})

	// RelayEventsIngested counts events accepted from the relay after
	// signature and id verification.
	RelayEventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manastr_relay_events_ingested_total",
		Help: "Total events accepted from the relay, by kind.",
	}, []string{"kind"})

	// RelayEventsDropped counts events dropped on ingest, by reason.
	RelayEventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manastr_relay_events_dropped_total",
		Help: "Total events dropped on ingest, by reason.",
	}, []string{"reason"})

	// MintRequestDuration observes mint HTTP call latency by operation.
	MintRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "manastr_mint_request_duration_seconds",
		Help:    "Mint HTTP request duration in seconds, by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// MintRequestsFailed counts failed mint requests by operation and
	// reason.
	MintRequestsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manastr_mint_requests_failed_total",
		Help: "Total failed mint requests, by operation and reason.",
	}, []string{"operation", "reason"})

	// MatchesActive reports the number of match tasks currently alive in
	// the registry.
	MatchesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "manastr_matches_active",
		Help: "Number of match state machines currently held in memory.",
	})

	// MatchesTerminated counts matches reaching each terminal phase.
	MatchesTerminated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manastr_matches_terminated_total",
		Help: "Total matches reaching a terminal phase, by phase.",
	}, []string{"phase"})
)
