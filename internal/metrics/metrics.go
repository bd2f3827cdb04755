// Package metrics registers the prometheus collectors of the importers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportRows counts processed spreadsheet rows by outcome (imported, warnings, failed, invalid).
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "culturemap",
		Subsystem: "csv_import",
		Name:      "rows_total",
		Help:      "Spreadsheet rows processed, broken down by outcome.",
	}, []string{"outcome"})

	// ImportRuns counts finished spreadsheet imports by final status.
	ImportRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "culturemap",
		Subsystem: "csv_import",
		Name:      "runs_total",
		Help:      "Spreadsheet import runs, broken down by final status.",
	}, []string{"status"})

	// GeocodeRequests counts resolver lookups by result (ok, empty, error).
	GeocodeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "culturemap",
		Subsystem: "geocode",
		Name:      "requests_total",
		Help:      "Geocoding lookups, broken down by result.",
	}, []string{"result"})

	// GeocodeLatency observes remote search latency including retries.
	GeocodeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "culturemap",
		Subsystem: "geocode",
		Name:      "latency_seconds",
		Help:      "Latency of geocoding lookups including retries.",
		Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30},
	})

	// FeedEvents counts feed entries by the action taken (created, updated, unchanged, skipped, deleted, failed).
	FeedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "culturemap",
		Subsystem: "feed",
		Name:      "events_total",
		Help:      "Feed events processed, broken down by action.",
	}, []string{"action"})

	// Jobs counts background jobs by kind and result.
	Jobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "culturemap",
		Subsystem: "jobs",
		Name:      "total",
		Help:      "Background jobs, broken down by kind and result.",
	}, []string{"kind", "result"})
)
