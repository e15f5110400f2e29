package gridpath

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for requestsTotal.
const (
	outcomeFound      = "found"
	outcomeNoPath     = "no_path"
	outcomeSuperseded = "superseded"
)

var (
	// queueDepth is the number of requests waiting behind the in-flight search.
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gridpath",
		Subsystem: "serializer",
		Name:      "queue_depth",
		Help:      "Path requests waiting for the search engine",
	})

	// requestsTotal counts completed requests.
	// Labels: outcome (found, no_path, superseded)
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridpath",
		Subsystem: "serializer",
		Name:      "requests_total",
		Help:      "Completed path requests by outcome",
	}, []string{"outcome"})

	queueWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gridpath",
		Subsystem: "serializer",
		Name:      "queue_wait_seconds",
		Help:      "Time a request spent queued before its search started",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gridpath",
		Subsystem: "search",
		Name:      "duration_seconds",
		Help:      "Wall time from dispatch to completion of a search",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	expandedCells = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gridpath",
		Subsystem: "search",
		Name:      "expanded_cells",
		Help:      "Cells moved to the closed set per search",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})
)
