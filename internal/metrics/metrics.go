// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StorageOperations counts facade calls by operation and the mode they completed in.
	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemood_storage_operations_total",
			Help: "Storage facade operations by outcome mode (durable, degraded, error)",
		},
		[]string{"operation", "mode"},
	)

	// StorageFallbacks counts durable failures that were absorbed by the memory store.
	StorageFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemood_storage_fallbacks_total",
			Help: "Durable store failures answered from the in-memory fallback",
		},
		[]string{"operation"},
	)

	// BlobSkipped counts listed objects dropped during a collection read.
	BlobSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemood_blob_skipped_objects_total",
			Help: "Objects listed but not fetched or decoded during collection reads",
		},
		[]string{"prefix"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moviemood_circuit_breaker_state",
			Help: "Durable store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Votes counts vote submissions by result.
	Votes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemood_votes_total",
			Help: "Vote submissions by result (like, dislike, duplicate)",
		},
		[]string{"result"},
	)
)
