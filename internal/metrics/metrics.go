// Package metrics exposes Prometheus collectors for the frontier bridge.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	frontierLinksProducedTotal *prometheus.CounterVec
	frontierLinksFlushedTotal  *prometheus.CounterVec
	frontierBatchesReadTotal   *prometheus.CounterVec
	frontierBatchesAckedTotal  *prometheus.CounterVec
	frontierRetryAttemptsTotal *prometheus.CounterVec
	frontierStatesFetchedTotal prometheus.Counter
	frontierStatesFlushedTotal prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		frontierLinksProducedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontier_links_produced_total",
				Help: "Entries buffered for the remote queue, labeled by slot.",
			},
			[]string{"slot"},
		)

		frontierLinksFlushedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontier_links_flushed_total",
				Help: "Entries flushed to the remote queue, labeled by slot.",
			},
			[]string{"slot"},
		)

		frontierBatchesReadTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontier_batches_read_total",
				Help: "Batches read from the remote queue, labeled by slot.",
			},
			[]string{"slot"},
		)

		frontierBatchesAckedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontier_batches_acked_total",
				Help: "Batches acknowledged (deleted), labeled by slot.",
			},
			[]string{"slot"},
		)

		frontierRetryAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontier_retry_attempts_total",
				Help: "Retried remote operations, labeled by operation.",
			},
			[]string{"op"},
		)

		frontierStatesFetchedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "frontier_states_fetched_total",
				Help: "State records fetched from the remote collection.",
			},
		)

		frontierStatesFlushedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "frontier_states_flushed_total",
				Help: "State records flushed to the remote collection.",
			},
		)
	})
}

// LinksProduced counts n entries buffered for slot.
func LinksProduced(slot string, n int) {
	if frontierLinksProducedTotal != nil {
		frontierLinksProducedTotal.WithLabelValues(slot).Add(float64(n))
	}
}

// LinksFlushed counts n entries flushed for slot.
func LinksFlushed(slot string, n int) {
	if frontierLinksFlushedTotal != nil {
		frontierLinksFlushedTotal.WithLabelValues(slot).Add(float64(n))
	}
}

// BatchesRead counts n batches read for slot.
func BatchesRead(slot string, n int) {
	if frontierBatchesReadTotal != nil {
		frontierBatchesReadTotal.WithLabelValues(slot).Add(float64(n))
	}
}

// BatchesAcked counts n batches deleted for slot.
func BatchesAcked(slot string, n int) {
	if frontierBatchesAckedTotal != nil {
		frontierBatchesAckedTotal.WithLabelValues(slot).Add(float64(n))
	}
}

// RetryAttempt counts one retried attempt of op.
func RetryAttempt(op string) {
	if frontierRetryAttemptsTotal != nil {
		frontierRetryAttemptsTotal.WithLabelValues(op).Inc()
	}
}

// StatesFetched counts n records fetched.
func StatesFetched(n int) {
	if frontierStatesFetchedTotal != nil {
		frontierStatesFetchedTotal.Add(float64(n))
	}
}

// StatesFlushed counts n records flushed.
func StatesFlushed(n int) {
	if frontierStatesFlushedTotal != nil {
		frontierStatesFlushedTotal.Add(float64(n))
	}
}
