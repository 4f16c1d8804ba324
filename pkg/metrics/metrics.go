package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	QueueMessagesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_consumed_total",
			Help: "Number of raw messages received from the queue",
		},
		[]string{"transport"},
	)
	QueueMessagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_dropped_total",
			Help: "Number of undecodable messages (nacked or left to queue policy)",
		},
		[]string{"transport"},
	)
	SettlementFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_settlement_failures_total",
			Help: "Number of failed ack/nack/delete operations",
		},
		[]string{"transport"},
	)
)

var (
	BatchesCommitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batches_committed_total",
			Help: "Number of batches dispatched and settled successfully",
		},
		[]string{"transport"},
	)
	BatchesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batches_rejected_total",
			Help: "Number of batches whose dispatch failed (poison batches)",
		},
		[]string{"transport"},
	)
	BatchFlushSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batch_flush_size",
			Help:    "Number of records per flushed batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"transport"},
	)
	RecordsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "records_written_total",
			Help: "Number of records written to the database",
		},
	)
)

var registerOnce sync.Once

// MustRegister регистрирует метрики в default-реестре. Повторные вызовы безопасны.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			QueueMessagesConsumed, QueueMessagesDropped, SettlementFailures,
			BatchesCommitted, BatchesRejected, BatchFlushSize, RecordsWritten,
		)
	})
}
