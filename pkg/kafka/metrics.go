package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Consumer outcomes recorded on consumerMessages.
const (
	outcomeReceived   = "received"
	outcomeProcessed  = "processed"
	outcomeFailed     = "failed"
	outcomeDeadLetter = "dead_lettered"
	outcomeDuplicate  = "duplicate"
)

// Producer outcomes recorded on producerMessages.
const (
	outcomePublished = "published"
	outcomeError     = "error"
)

var (
	consumerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kafka",
		Subsystem: "consumer",
		Name:      "messages_total",
		Help:      "Consumed Kafka messages by topic, group and outcome",
	}, []string{"topic", "group", "outcome"})

	consumerHandleSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kafka",
		Subsystem: "consumer",
		Name:      "handle_duration_seconds",
		Help:      "Time spent in the handler for one message, retries included",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"topic", "group"})

	producerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kafka",
		Subsystem: "producer",
		Name:      "messages_total",
		Help:      "Published Kafka messages by topic and outcome",
	}, []string{"topic", "outcome"})

	producerWriteSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kafka",
		Subsystem: "producer",
		Name:      "write_duration_seconds",
		Help:      "Latency of a single WriteMessages call",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"topic"})
)
