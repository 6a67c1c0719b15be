package usecase

import (
	"context"
	"encoding/json"
	"time"

	"OddsEdge/internal/domain/models"
	domrepo "OddsEdge/internal/domain/repository"
	pkgkafka "OddsEdge/pkg/kafka"
)

// KafkaQuotesHandler consumes raw quotes published by upstream scrapers to a
// Kafka topic and feeds them into the same processor the live feed uses.
type KafkaQuotesHandler struct {
	topic   string
	proc    *QuoteProcessor
	metrics domrepo.Metrics
}

func NewKafkaQuotesHandler(topic string, proc *QuoteProcessor, metrics domrepo.Metrics) *KafkaQuotesHandler {
	return &KafkaQuotesHandler{topic: topic, proc: proc, metrics: metrics}
}

func (h *KafkaQuotesHandler) Topic() string { return h.topic }

func (h *KafkaQuotesHandler) Handle(ctx context.Context, b []byte) error {
	var raw models.RawQuote
	if err := json.Unmarshal(b, &raw); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	// E2E latency from quote observation to now (approx).
	ts := raw.Timestamp
	if ts > 1e11 {
		ts /= 1000
	}
	if ts > 0 {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(ts, 0)).Seconds())
	}

	return h.proc.Process(ctx, &raw)
}

var _ pkgkafka.MessageHandler = (*KafkaQuotesHandler)(nil)
