package repository

import (
	"context"
	"fmt"

	"OddsEdge/internal/domain/models"
	domrepo "OddsEdge/internal/domain/repository"
	pkgkafka "OddsEdge/pkg/kafka"
)

// KafkaPublisher fans detected opportunities out to a Kafka topic. Messages
// are keyed by opportunity id so downstream consumers see in-order updates
// for the same logical edge.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

type opportunityEnvelope struct {
	TickSeq int64              `json:"tick_seq"`
	Row     models.Opportunity `json:"row"`
}

func (p *KafkaPublisher) PublishOpportunities(ctx context.Context, seq int64, ops []models.Opportunity) error {
	if len(ops) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(ops))
	for _, op := range ops {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(op.ID),
			Value: opportunityEnvelope{TickSeq: seq, Row: op},
		})
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish opportunities: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
