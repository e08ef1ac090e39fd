package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

// Publisher ships assessment summaries to a Kafka topic so downstream
// fleet dashboards can pick them up. Publishing is best effort and a
// failure never blocks report generation.
type Publisher struct {
	writer *kafka.Writer
	log    *logrus.Logger
}

func NewPublisher(brokers []string, topic string, log *logrus.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
		log: log,
	}
}

type assessmentEvent struct {
	ClusterID   string       `json:"cluster_id"`
	Engine      string       `json:"engine"`
	Version     string       `json:"version"`
	Type        string       `json:"type"`
	Summary     types.Summary `json:"summary"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Publish emits one message per assessed database, keyed by cluster id.
func (p *Publisher) Publish(ctx context.Context, result *types.AssessmentResult) error {
	messages := make([]kafka.Message, 0, len(result.Databases))
	for id, db := range result.Databases {
		event := assessmentEvent{
			ClusterID:   id,
			Engine:      db.Engine,
			Version:     db.Version,
			Type:        db.Type,
			Summary:     db.Summary,
			GeneratedAt: result.GeneratedAt,
		}
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encoding assessment event for %s: %w", id, err)
		}
		messages = append(messages, kafka.Message{Key: []byte(id), Value: value})
	}
	if len(messages) == 0 {
		return nil
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("publishing assessment events: %w", err)
	}
	p.log.WithField("count", len(messages)).Info("assessment events published")
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
