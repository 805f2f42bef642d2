package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-checkin/internal/config"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Logger *logger.Logger
}

// NewProducer creates a writer without a fixed topic; every message names its own.
func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Logger: log}
}

// Publish JSON-encodes value and writes it to topic under key.
func (p *Producer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if p.Logger != nil {
		p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("key=%s", key))
	}

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// ParticipationEvent is the payload of the registered and imported topics.
type ParticipationEvent struct {
	ParticipationID string                     `json:"participation_id"`
	EventID         string                     `json:"event_id"`
	MasterDataID    string                     `json:"master_data_id,omitempty"`
	TicketType      string                     `json:"ticket_type"`
	Status          models.ParticipationStatus `json:"status"`
	Source          string                     `json:"source"`
	At              time.Time                  `json:"at"`
}

// Publisher emits the domain events of the service. A Publisher without a
// producer drops every event, which is how a disabled Kafka is represented.
type Publisher struct {
	producer *Producer
	topics   config.TopicConfig
	logger   *logger.Logger
}

func NewPublisher(producer *Producer, topics config.TopicConfig, log *logger.Logger) *Publisher {
	return &Publisher{producer: producer, topics: topics, logger: log}
}

// NewNoopPublisher returns a publisher that drops every event.
func NewNoopPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.producer != nil
}

func (p *Publisher) PublishRegistered(ctx context.Context, part *models.Participation) error {
	if !p.Enabled() {
		return nil
	}
	return p.publish(ctx, p.topics.ParticipationRegistered, part.ID, participationEvent(part, "application"))
}

func (p *Publisher) PublishImported(ctx context.Context, parts []models.Participation) error {
	if !p.Enabled() || len(parts) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(parts))
	for i := range parts {
		value, err := json.Marshal(participationEvent(&parts[i], "import"))
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Topic: p.topics.ParticipationImported,
			Key:   []byte(parts[i].EventID),
			Value: value,
		})
	}
	if err := p.producer.Writer.WriteMessages(ctx, msgs...); err != nil {
		p.logFailure(p.topics.ParticipationImported, err)
		return err
	}
	if p.logger != nil {
		p.logger.LogKafka("PUBLISH", p.topics.ParticipationImported, fmt.Sprintf("%d participation(s)", len(msgs)))
	}
	return nil
}

func (p *Publisher) PublishCheckedIn(ctx context.Context, e models.CheckinEvent) error {
	if !p.Enabled() {
		return nil
	}
	return p.publish(ctx, p.topics.ParticipationCheckedIn, e.ParticipationID, e)
}

func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.producer.Close()
}

func (p *Publisher) publish(ctx context.Context, topic, key string, value interface{}) error {
	if err := p.producer.Publish(ctx, topic, key, value); err != nil {
		p.logFailure(topic, err)
		return err
	}
	return nil
}

func (p *Publisher) logFailure(topic string, err error) {
	if p.logger != nil {
		p.logger.LogKafka("PUBLISH_FAILED", topic, err.Error())
	}
}

func participationEvent(part *models.Participation, source string) ParticipationEvent {
	return ParticipationEvent{
		ParticipationID: part.ID,
		EventID:         part.EventID,
		MasterDataID:    part.MasterDataID,
		TicketType:      part.TicketType,
		Status:          part.Status,
		Source:          source,
		At:              part.CreatedAt,
	}
}
