package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Mirror republishes audit records to a Kafka topic so downstream compliance
// tooling can consume the trail. The database row remains the source of
// truth: a failed publish is logged by the caller, never surfaced to the
// request.
type Mirror struct {
	producer messageProducer
	topic    string
}

// messageProducer is the slice of kafka.Producer the mirror uses.
type messageProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

func NewMirror(bootstrapServers, topic string) (*Mirror, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{"bootstrap.servers": bootstrapServers})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Mirror{producer: p, topic: topic}, nil
}

// mirrorPayload is the wire shape; detail is already redacted by the logger.
type mirrorPayload struct {
	ID           string         `json:"id"`
	Timestamp    string         `json:"timestamp"`
	EventType    string         `json:"event_type"`
	ActorID      string         `json:"actor_id,omitempty"`
	ActorEmail   string         `json:"actor_email,omitempty"`
	ClientIP     string         `json:"client_ip,omitempty"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Action       string         `json:"action"`
	Outcome      string         `json:"outcome"`
	PHIInvolved  bool           `json:"phi_involved"`
	Detail       map[string]any `json:"detail,omitempty"`
}

func (m *Mirror) Publish(ctx context.Context, record Record) error {
	payload, err := json.Marshal(mirrorPayload{
		ID:           record.ID.String(),
		Timestamp:    record.Timestamp.Format(time.RFC3339Nano),
		EventType:    string(record.EventType),
		ActorID:      record.ActorID,
		ActorEmail:   record.ActorEmail,
		ClientIP:     record.ClientIP,
		ResourceType: record.ResourceType,
		ResourceID:   record.ResourceID,
		Action:       record.Action,
		Outcome:      string(record.Outcome),
		PHIInvolved:  record.PHIInvolved,
		Detail:       record.Detail,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	// Buffered and never closed: on timeout or cancellation the delivery
	// report can still arrive after we stop listening, and a send into a
	// closed channel would panic inside the producer's report goroutine.
	deliveryChan := make(chan kafka.Event, 1)

	err = m.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &m.topic, Partition: kafka.PartitionAny},
		Key:            []byte(record.ID.String()),
		Value:          payload,
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("produce audit message: %w", err)
	}

	select {
	case e := <-deliveryChan:
		msg, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected event type: %T", e)
		}
		if msg.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", msg.TopicPartition.Error)
		}
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("delivery timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mirror) Close() {
	m.producer.Flush(15 * 1000)
	m.producer.Close()
}
