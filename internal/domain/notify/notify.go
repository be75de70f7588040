package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// DecisionEvent is published after a submission commits. Consumers handle
// employee-facing delivery; the pipeline never waits on them.
type DecisionEvent struct {
	RequestID   string    `json:"requestId"`
	TenantID    string    `json:"tenantId"`
	EmployeeID  string    `json:"employeeId"`
	Category    string    `json:"category"`
	Disposition string    `json:"disposition"`
	Reason      string    `json:"reason"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type Publisher interface {
	PublishDecision(ctx context.Context, event DecisionEvent) error
}

// KafkaPublisher writes decision events to a single topic. The writer is
// constructed once and shared; kafka-go writers are safe for concurrent
// use.
type KafkaPublisher struct {
	writer *kafkago.Writer
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
		Async:        true,
	}
	if logger != nil {
		writer.Completion = func(messages []kafkago.Message, err error) {
			if err != nil {
				logger.Error("decision event delivery failed", "error", err, "messages", len(messages))
			}
		}
	}
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) PublishDecision(ctx context.Context, event DecisionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.RequestID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte("leave.decision")},
			{Key: "disposition", Value: []byte(event.Disposition)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher keeps the pipeline wiring identical when notifications are
// disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishDecision(context.Context, DecisionEvent) error { return nil }
