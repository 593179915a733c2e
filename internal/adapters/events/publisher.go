package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"ticketinventory/internal/domain"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// reservationMessage is the JSON payload written for every reservation change.
type reservationMessage struct {
	Type          domain.NotificationKind  `json:"type"`
	ReservationID string                   `json:"reservation_id"`
	EventID       string                   `json:"event_id"`
	EventName     string                   `json:"event_name,omitempty"`
	UserID        string                   `json:"user_id"`
	Quantity      int                      `json:"quantity"`
	Status        domain.ReservationStatus `json:"status"`
	CancelledAt   *time.Time               `json:"cancelled_at,omitempty"`
	OccurredAt    time.Time                `json:"occurred_at"`
}

// Publisher writes reservation notifications to a Kafka topic, keyed by event id so
// changes to one event stay ordered within a partition.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewKafkaPublisher returns a Publisher writing to topic on the given brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		RequiredAcks: kafka.RequireAll,
	}
	return newPublisher(writer, logger)
}

func newPublisher(w messageWriter, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, logger: logger}
}

func (p *Publisher) Notify(ctx context.Context, n *domain.ReservationNotification) error {
	if n == nil || n.Reservation == nil {
		return fmt.Errorf("reservation notification is incomplete")
	}
	msg := reservationMessage{
		Type:          n.Kind,
		ReservationID: n.Reservation.ID,
		EventID:       n.Reservation.EventID,
		UserID:        n.Reservation.UserID,
		Quantity:      n.Reservation.Quantity,
		Status:        n.Reservation.Status,
		CancelledAt:   n.Reservation.CancelledAt,
		OccurredAt:    n.OccurredAt,
	}
	if n.Event != nil {
		msg.EventName = n.Event.Name
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", n.Kind, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.Reservation.EventID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(n.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", n.Kind, err)
	}
	p.logger.Debug("reservation event published", "type", n.Kind, "reservation_id", n.Reservation.ID)
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
