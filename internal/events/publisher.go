package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

// Publisher отправляет доменные события во внешнюю шину.
type Publisher interface {
	Publish(ctx context.Context, e model.Event) error
	Close() error
}

// KafkaPublisher пишет события в один топик, ключом служит ID бронирования,
// так что события одной брони попадают в одну партицию по порядку.
type KafkaPublisher struct {
	writer messageWriter
}

// messageWriter покрывает нужную часть *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e model.Event) error {
	msg, err := newMessage(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func newMessage(e model.Event) (kafka.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.BookingID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
		},
		Time: e.CreatedAt,
	}, nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher только пишет события в лог. Используется, когда Kafka не настроена.
type LogPublisher struct {
	log *logrus.Logger
}

func NewLogPublisher(log *logrus.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, e model.Event) error {
	p.log.WithFields(logrus.Fields{
		"event_type":   e.EventType,
		"booking_id":   e.BookingID,
		"booking_code": e.BookingCode,
		"status":       e.Status,
	}).Info("booking event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
