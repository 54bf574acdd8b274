// Package events publishes checkout lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/IBM/sarama"
)

const TypeOrderPlaced = "order.placed"

// OrderPlaced is emitted once per successfully created order.
type OrderPlaced struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"orderId"`
	SessionID     string    `json:"sessionId"`
	UserID        string    `json:"userId"`
	PaymentMethod string    `json:"paymentMethod"`
	TotalAmount   string    `json:"totalAmount"`
	ItemCount     int       `json:"itemCount"`
	PlacedAt      time.Time `json:"placedAt"`
}

// Producer sends events synchronously. With no brokers it runs in log-only
// mode and never opens a connection.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *log.Logger
}

func NewProducer(brokers []string, topic string, logger *log.Logger) (*Producer, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if len(brokers) == 0 {
		logger.Printf("events: no kafka brokers configured, publishing to log only")
		return &Producer{topic: topic, logger: logger}, nil
	}

	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	logger.Printf("events: connected to kafka brokers %v", brokers)
	return newWithSyncProducer(p, topic, logger), nil
}

func newWithSyncProducer(p sarama.SyncProducer, topic string, logger *log.Logger) *Producer {
	return &Producer{producer: p, topic: topic, logger: logger}
}

func (p *Producer) PublishOrderPlaced(_ context.Context, ev OrderPlaced) error {
	ev.Type = TypeOrderPlaced
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if p.producer == nil {
		p.logger.Printf("events: %s topic=%s payload=%s", ev.Type, p.topic, data)
		return nil
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.OrderID),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		p.logger.Printf("events: send %s order_id=%s error=%v", ev.Type, ev.OrderID, err)
		return fmt.Errorf("send message: %w", err)
	}
	p.logger.Printf("events: %s order_id=%s partition=%d offset=%d", ev.Type, ev.OrderID, partition, offset)
	return nil
}

func (p *Producer) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
