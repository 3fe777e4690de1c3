package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"ms-payanyway/internal/models"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

// PublishOrderPaid streams the paid transition to Kafka so downstream
// services (fulfilment, receipts) can react.
func (p *Producer) PublishOrderPaid(order models.Order) error {
	event := models.OrderPaidEvent{
		Type:    "order_paid",
		OrderID: order.OrderID,
		UserID:  order.UserID,
		Total:   order.Total,
		PaidAt:  order.PaidAt,
	}

	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(order.OrderID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
