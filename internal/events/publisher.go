package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubhmrj/Sellium/internal/model"
)

// Event types emitted on the order topic
const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// Envelope wraps every published event with routing metadata
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

// OrderCreatedPayload describes a newly placed order
type OrderCreatedPayload struct {
	OrderID     uint    `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	BuyerID     uint    `json:"buyer_id"`
	ItemCount   int     `json:"item_count"`
	Total       float64 `json:"total"`
}

// OrderStatusChangedPayload describes one status transition
type OrderStatusChangedPayload struct {
	OrderID     uint   `json:"order_id"`
	OrderNumber string `json:"order_number"`
	From        string `json:"from"`
	To          string `json:"to"`
	Note        string `json:"note,omitempty"`
}

// Publisher writes order events to Kafka. Writes are asynchronous so the
// request path never blocks on the broker.
type Publisher struct {
	w   *kafka.Writer
	log *zap.Logger
}

// NewPublisher creates a Kafka publisher for the given brokers and topic
func NewPublisher(brokers []string, topic string, log *zap.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
	}
	w.Completion = func(messages []kafka.Message, err error) {
		if err != nil {
			log.Error("Failed to publish order event", zap.Error(err), zap.Int("messages", len(messages)))
		}
	}
	return &Publisher{w: w, log: log}
}

// OrderCreated publishes an OrderCreated event
func (p *Publisher) OrderCreated(o *model.Order) {
	p.publish(EventOrderCreated, o.OrderNumber, OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		ItemCount:   len(o.Items),
		Total:       o.Pricing.Total,
	})
}

// OrderStatusChanged publishes an OrderStatusChanged event
func (p *Publisher) OrderStatusChanged(o *model.Order, from, to, note string) {
	p.publish(EventOrderStatusChanged, o.OrderNumber, OrderStatusChangedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		From:        from,
		To:          to,
		Note:        note,
	})
}

func (p *Publisher) publish(eventType, correlationID string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("Failed to marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	envelope := Envelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now(),
		Producer:      "marketplace-api",
		CorrelationID: correlationID,
		Payload:       raw,
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		p.log.Error("Failed to marshal event envelope", zap.String("event_type", eventType), zap.Error(err))
		return
	}

	// Partition key = order number so events for one order stay ordered
	err = p.w.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(correlationID),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		p.log.Error("Failed to enqueue order event", zap.String("event_type", eventType), zap.Error(err))
	}
}

// Close flushes pending messages and releases the writer
func (p *Publisher) Close() error {
	return p.w.Close()
}
