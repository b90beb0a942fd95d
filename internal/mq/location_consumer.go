// README: Location consumer; feeds driver pings from the fanout exchange into the registry.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"hailer/internal/modules/registry"
	"hailer/internal/types"
)

// locationMessage is the wire shape driver devices publish.
type locationMessage struct {
	DriverID       string  `json:"driver_id"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	VehicleType    string  `json:"vehicle_type"`
	Available      bool    `json:"available"`
	Rating         float64 `json:"rating"`
	CompletedTrips int     `json:"completed_trips"`
	Timestamp      string  `json:"timestamp"`
}

// LocationConsumer binds an exclusive queue to the location fanout
// exchange and pipes every ping into the registry service.
type LocationConsumer struct {
	mq       *RabbitMQ
	exchange string
	svc      *registry.Service
}

func NewLocationConsumer(mq *RabbitMQ, exchange string, svc *registry.Service) *LocationConsumer {
	return &LocationConsumer{mq: mq, exchange: exchange, svc: svc}
}

// Run consumes until ctx is cancelled. The queue is exclusive and
// auto-delete: each instance sees the full fanout stream and leaves no
// state behind on shutdown.
func (c *LocationConsumer) Run(ctx context.Context) error {
	ch := c.mq.Channel()

	if err := ch.ExchangeDeclare(c.exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue.Name, "", c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := ch.Consume(queue.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	log.Printf("mq: location consumer listening on %s (queue %s)", c.exchange, queue.Name)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			if err := c.handle(ctx, msg); err != nil {
				log.Printf("mq: location update dropped: %v", err)
				// Malformed or rejected payloads are not requeued; a retry
				// would fail the same way.
				_ = msg.Nack(false, false)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}

func (c *LocationConsumer) handle(ctx context.Context, msg amqp.Delivery) error {
	var m locationMessage
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		return fmt.Errorf("parse location update: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", m.Timestamp, err)
	}

	return c.svc.Ingest(ctx, registry.Update{
		DriverID:       types.ID(m.DriverID),
		Position:       types.Point{Lat: m.Latitude, Lng: m.Longitude},
		Vehicle:        registry.VehicleType(m.VehicleType),
		Available:      m.Available,
		Rating:         m.Rating,
		CompletedTrips: m.CompletedTrips,
		Timestamp:      ts,
	})
}
