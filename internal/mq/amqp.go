// README: RabbitMQ connection; dial with bounded retry, one shared channel.
package mq

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	maxDialAttempts = 10
	maxRetryDelay   = 30 * time.Second
)

type RabbitMQ struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the broker, retrying with backoff. The broker often
// comes up after the service in compose environments.
func Dial(ctx context.Context, url string) (*RabbitMQ, error) {
	delay := time.Second
	for attempt := 1; ; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			ch, chErr := conn.Channel()
			if chErr != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("open channel: %w", chErr)
			}
			if qosErr := ch.Qos(10, 0, false); qosErr != nil {
				_ = ch.Close()
				_ = conn.Close()
				return nil, fmt.Errorf("set qos: %w", qosErr)
			}
			return &RabbitMQ{conn: conn, ch: ch}, nil
		}

		if attempt == maxDialAttempts {
			return nil, fmt.Errorf("dial rabbitmq after %d attempts: %w", attempt, err)
		}
		log.Printf("mq: dial attempt %d/%d failed: %v", attempt, maxDialAttempts, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * 1.5)
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
		}
	}
}

func (r *RabbitMQ) Channel() *amqp.Channel { return r.ch }

func (r *RabbitMQ) Close() {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
}
