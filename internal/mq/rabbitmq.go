// Package mq publishes ledger events to RabbitMQ.
package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	maxConnectAttempts = 10
	maxRetryDelay      = 30 * time.Second
	publishTimeout     = 5 * time.Second
)

// ErrClosed is returned when publishing on a closed connection.
var ErrClosed = errors.New("rabbitmq connection closed")

// RabbitMQ is a connection with a single publishing channel.
type RabbitMQ struct {
	url    string
	conn   *amqp.Connection
	ch     *amqp.Channel
	log    logrus.FieldLogger
	mu     sync.RWMutex
	closed bool
}

// Dial connects to RabbitMQ, retrying with growing delay, and declares the
// durable topic exchange events are published to.
func Dial(ctx context.Context, url, exchange string, log logrus.FieldLogger) (*RabbitMQ, error) {
	mq := &RabbitMQ{url: url, log: log}

	retryDelay := time.Second
	for attempt := 1; ; attempt++ {
		err := mq.connect(exchange)
		if err == nil {
			log.WithField("attempt", attempt).Info("rabbitmq connected")
			return mq, nil
		}

		log.WithError(err).WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": maxConnectAttempts,
			"retry_in":     retryDelay.String(),
		}).Warn("rabbitmq connection attempt failed")

		if attempt == maxConnectAttempts {
			return nil, fmt.Errorf("connect rabbitmq after %d attempts: %w", maxConnectAttempts, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
			retryDelay = time.Duration(float64(retryDelay) * 1.5)
			if retryDelay > maxRetryDelay {
				retryDelay = maxRetryDelay
			}
		}
	}
}

func (mq *RabbitMQ) connect(exchange string) error {
	conn, err := amqp.Dial(mq.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	mq.mu.Lock()
	mq.conn = conn
	mq.ch = ch
	mq.mu.Unlock()
	return nil
}

// Publish sends a persistent JSON message to exchange.
func (mq *RabbitMQ) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	mq.mu.RLock()
	ch, closed := mq.ch, mq.closed
	mq.mu.RUnlock()

	if closed || ch == nil {
		return ErrClosed
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		publishCtx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

// Close closes the channel and the connection.
func (mq *RabbitMQ) Close() {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.closed {
		return
	}
	mq.closed = true

	if mq.ch != nil {
		_ = mq.ch.Close()
	}
	if mq.conn != nil {
		_ = mq.conn.Close()
	}
	mq.log.Info("rabbitmq connection closed")
}
