package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitConfig holds configuration for the RabbitMQ client.
type RabbitConfig struct {
	URL               string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	HeartbeatTimeout  time.Duration
}

type RabbitMQClient struct {
	config RabbitConfig
	logger *zap.Logger

	mu             sync.RWMutex
	conn           *amqp.Connection
	ch             *amqp.Channel
	notifyClose    chan *amqp.Error
	isReconnecting bool
	isClosed       bool
}

func NewRabbitMQClient(config RabbitConfig, logger *zap.Logger) (*RabbitMQClient, error) {
	if config.ReconnectDelay == 0 {
		config.ReconnectDelay = time.Second
	}
	if config.MaxReconnectDelay == 0 {
		config.MaxReconnectDelay = time.Minute
	}
	if config.HeartbeatTimeout == 0 {
		config.HeartbeatTimeout = 10 * time.Second
	}

	client := &RabbitMQClient{config: config, logger: logger}
	if err := client.connect(); err != nil {
		return nil, err
	}

	go client.handleReconnect()
	return client, nil
}

func (r *RabbitMQClient) connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info("connecting to rabbitmq", zap.String("url", maskURL(r.config.URL)))

	conn, err := amqp.DialConfig(r.config.URL, amqp.Config{Heartbeat: r.config.HeartbeatTimeout})
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	r.conn = conn
	r.ch = ch
	r.notifyClose = conn.NotifyClose(make(chan *amqp.Error, 1))
	r.isReconnecting = false
	return nil
}

func (r *RabbitMQClient) handleReconnect() {
	r.mu.RLock()
	notifyClose := r.notifyClose
	r.mu.RUnlock()

	err, ok := <-notifyClose
	if !ok || err == nil {
		return
	}
	r.logger.Warn("rabbitmq connection closed, reconnecting", zap.Error(err))

	r.mu.Lock()
	r.isReconnecting = true
	r.mu.Unlock()

	backoff := r.config.ReconnectDelay
	for {
		r.mu.RLock()
		closed := r.isClosed
		r.mu.RUnlock()
		if closed {
			return
		}

		if err := r.connect(); err == nil {
			r.logger.Info("rabbitmq reconnected")
			go r.handleReconnect()
			return
		}

		time.Sleep(backoff)
		backoff *= 2
		if backoff > r.config.MaxReconnectDelay {
			backoff = r.config.MaxReconnectDelay
		}
	}
}

// DeclareQueueWithDLQ declares a durable queue whose rejected messages go to name.dlq.
func (r *RabbitMQClient) DeclareQueueWithDLQ(name string) (amqp.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.ch == nil {
		return amqp.Queue{}, fmt.Errorf("channel is not initialized")
	}

	dlqName := name + ".dlq"
	if _, err := r.ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare DLQ: %w", err)
	}

	return r.ch.QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	})
}

// Publish sends a persistent JSON message to queueName on the default exchange.
func (r *RabbitMQClient) Publish(ctx context.Context, queueName string, body []byte) error {
	r.mu.RLock()
	if r.isReconnecting || r.ch == nil {
		r.mu.RUnlock()
		return fmt.Errorf("connection is not available")
	}
	ch := r.ch
	r.mu.RUnlock()

	return ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume delivers messages from queueName to handler until ctx is done.
// A handler error rejects the message without requeue, so it lands in the DLQ.
func (r *RabbitMQClient) Consume(ctx context.Context, queueName string, handler func(ctx context.Context, body []byte) error) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		r.mu.RLock()
		ch := r.ch
		ready := !r.isReconnecting && ch != nil
		r.mu.RUnlock()
		if !ready {
			time.Sleep(time.Second)
			continue
		}

		msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
		if err != nil {
			r.logger.Error("failed to register a consumer", zap.String("queue", queueName), zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}

		if done := r.drain(ctx, msgs, handler); done {
			return nil
		}
		r.logger.Warn("consumer channel closed, waiting for reconnection", zap.String("queue", queueName))
		time.Sleep(r.config.ReconnectDelay)
	}
}

func (r *RabbitMQClient) drain(ctx context.Context, msgs <-chan amqp.Delivery, handler func(ctx context.Context, body []byte) error) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case d, ok := <-msgs:
			if !ok {
				return false
			}
			if err := handler(ctx, d.Body); err != nil {
				r.logger.Error("error handling message", zap.Error(err))
				d.Nack(false, false)
				continue
			}
			d.Ack(false)
		}
	}
}

func (r *RabbitMQClient) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.isClosed = true
	if r.ch != nil {
		r.ch.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

func maskURL(url string) string {
	if parts := strings.Split(url, "@"); len(parts) > 1 {
		prefixParts := strings.Split(parts[0], "://")
		if len(prefixParts) == 2 {
			return prefixParts[0] + "://***:***@" + parts[1]
		}
	}
	return url
}
