// Package consumer reads form requests from RabbitMQ
package consumer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/pkg/config"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// EXCHANGE_TYPE routes each request type to the queues bound with that key
	EXCHANGE_TYPE = "direct"

	DEFAULT_RECONNECT_DELAY = 5 * time.Second
)

type binding struct {
	exchange   string
	routingKey string
	queue      string
}

type Consumer struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	logger       *logger.Logger
	cfg          *config.Config
	bindings     []binding
	mu           sync.RWMutex
	isConnected  bool
	reconnecting bool
}

// Init opens a channel and declares the request exchange
func Init(cfg *config.Config, logger *logger.Logger, conn *amqp.Connection) (*Consumer, error) {
	if cfg == nil || logger == nil || conn == nil {
		return nil, fmt.Errorf("invalid parameters: cfg, logger, and conn cannot be nil")
	}

	consumer := &Consumer{
		conn:        conn,
		logger:      logger,
		cfg:         cfg,
		isConnected: true,
	}

	if err := consumer.initializeChannel(); err != nil {
		return nil, fmt.Errorf("failed to initialize channel: %w", err)
	}

	if err := consumer.declareExchange(cfg.Exchange.Request); err != nil {
		consumer.cleanup()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return consumer, nil
}

func (c *Consumer) initializeChannel() error {
	channel, err := c.conn.Channel()
	if err != nil {
		c.logger.Error("failed to open channel", zap.Error(err))
		return err
	}

	c.channel = channel
	return nil
}

func (c *Consumer) declareExchange(exchangeName string) error {
	if err := c.channel.ExchangeDeclare(
		exchangeName,
		EXCHANGE_TYPE,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		c.logger.Error("failed to declare exchange",
			zap.String("exchange", exchangeName),
			zap.Error(err))
		return err
	}

	return nil
}

// Subscribe declares queueName and binds it to exchange under routingKey.
// Bindings are remembered and restored after a reconnect.
func (c *Consumer) Subscribe(exchange, routingKey, queueName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected {
		return fmt.Errorf("consumer is not connected")
	}

	b := binding{exchange: exchange, routingKey: routingKey, queue: queueName}
	if err := c.bind(b); err != nil {
		return err
	}

	c.bindings = append(c.bindings, b)

	return nil
}

func (c *Consumer) bind(b binding) error {
	if _, err := c.channel.QueueDeclare(
		b.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		c.logger.Error("failed to declare queue",
			zap.String("queue", b.queue),
			zap.Error(err))
		return fmt.Errorf("failed to declare queue %s: %w", b.queue, err)
	}

	if err := c.channel.QueueBind(
		b.queue,
		b.routingKey,
		b.exchange,
		false, // noWait
		nil,
	); err != nil {
		c.logger.Error("failed to bind queue to exchange",
			zap.String("queue", b.queue),
			zap.String("exchange", b.exchange),
			zap.String("routing_key", b.routingKey),
			zap.Error(err))
		return fmt.Errorf("failed to bind queue %s to exchange %s: %w", b.queue, b.exchange, err)
	}

	return nil
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isConnected = false

	var errors []error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("error closing channel", zap.Error(err))
			errors = append(errors, fmt.Errorf("channel close error: %w", err))
		}
	}

	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("error closing connection", zap.Error(err))
			errors = append(errors, fmt.Errorf("connection close error: %w", err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("errors during close: %v", errors)
	}

	return nil
}

func (c *Consumer) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.isConnected && c.conn != nil && !c.conn.IsClosed()
}

// ConsumeMessages decodes deliveries from the request queue into events
// and passes them to outputChan until ctx is done. A lost connection is
// re-established and the bindings restored.
func (c *Consumer) ConsumeMessages(ctx context.Context, outputChan chan<- entity.Event) {
	if outputChan == nil {
		c.logger.Error("output channel cannot be nil")
		return
	}

	for ctx.Err() == nil {
		if !c.IsHealthy() {
			c.logger.Warn("connection is unhealthy, attempting to reconnect...")
			if err := c.handleReconnection(); err != nil {
				c.logger.Error("failed to reconnect", zap.Error(err))
				sleep(ctx, DEFAULT_RECONNECT_DELAY)
				continue
			}
		}

		if err := c.startConsuming(ctx, outputChan); err != nil {
			c.logger.Error("consuming stopped with error", zap.Error(err))
			sleep(ctx, DEFAULT_RECONNECT_DELAY)
		}
	}

	c.logger.Info("consumer stopped")
}

func (c *Consumer) handleReconnection() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reconnecting {
		return fmt.Errorf("reconnection already in progress")
	}

	c.reconnecting = true
	defer func() { c.reconnecting = false }()

	return c.reconnect()
}

func (c *Consumer) startConsuming(ctx context.Context, outputChan chan<- entity.Event) error {
	c.mu.RLock()
	channel := c.channel
	c.mu.RUnlock()

	msgs, err := channel.ConsumeWithContext(ctx,
		c.cfg.Queue.Request,
		"",    // consumer identifier
		true,  // auto-acknowledge
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("successfully connected to RabbitMQ, waiting for messages...",
		zap.String("queue", c.cfg.Queue.Request))

	for msg := range msgs {
		if err := c.processMessage(ctx, msg, outputChan); err != nil {
			c.logger.Error("failed to process message", zap.Error(err))
		}
	}

	if ctx.Err() != nil {
		return nil
	}

	return fmt.Errorf("message channel closed")
}

func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery, outputChan chan<- entity.Event) error {
	event := new(entity.Event)
	if err := sonic.Unmarshal(msg.Body, event); err != nil {
		c.logger.Error("failed to unmarshal event",
			zap.Error(err),
			zap.ByteString("body", msg.Body))
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	if event.Type == "" {
		event.Type = msg.RoutingKey
	}

	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	c.logger.Debug("received new event",
		zap.String("event_id", event.ID),
		zap.String("routing_key", event.Type),
		zap.Time("timestamp", event.Timestamp))

	select {
	case outputChan <- *event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reconnect dials again, reopens the channel and restores exchanges and
// bindings. Callers hold c.mu.
func (c *Consumer) reconnect() error {
	c.cleanup()

	conn, err := amqp.Dial(c.cfg.Urls.Rabbitmq)
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	c.conn = conn

	if err := c.initializeChannel(); err != nil {
		c.conn.Close()
		return err
	}

	if err := c.declareExchange(c.cfg.Exchange.Request); err != nil {
		c.cleanup()
		return err
	}

	for _, b := range c.bindings {
		if err := c.bind(b); err != nil {
			c.cleanup()
			return err
		}
	}

	c.isConnected = true
	c.logger.Info("successfully reconnected to RabbitMQ")
	return nil
}

func (c *Consumer) cleanup() {
	c.isConnected = false

	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
