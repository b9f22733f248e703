package publisher

import (
	"context"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/pkg/config"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	logger   *logger.Logger
}

// Init opens a channel on conn and declares the output exchange.
// conn is closed when that fails.
func Init(cfg *config.Config, logger *logger.Logger, conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("error opening channel", zap.Error(err))
		conn.Close()
		return nil, err
	}

	if err = ch.ExchangeDeclare(
		cfg.Exchange.Output,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		logger.Error("error declare output exchange",
			zap.String("exchange", cfg.Exchange.Output),
			zap.Error(err))
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange.Output,
		logger:   logger,
	}, nil
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.logger.Error("error closing channel", zap.Error(err))
	}
	return p.conn.Close()
}

func (p *Publisher) IsHealthy() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

// Publish wraps payload in an event envelope and sends it with the event
// type as routing key
func (p *Publisher) Publish(payload any, routingKey string) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		p.logger.Error("error encode payload for publish", zap.Error(err))
		return err
	}

	event := entity.NewEvent(routingKey, body)

	eventJson, err := sonic.Marshal(event)
	if err != nil {
		p.logger.Error("error encode event for publish",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Type:         event.Type,
			Body:         eventJson,
			Timestamp:    event.Timestamp,
		},
	)
	if err != nil {
		p.logger.Error("error publishing event",
			zap.String("event_id", event.ID),
			zap.String("event_type", routingKey),
			zap.Error(err))
		return err
	}

	p.logger.Info("successfully published event",
		zap.String("event_id", event.ID),
		zap.String("event_type", routingKey),
	)

	return nil
}

// Nop stands in when no broker is configured and only logs what would be sent
type Nop struct {
	Logger *logger.Logger
}

func (n Nop) Publish(_ any, routingKey string) error {
	n.Logger.Debug("event not published, no broker configured",
		zap.String("event_type", routingKey))
	return nil
}
