package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// amqpChannel は *amqp.Channel のうち使う部分だけ
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel amqpChannel
	logger  *zap.SugaredLogger
	mu      sync.Mutex
}

// 接続してfanout exchangeを宣言する
func NewRabbitMQPublisher(url string, logger *zap.SugaredLogger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p, err := newPublisherWithChannel(ch, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisherWithChannel(ch amqpChannel, logger *zap.SugaredLogger) (*RabbitMQPublisher, error) {
	err := ch.ExchangeDeclare(
		ExchangeOrderEvents, // name
		"fanout",            // type
		true,                // durable
		false,               // auto-deleted
		false,               // internal
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare %s exchange: %w", ExchangeOrderEvents, err)
	}
	return &RabbitMQPublisher{channel: ch, logger: logger}, nil
}

func (p *RabbitMQPublisher) PublishOrderStatusChanged(ctx context.Context, ev OrderStatusChanged) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// channelはgoroutine安全ではない
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		ctx,
		ExchangeOrderEvents,
		RoutingOrderStatusChange,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.ChangedAt,
			Type:         RoutingOrderStatusChange,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", RoutingOrderStatusChange, err)
	}

	p.logger.Debugw("event published", "type", RoutingOrderStatusChange, "order_id", ev.OrderID, "new_status", ev.NewStatus)
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
