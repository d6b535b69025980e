package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ejuuz/wallet-service/internal/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AMQPNotifier publishes events to a RabbitMQ topic exchange. Routing
// keys are the event kinds (wallet.credit, order.payment, ...), so
// consumers can bind to the subset they care about.
type AMQPNotifier struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      zerolog.Logger
}

// NewAMQPNotifier dials the broker and declares the exchange.
func NewAMQPNotifier(url, exchange string, log zerolog.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %q: %w", exchange, err)
	}
	return &AMQPNotifier{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		log:      log,
	}, nil
}

// Notify publishes the event as a persistent JSON message.
func (n *AMQPNotifier) Notify(ctx context.Context, event ports.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	err = n.channel.PublishWithContext(ctx, n.exchange, event.Kind, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.At,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", event.Kind, err)
	}
	return nil
}

// Close releases the channel and connection.
func (n *AMQPNotifier) Close() {
	if err := n.channel.Close(); err != nil {
		n.log.Warn().Err(err).Msg("closing AMQP channel")
	}
	if err := n.conn.Close(); err != nil {
		n.log.Warn().Err(err).Msg("closing AMQP connection")
	}
}
