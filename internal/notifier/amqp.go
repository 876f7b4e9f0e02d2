package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// ErrBadAMQPURL indicates an AMQP URL with an unsupported scheme.
var ErrBadAMQPURL = errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")

// Channel is the subset of *amqp.Channel used to publish notifications.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publishes notifications as JSON to a RabbitMQ topic exchange. The
// routing key is "notification.<level>".
type AMQP struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
}

// DialAMQP connects to the broker at rawURL and declares exchange.
func DialAMQP(rawURL, exchange string) (*AMQP, error) {
	cleanURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	p, err := NewAMQP(ch, exchange)
	if err != nil {
		conn.Close()
		return nil, err
	}

	p.conn = conn

	return p, nil
}

// NewAMQP returns a publisher over an open channel and declares exchange.
func NewAMQP(ch Channel, exchange string) (*AMQP, error) {
	err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	return &AMQP{
		channel:  ch,
		exchange: exchange,
	}, nil
}

// Notify publishes n.
func (p *AMQP) Notify(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx, p.exchange, "notification."+string(n.Level), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID.String(),
		Timestamp:    n.CreatedAt,
		Body:         body,
	})
}

// Close releases the channel and connection.
func (p *AMQP) Close() error {
	err := p.channel.Close()

	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	return err
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")

	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}

	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", ErrBadAMQPURL
	}

	return clean, nil
}
