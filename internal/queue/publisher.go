package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher publishes events to the topic exchange.  It dials the
// broker for every publish.  Errors are returned with the failing step and
// not logged here; the caller decides how loud a lost event is.
type AMQPPublisher struct {
    url string
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string) *AMQPPublisher {
    return &AMQPPublisher{url: url}
}

// Publish sends ev with its type as routing key.  Messages are persistent.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return fmt.Errorf("rabbitmq dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("rabbitmq channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := declareExchange(ch); err != nil {
        return fmt.Errorf("rabbitmq declare exchange: %w", err)
    }

    if ev.OccurredAt.IsZero() {
        ev.OccurredAt = time.Now().UTC()
    }
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    ev.OccurredAt,
        Type:         ev.Type,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, ExchangeName, ev.Type, false, false, pub); err != nil {
        return fmt.Errorf("rabbitmq publish %s: %w", ev.Type, err)
    }
    return nil
}

// declareExchange makes sure the durable topic exchange exists.
func declareExchange(ch *amqp.Channel) error {
    return ch.ExchangeDeclare(
        ExchangeName, // name
        "topic",      // kind
        true,         // durable
        false,        // autoDelete
        false,        // internal
        false,        // noWait
        nil,          // args
    )
}
