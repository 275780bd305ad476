package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/bookcore/internal/logging"
    "github.com/iliyamo/bookcore/internal/repository"
)

const activityQueueName = "bookcore.activity"

// Consumer listens to every event on the exchange.  It keeps the monthly
// reading statistics up to date (zeroed months on registration, one more
// book read on each return) and appends one line per event to
// <logDir>/activity.log.
type Consumer struct {
    url    string
    stats  repository.StatsStore
    logDir string
    log    logging.Logger
}

// NewConsumer wires a consumer.  An empty logDir defaults to "logs".
func NewConsumer(url string, stats repository.StatsStore, logDir string, log logging.Logger) *Consumer {
    if logDir == "" {
        logDir = "logs"
    }
    return &Consumer{url: url, stats: stats, logDir: logDir, log: log.With("component", "activity-consumer")}
}

// Run connects to the broker and consumes until ctx is cancelled.  Dial
// failures are retried with exponential backoff capped at 30s, and a
// broken consume loop triggers a reconnect, so the server keeps operating
// while the broker is away.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn(ctx, "failed to dial broker", "err", err, "retry_in", backoff.String())
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn(ctx, "consume loop ended; reconnecting", "err", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn(ctx, "set QoS failed", "err", err)
    }
    if err := declareExchange(ch); err != nil {
        return fmt.Errorf("exchange declare: %w", err)
    }
    if _, err := ch.QueueDeclare(activityQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    if err := ch.QueueBind(activityQueueName, "#", ExchangeName, false, nil); err != nil {
        return fmt.Errorf("queue bind: %w", err)
    }

    msgs, err := ch.Consume(activityQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return nil
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.HandleMessage(ctx, d.Body); err != nil {
                c.log.Error(ctx, "handle message failed", "routing_key", d.RoutingKey, "err", err)
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleMessage applies one event body.
func (c *Consumer) HandleMessage(ctx context.Context, body []byte) error {
    var ev Event
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("event without type")
    }

    switch ev.Type {
    case UserRegistered:
        if err := c.stats.InitMonths(ctx, ev.UserID); err != nil {
            return fmt.Errorf("init monthly stats: %w", err)
        }
    case LoanReturned:
        at := ev.OccurredAt
        if ev.ReturnDate != nil {
            at = *ev.ReturnDate
        }
        if err := c.stats.IncrementBooksRead(ctx, ev.UserID, at.UTC().Month().String()); err != nil {
            return fmt.Errorf("increment books read: %w", err)
        }
    }
    return c.appendActivity(ev)
}

func (c *Consumer) appendActivity(ev Event) error {
    if err := os.MkdirAll(c.logDir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(c.logDir, "activity.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatActivity(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// formatActivity renders a single human-friendly line, skipping empty fields.
func formatActivity(ev Event) string {
    parts := []string{fmt.Sprintf("[%s] %s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type)}
    add := func(k, v string) {
        if v != "" {
            parts = append(parts, k+"="+v)
        }
    }
    add("user_id", ev.UserID)
    add("email", ev.Email)
    add("book_id", ev.BookID)
    if ev.BookTitle != "" {
        add("book", fmt.Sprintf("%q", ev.BookTitle))
    }
    add("loan_id", ev.LoanID)
    add("order_id", ev.OrderID)
    add("order_type", ev.OrderType)
    add("status", ev.Status)
    if ev.DueDate != nil {
        add("due", ev.DueDate.UTC().Format(time.RFC3339))
    }
    if ev.ReturnDate != nil {
        add("returned", ev.ReturnDate.UTC().Format(time.RFC3339))
    }
    return strings.Join(parts, " | ") + "\n"
}
