package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/storefront-api/internal/logging"
)

// VerificationSender delivers one verification email.
type VerificationSender interface {
	SendVerification(ctx context.Context, email, username, token string) error
}

// Consumer drains VerificationQueueName and hands each request to a
// VerificationSender.
type Consumer struct {
	url    string
	sender VerificationSender
	log    logging.Logger
}

func NewConsumer(url string, sender VerificationSender, log logging.Logger) *Consumer {
	return &Consumer{url: url, sender: sender, log: log.With("component", "verification-consumer")}
}

// Run connects to the broker and consumes until ctx is cancelled. Dial
// failures back off exponentially up to 30s; a dropped channel reconnects.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn(ctx, "broker_dial_failed", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.log.Warn(ctx, "consume_loop_ended", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.log.Warn(ctx, "set_qos_failed", "error", err)
	}
	if err := declare(ch); err != nil {
		return err
	}

	msgs, err := ch.Consume(VerificationQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.log.Error(ctx, "send_email_verification_failed", "error", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev VerificationEmailRequested
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Email == "" || ev.Token == "" {
		return errors.New("event missing email or token")
	}
	if err := c.sender.SendVerification(ctx, ev.Email, ev.Username, ev.Token); err != nil {
		return err
	}
	c.log.Info(ctx, "send_email_verification_success", "email", ev.Email)
	return nil
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
