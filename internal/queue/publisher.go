package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends VerificationEmailRequested events. It satisfies the
// service Mailer contract so that MAIL_TRANSPORT=queue moves delivery off
// the request path.
type Publisher struct {
	url string
	now func() time.Time
}

func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, now: time.Now}
}

// SendVerification publishes one persistent message to the default
// exchange, routed to VerificationQueueName.
func (p *Publisher) SendVerification(ctx context.Context, email, username, token string) error {
	body, err := json.Marshal(VerificationEmailRequested{
		Email:       email,
		Username:    username,
		Token:       token,
		RequestedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch); err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", VerificationQueueName, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// declare makes sure the durable queue exists (idempotent).
func declare(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(VerificationQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return nil
}
