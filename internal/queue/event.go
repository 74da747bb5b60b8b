// Package queue carries verification emails over RabbitMQ: the API
// publishes a request and a background consumer delivers it.
package queue

import "time"

// VerificationQueueName is the durable queue verification requests go to.
const VerificationQueueName = "email.verification"

// VerificationEmailRequested is published after a user registers or asks
// for a new link. It holds everything the consumer needs to render the
// email without querying the database.
type VerificationEmailRequested struct {
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Token       string    `json:"token"`
	RequestedAt time.Time `json:"requested_at"`
}
