// Package notify delivers outbound messages (confirmation emails) outside the
// request lifecycle.
package notify

import (
	"context"
	"errors"
)

// ErrNotAccepted is reported when a notifier declines a message without an error.
var ErrNotAccepted = errors.New("message not accepted for delivery")

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string // HTML
}

// Notifier delivers a message. It returns true when the message was accepted
// for delivery by the underlying transport.
type Notifier interface {
	Send(ctx context.Context, msg Message) (bool, error)
}
