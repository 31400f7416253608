package notify

import (
	"context"
	"log/slog"
)

// LogNotifier accepts every message and only records that it would have been sent.
// It is used when outbound email is disabled.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) (bool, error) {
	n.logger.InfoContext(ctx, "email delivery disabled, message discarded",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return true, nil
}
