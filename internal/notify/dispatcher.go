package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ComposeFunc builds the message to send. It runs on the delivery goroutine,
// after the caller has returned.
type ComposeFunc func(ctx context.Context) (Message, error)

// DeliveryError describes a message that could not be delivered.
type DeliveryError struct {
	To  string
	Err error
}

func (e DeliveryError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("notification delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("notification to %s failed: %v", e.To, e.Err)
}

func (e DeliveryError) Unwrap() error { return e.Err }

// DispatcherConfig tunes a Dispatcher. Zero values fall back to defaults.
type DispatcherConfig struct {
	RatePerSecond float64
	Burst         int
	SendTimeout   time.Duration
	ErrorBuffer   int
}

const (
	defaultSendTimeout = 30 * time.Second
	defaultErrorBuffer = 64
)

// Dispatcher sends notifications on background goroutines so that callers
// never wait on, or fail because of, delivery.
type Dispatcher struct {
	notifier Notifier
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *slog.Logger

	errs chan DeliveryError

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(notifier Notifier, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	buf := cfg.ErrorBuffer
	if buf <= 0 {
		buf = defaultErrorBuffer
	}

	return &Dispatcher{
		notifier: notifier,
		limiter:  rate.NewLimiter(limit, burst),
		timeout:  timeout,
		logger:   logger,
		errs:     make(chan DeliveryError, buf),
	}
}

// Dispatch schedules compose and delivery of one message and returns
// immediately. Cancellation of ctx does not abort the delivery; only its
// values are carried over. Dispatch after Close is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, compose ComposeFunc) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.WarnContext(ctx, "dispatcher closed, notification dropped")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		d.deliver(bg, compose)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, compose ComposeFunc) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		d.report(ctx, DeliveryError{Err: fmt.Errorf("waiting for send slot: %w", err)})
		return
	}

	msg, err := compose(ctx)
	if err != nil {
		d.report(ctx, DeliveryError{Err: fmt.Errorf("composing message: %w", err)})
		return
	}

	ok, err := d.notifier.Send(ctx, msg)
	switch {
	case err != nil:
		d.report(ctx, DeliveryError{To: msg.To, Err: err})
	case !ok:
		d.report(ctx, DeliveryError{To: msg.To, Err: ErrNotAccepted})
	default:
		d.logger.DebugContext(ctx, "notification delivered", "to", msg.To, "subject", msg.Subject)
	}
}

func (d *Dispatcher) report(ctx context.Context, de DeliveryError) {
	select {
	case d.errs <- de:
	default:
		d.logger.ErrorContext(ctx, "delivery error buffer full, dropping", "to", de.To, "error", de.Err)
	}
}

// Errors returns the stream of delivery failures. The channel is closed by Close.
func (d *Dispatcher) Errors() <-chan DeliveryError {
	return d.errs
}

// Close stops accepting new work, waits for in-flight deliveries and closes
// the error channel.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	close(d.errs)
}
