// Package notify delivers push signals to users' devices.
//
// Delivery is fire-and-forget: callers hand a Push to a Dispatcher after
// their transaction commits and never see the outcome. Failures are logged.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Elizabethomito/nearby/internal/logging"
)

// Push is one notification for one device.
type Push struct {
	DeviceToken string            `json:"to"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
}

// Notifier sends a single push.
type Notifier interface {
	Send(ctx context.Context, p Push) error
}

// LogNotifier only logs pushes. Used when no push gateway is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, p Push) error {
	logging.OrDefault(n.Logger).InfoContext(ctx, "push", "title", p.Title, "body", p.Body, "data", p.Data)
	return nil
}

// Dispatcher sends pushes in the background.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher wraps n. timeout bounds each send; zero means 5s.
func NewDispatcher(n Notifier, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{notifier: n, logger: logging.OrDefault(logger), timeout: timeout}
}

// Signal starts delivering p and returns immediately. Pushes without a
// device token are dropped. ctx only contributes its values; cancelling it
// does not abort the send.
func (d *Dispatcher) Signal(ctx context.Context, p Push) {
	if d == nil || d.notifier == nil {
		return
	}
	if p.DeviceToken == "" {
		d.logger.DebugContext(ctx, "push skipped: no device token", "title", p.Title)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.notifier.Send(sendCtx, p); err != nil {
			d.logger.WarnContext(sendCtx, "push delivery failed", "title", p.Title, "error", err)
		}
	}()
}

// Wait blocks until every in-flight push has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
