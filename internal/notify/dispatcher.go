package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"callrecovery/internal/accounts"
	"callrecovery/internal/calls"
	"callrecovery/pkg/logger"
)

// Recorder receives notification results. *metrics.Metrics satisfies it.
type Recorder interface {
	Notification(channel, result string)
}

// Dispatcher sends owner notifications off the request path.
//
// A failure here is logged and counted, never returned: the call row is
// already stored by the time Notify runs.
type Dispatcher struct {
	Sender       Sender
	From         string
	DashboardURL string
	Timeout      time.Duration
	Log          *slog.Logger
	Metrics      Recorder

	wg sync.WaitGroup
}

// Notify starts delivery in the background and returns immediately.
// The request context's values are kept but its cancellation is not.
func (d *Dispatcher) Notify(ctx context.Context, a accounts.Account, r calls.Record) {
	if d == nil || d.Sender == nil {
		return
	}
	if !ShouldNotify(a.Preferences, r) || strings.TrimSpace(a.Email) == "" {
		d.record("skipped")
		return
	}
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		err := d.deliver(ctx, a, r)
		switch {
		case errors.Is(err, ErrNoRecipient):
			d.record("skipped")
		case err != nil:
			d.logFor(ctx).Warn("notification failed", "call_id", r.ID, "user_id", a.ID, "err", err)
			d.record("failed")
		default:
			d.record("sent")
		}
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, a accounts.Account, r calls.Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("notify: panic: %v", p)
		}
	}()
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e, err := Compose(a, r, d.From, d.DashboardURL)
	if err != nil {
		return err
	}
	return d.Sender.Send(ctx, e)
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if d == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) record(result string) {
	if d.Metrics == nil {
		return
	}
	d.Metrics.Notification(d.Sender.Channel(), result)
}

func (d *Dispatcher) logFor(ctx context.Context) *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return logger.From(ctx)
}
