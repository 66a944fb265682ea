package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Notifier delivers a notification. Implementations may fail; callers treat
// delivery as best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// DeliveryError lists the notifiers that failed for one notification.
// Delivered counts the ones that succeeded.
type DeliveryError struct {
	Delivered int
	Errs      []error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%d of %d notifiers failed: %v",
		len(e.Errs), len(e.Errs)+e.Delivered, errors.Join(e.Errs...))
}

func (e *DeliveryError) Unwrap() []error {
	return e.Errs
}

// Partial reports whether at least one notifier succeeded.
func (e *DeliveryError) Partial() bool {
	return e.Delivered > 0
}

// Fanout delivers each notification to every configured notifier. A failing
// notifier is logged and does not stop the others; the failures come back
// as a *DeliveryError once every notifier has been tried.
type Fanout struct {
	notifiers []Notifier
	logger    *slog.Logger
}

func NewFanout(logger *slog.Logger, notifiers ...Notifier) *Fanout {
	f := &Fanout{logger: logger}
	for _, n := range notifiers {
		if n != nil {
			f.notifiers = append(f.notifiers, n)
		}
	}
	return f
}

// Add registers another notifier.
func (f *Fanout) Add(n Notifier) {
	f.notifiers = append(f.notifiers, n)
}

func (f *Fanout) Len() int {
	return len(f.notifiers)
}

func (f *Fanout) Notify(ctx context.Context, n Notification) error {
	var derr DeliveryError
	for _, target := range f.notifiers {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := typeName(target)
		if err := target.Notify(ctx, n); err != nil {
			f.logger.Warn("notification delivery failed",
				"product_id", n.ProductID, "tier", n.Tier, "notifier", name, "error", err)
			derr.Errs = append(derr.Errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		derr.Delivered++
	}
	if len(derr.Errs) > 0 {
		return &derr
	}
	return nil
}

func typeName(n Notifier) string {
	if s, ok := n.(interface{ Name() string }); ok {
		return s.Name()
	}
	return "notifier"
}
