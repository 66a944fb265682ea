package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/larder/internal/expiry"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/notify"
)

// ProductSource supplies the products a sweep evaluates.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
}

// PreferenceSource supplies the notification preferences for a sweep.
type PreferenceSource interface {
	GetPreferences(ctx context.Context) (model.NotificationPreferences, error)
}

// Report summarises one sweep run.
type Report struct {
	RunID      uuid.UUID           `json:"run_id"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Products   int                 `json:"products"`
	Notified   int                 `json:"notified"`
	ByTier     map[notify.Tier]int `json:"by_tier"`
	Failed     int                 `json:"failed"`
	// Degraded counts notified products that some channels failed to reach.
	Degraded int `json:"degraded"`
}

// DefaultBackoff retries a failed fetch up to five times, starting at one
// second and doubling, never waiting more than thirty seconds.
func DefaultBackoff() retry.Backoff {
	return retry.WithCappedDuration(30*time.Second,
		retry.WithMaxRetries(5, retry.NewExponential(time.Second)))
}

// sweeper runs a single pass over the products. It only reads from storage.
type sweeper struct {
	products    ProductSource
	prefs       PreferenceSource
	notifier    notify.Notifier
	now         func() time.Time
	location    *time.Location
	concurrency int
	backoff     func() retry.Backoff
	logger      *slog.Logger
}

func (s *sweeper) run(ctx context.Context) (Report, error) {
	now := s.now().In(s.location)
	report := Report{
		RunID:     uuid.New(),
		StartedAt: now,
		ByTier:    make(map[notify.Tier]int),
	}
	logger := s.logger.With("run_id", report.RunID)

	prefs, err := retry.DoValue(ctx, s.backoff(), func(ctx context.Context) (model.NotificationPreferences, error) {
		p, err := s.prefs.GetPreferences(ctx)
		if err != nil {
			logger.Warn("fetch preferences failed, retrying", "error", err)
			return p, retry.RetryableError(err)
		}
		return p, nil
	})
	if err != nil {
		report.FinishedAt = s.now().In(s.location)
		return report, fmt.Errorf("fetch preferences: %w", err)
	}

	products, err := retry.DoValue(ctx, s.backoff(), func(ctx context.Context) ([]model.Product, error) {
		p, err := s.products.ListProducts(ctx)
		if err != nil {
			logger.Warn("fetch products failed, retrying", "error", err)
			return nil, retry.RetryableError(err)
		}
		return p, nil
	})
	if err != nil {
		report.FinishedAt = s.now().In(s.location)
		return report, fmt.Errorf("fetch products: %w", err)
	}
	report.Products = len(products)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, p := range products {
		if ctx.Err() != nil {
			break
		}

		n, ok, err := s.evaluate(p, prefs, now)
		if err != nil {
			logger.Error("evaluate product", "product_id", p.ID, "error", err)
			mu.Lock()
			report.Failed++
			mu.Unlock()
			continue
		}
		if !ok {
			continue
		}

		g.Go(func() error {
			err := s.deliver(ctx, n)
			var derr *notify.DeliveryError
			partial := errors.As(err, &derr) && derr.Partial()

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
			case partial:
				logger.Warn("notification partially delivered", "product_id", n.ProductID, "tier", n.Tier, "error", err)
				report.Degraded++
			default:
				logger.Warn("deliver notification", "product_id", n.ProductID, "tier", n.Tier, "error", err)
				report.Failed++
				return nil
			}
			report.Notified++
			report.ByTier[n.Tier]++
			return nil
		})
	}
	g.Wait()

	report.FinishedAt = s.now().In(s.location)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("sweep interrupted: %w", err)
	}
	return report, nil
}

// evaluate decides whether p earns a notification. A panic is turned into
// an error so one bad record cannot stop the sweep.
func (s *sweeper) evaluate(p model.Product, prefs model.NotificationPreferences, now time.Time) (n notify.Notification, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating product %d: %v", p.ID, r)
		}
	}()

	tier, ok := notify.ShouldNotify(p, prefs, now)
	if !ok {
		return notify.Notification{}, false, nil
	}
	return notify.Build(p, tier, expiry.DaysUntil(p.ExpiryDate, now)), true, nil
}

func (s *sweeper) deliver(ctx context.Context, n notify.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic delivering notification %d: %v", n.ID, r)
		}
	}()
	return s.notifier.Notify(ctx, n)
}
