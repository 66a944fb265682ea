package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/larder/internal/notify"
)

// JobName identifies the recurring expiry sweep.
const JobName = "expiry_notification_work"

// ErrSweepRunning is returned when a sweep is triggered while one is active.
var ErrSweepRunning = errors.New("expiry sweep already running")

// Schedule is the cadence of the recurring sweep.
type Schedule struct {
	Interval     time.Duration `json:"interval"`
	InitialDelay time.Duration `json:"initial_delay"`
}

// DefaultSchedule runs the sweep daily, starting a minute after registration.
func DefaultSchedule() Schedule {
	return Schedule{Interval: 24 * time.Hour, InitialDelay: time.Minute}
}

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateError   State = "error"
)

// Status is a snapshot of the scheduler.
type Status struct {
	Job        string     `json:"job"`
	State      State      `json:"state"`
	Registered bool       `json:"registered"`
	Schedule   Schedule   `json:"schedule"`
	NextRun    *time.Time `json:"next_run,omitempty"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	LastReport *Report    `json:"last_report,omitempty"`
}

// StatusCallback is called whenever the scheduler's status changes.
type StatusCallback func(Status)

// Options tune a Scheduler. Zero values take defaults.
type Options struct {
	Concurrency int
	Location    *time.Location
	Now         func() time.Time
	Backoff     func() retry.Backoff
}

// Scheduler owns the recurring expiry sweep. At most one loop is registered
// and at most one sweep runs at a time.
type Scheduler struct {
	sweep  sweeper
	logger *slog.Logger

	runMu   sync.Mutex
	running bool

	// regMu serialises Register and Stop.
	regMu sync.Mutex

	mu       sync.RWMutex
	status   Status
	callback StatusCallback
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a sweep scheduler. Nothing runs until Register or
// RunNow is called.
func NewScheduler(products ProductSource, prefs PreferenceSource, notifier notify.Notifier, logger *slog.Logger, opts Options) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Backoff == nil {
		opts.Backoff = DefaultBackoff
	}

	return &Scheduler{
		sweep: sweeper{
			products:    products,
			prefs:       prefs,
			notifier:    notifier,
			now:         opts.Now,
			location:    opts.Location,
			concurrency: opts.Concurrency,
			backoff:     opts.Backoff,
			logger:      logger,
		},
		logger: logger,
		status: Status{Job: JobName, State: StateIdle},
	}
}

// SetStatusCallback sets a function called on every status change.
func (s *Scheduler) SetStatusCallback(fn StatusCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = fn
}

// Status returns a copy of the current status.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Register starts the recurring sweep. A previous registration is stopped
// and waited for first, so registrations replace rather than stack.
func (s *Scheduler) Register(ctx context.Context, sched Schedule) {
	if sched.Interval <= 0 {
		sched.Interval = DefaultSchedule().Interval
	}
	if sched.InitialDelay < 0 {
		sched.InitialDelay = 0
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()

	s.stop()

	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	s.done = done
	next := time.Now().Add(sched.InitialDelay)
	s.status.Registered = true
	s.status.Schedule = sched
	s.status.NextRun = &next
	s.mu.Unlock()

	s.logger.Info("expiry sweep registered", "job", JobName,
		"interval", sched.Interval, "initial_delay", sched.InitialDelay)

	go s.loop(ctx, sched, done)
}

func (s *Scheduler) loop(ctx context.Context, sched Schedule, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(sched.InitialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := s.RunNow(ctx); err != nil {
				if errors.Is(err, ErrSweepRunning) {
					s.logger.Debug("skipping scheduled sweep, previous run still active")
				} else {
					s.logger.Error("scheduled expiry sweep failed", "error", err)
				}
			}
			if ctx.Err() != nil {
				return
			}
			timer.Reset(sched.Interval)
			s.setNextRun(time.Now().Add(sched.Interval))
		}
	}
}

// Stop cancels the registered loop, if any, and waits for it to exit.
// A sweep in progress sees its context cancelled.
func (s *Scheduler) Stop() {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	s.stop()
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.status.Registered = false
	s.status.NextRun = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// RunNow performs one sweep immediately. It returns ErrSweepRunning,
// without doing anything, when another sweep is active.
func (s *Scheduler) RunNow(ctx context.Context) (Report, error) {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return Report{}, ErrSweepRunning
	}
	s.running = true
	s.runMu.Unlock()

	defer func() {
		s.runMu.Lock()
		s.running = false
		s.runMu.Unlock()
	}()

	s.update(func(st *Status) { st.State = StateRunning })

	report, err := s.sweep.run(ctx)

	s.update(func(st *Status) {
		finished := report.FinishedAt
		st.LastRun = &finished
		st.LastReport = &report
		if err != nil {
			st.State = StateError
			st.LastError = err.Error()
			return
		}
		st.State = StateIdle
		st.LastError = ""
	})

	if err != nil {
		return report, err
	}

	s.logger.Info("expiry sweep completed",
		"run_id", report.RunID,
		"products", report.Products,
		"notified", report.Notified,
		"failed", report.Failed,
		"degraded", report.Degraded,
		"duration", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

func (s *Scheduler) setNextRun(t time.Time) {
	s.update(func(st *Status) { st.NextRun = &t })
}

func (s *Scheduler) update(fn func(*Status)) {
	s.mu.Lock()
	fn(&s.status)
	status := s.status
	cb := s.callback
	s.mu.Unlock()

	if cb != nil {
		cb(status)
	}
}
