package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	domain "github.com/oshokin/alarm-panel/internal/domain/alarm"
	"github.com/oshokin/alarm-panel/internal/logger"
	repo "github.com/oshokin/alarm-panel/internal/repository/state"
	"github.com/oshokin/alarm-panel/internal/worker"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 15 * time.Second

// Entry is the configuration entry of one panel.
type Entry struct {
	// ID is the stable unique identifier.
	ID string
	// Name is the device name.
	Name string
	// Code is the stored disarm code.
	Code string
}

// Client is the vendor API the coordinator and the adapter use.
type Client interface {
	GetStatus() (string, error)
	ArmFull() (bool, error)
	ArmPartial() (bool, error)
	Disarm() (bool, error)
}

// Listener is notified after every refresh attempt.
type Listener func(ctx context.Context, status domain.Status)

// Coordinator polls one panel and keeps its last known status.
type Coordinator struct {
	// entry is the panel configuration.
	entry Entry
	// client is the vendor API.
	client Client
	// executor runs the blocking vendor calls.
	executor worker.Executor
	// repo persists the status between restarts, optional.
	repo repo.Repository

	// cell is the last known status.
	cell StatusCell
	// lastUpdateSuccess is false until a refresh succeeds and after one fails.
	lastUpdateSuccess atomic.Bool

	interval   time.Duration
	newBackOff func() backoff.BackOff
	onRefresh  func(err error)
	now        func() time.Time

	// listenersMu guards listeners.
	listenersMu sync.RWMutex
	listeners   []Listener
}

// Option configures the coordinator.
type Option func(*Coordinator)

// WithRepository persists and restores the status.
func WithRepository(repository repo.Repository) Option {
	return func(c *Coordinator) {
		c.repo = repository
	}
}

// WithPollInterval sets the delay between successful refreshes.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Coordinator) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithBackOff sets the policy used between failed refreshes.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Coordinator) {
		if newBackOff != nil {
			c.newBackOff = newBackOff
		}
	}
}

// WithRefreshObserver is called with the result of every refresh.
func WithRefreshObserver(observer func(err error)) Option {
	return func(c *Coordinator) {
		c.onRefresh = observer
	}
}

// New creates a coordinator and restores the persisted status if any.
// An unreadable snapshot is logged and ignored.
func New(ctx context.Context, entry Entry, client Client, executor worker.Executor, opts ...Option) *Coordinator {
	c := &Coordinator{
		entry:    entry,
		client:   client,
		executor: executor,
		interval: DefaultPollInterval,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.newBackOff == nil {
		c.newBackOff = func() backoff.BackOff {
			return defaultBackOff(c.interval)
		}
	}

	if c.repo == nil {
		return c
	}

	status, err := c.repo.Load(ctx, entry.ID)
	switch {
	case err == nil:
		c.cell.restore(status)
		logger.InfoKV(ctx, "Restored panel status", "status", status.Keyword, "changed_at", status.ChangedAt)
	case errors.Is(err, repo.ErrNotFound):
		// Nothing seen yet.
	default:
		logger.WarnKV(ctx, "Ignoring unreadable panel status snapshot", "error", err)
	}

	return c
}

// defaultBackOff retries quickly at first and never gives up.
func defaultBackOff(interval time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 4 * interval
	b.MaxElapsedTime = 0

	return b
}

// Entry returns the panel configuration.
func (c *Coordinator) Entry() Entry {
	return c.entry
}

// Client returns the vendor API.
func (c *Coordinator) Client() Client {
	return c.client
}

// Status returns the last known status.
func (c *Coordinator) Status() domain.Status {
	return c.cell.Load()
}

// LastUpdateSuccess reports whether the last refresh succeeded.
func (c *Coordinator) LastUpdateSuccess() bool {
	return c.lastUpdateSuccess.Load()
}

// SetStatus stores keyword as the current status and persists it when it changed.
// Listeners are not notified; the writer publishes its own state.
func (c *Coordinator) SetStatus(ctx context.Context, keyword string) domain.Status {
	status, changed := c.cell.Store(keyword, c.now())
	if changed {
		c.persist(ctx, status)
	}

	return status
}

// AddListener registers l for refresh notifications.
func (c *Coordinator) AddListener(l Listener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	c.listeners = append(c.listeners, l)
}

// Refresh fetches the status once and notifies listeners.
func (c *Coordinator) Refresh(ctx context.Context) error {
	err := c.refresh(ctx)

	if c.onRefresh != nil {
		c.onRefresh(err)
	}

	c.notify(ctx)

	return err
}

func (c *Coordinator) refresh(ctx context.Context) error {
	future, err := worker.Submit(ctx, c.executor, c.client.GetStatus)
	if err != nil {
		c.lastUpdateSuccess.Store(false)

		return fmt.Errorf("submit status request: %w", err)
	}

	keyword, err := future.Await()
	if err != nil {
		c.lastUpdateSuccess.Store(false)

		return fmt.Errorf("fetch status: %w", err)
	}

	previous := c.cell.Load()
	status := c.SetStatus(ctx, keyword)
	c.lastUpdateSuccess.Store(true)

	if previous.Keyword != status.Keyword {
		logger.InfoKV(ctx, "Panel status changed", "from", previous.Keyword, "to", status.Keyword)
	}

	if _, known := status.State(); !known {
		logger.WarnKV(ctx, "Panel reported an unrecognized status", "status", status.Keyword)
	}

	return nil
}

// Run refreshes immediately and then every poll interval until ctx is done.
// Failed refreshes are retried with back-off instead of the poll interval.
func (c *Coordinator) Run(ctx context.Context) error {
	ctx = logger.WithKV(ctx, "entry", c.entry.ID)

	policy := c.newBackOff()
	policy.Reset()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Coordinator stopped")

			return nil
		case <-timer.C:
			if err := c.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}

				delay := policy.NextBackOff()
				if delay == backoff.Stop {
					delay = c.interval
				}

				logger.WarnKV(ctx, "Status refresh failed", "error", err, "retry_in", delay.String())
				timer.Reset(delay)

				continue
			}

			policy.Reset()
			timer.Reset(c.interval)
		}
	}
}

func (c *Coordinator) persist(ctx context.Context, status domain.Status) {
	if c.repo == nil {
		return
	}

	if err := c.repo.Save(ctx, c.entry.ID, status); err != nil {
		logger.ErrorKV(ctx, "Failed to persist panel status", "error", err)
	}
}

func (c *Coordinator) notify(ctx context.Context) {
	c.listenersMu.RLock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.listenersMu.RUnlock()

	status := c.cell.Load()
	for _, l := range listeners {
		l(ctx, status)
	}
}
