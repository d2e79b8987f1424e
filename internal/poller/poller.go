// Package poller keeps a tracking record fresh by re-fetching it on an
// interval until the application reaches a final status.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iwvelando/loan-leads/pkg/constants"
	"github.com/iwvelando/loan-leads/pkg/tracking"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrAlreadyStarted is returned when Run is called twice on a Controller.
	ErrAlreadyStarted = errors.New("poller: already started")
	// ErrStopped is returned by Refetch once the polling session was
	// cancelled; the fetched result is discarded.
	ErrStopped = errors.New("poller: stopped")
)

// Fetcher retrieves the current tracking record for a reference number.
// Failures should be *tracking.Error values; anything else is treated as a
// network error.
type Fetcher interface {
	FetchStatus(ctx context.Context, uuid string) (*tracking.ApplicationTracking, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, uuid string) (*tracking.ApplicationTracking, error)

// FetchStatus calls f(ctx, uuid).
func (f FetcherFunc) FetchStatus(ctx context.Context, uuid string) (*tracking.ApplicationTracking, error) {
	return f(ctx, uuid)
}

// Config controls the polling schedule.
type Config struct {
	Interval     time.Duration `mapstructure:"interval" yaml:"interval"`
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	StopOnFinal  bool          `mapstructure:"stop_on_final" yaml:"stop_on_final"`
	RetryOnError bool          `mapstructure:"retry_on_error" yaml:"retry_on_error"`
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// DefaultConfig polls every 30 seconds, stops on a final status and retries
// failed fetches up to three times.
func DefaultConfig() Config {
	return Config{
		Interval:     constants.DefaultPollInterval,
		Enabled:      true,
		StopOnFinal:  true,
		RetryOnError: true,
		MaxRetries:   constants.DefaultMaxRetries,
	}
}

// Snapshot is the externally visible state of a Controller.
type Snapshot struct {
	Data    *tracking.ApplicationTracking
	Err     *tracking.Error
	Loading bool
	Polling bool
	Final   bool
	Retries int
}

// Option customizes a Controller.
type Option func(*Controller)

// WithAfter replaces the timer source used between fetches.
func WithAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(c *Controller) {
		c.after = after
	}
}

// WithOnUpdate registers a callback invoked with a fresh snapshot every time
// a fetch result is applied. It runs on the fetching goroutine.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(c *Controller) {
		c.onUpdate = fn
	}
}

// Controller polls one reference number. It is safe for concurrent use;
// Run may only be called once.
type Controller struct {
	uuid     string
	fetcher  Fetcher
	config   Config
	logger   *zap.Logger
	after    func(time.Duration) <-chan time.Time
	onUpdate func(Snapshot)
	group    singleflight.Group

	mu       sync.Mutex
	data     *tracking.ApplicationTracking
	err      *tracking.Error
	inFlight int
	retries  int
	started  bool
	running  bool
	done     <-chan struct{}
}

// New creates a Controller for uuid. A nil logger disables logging.
func New(uuid string, fetcher Fetcher, config Config, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		uuid:    uuid,
		fetcher: fetcher,
		config:  config,
		logger:  logger,
		after:   time.After,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run fetches immediately and keeps polling until the session halts or ctx
// is done. A session halts once the record is final (with StopOnFinal), on a
// non-retryable error, or when retries are exhausted; the last data and error
// stay visible through Snapshot. Run returns nil on a halt and ctx.Err() on
// cancellation. After cancellation no result is applied any more.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.done = ctx.Done()
	c.mu.Unlock()

	if !c.config.Enabled || c.uuid == "" {
		c.logger.Debug("polling disabled",
			zap.String("op", "poller.Run"),
			zap.String("uuid", c.uuid),
			zap.Bool("enabled", c.config.Enabled),
		)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.setRunning(true)
	defer c.setRunning(false)

	for {
		if err := c.fetch(ctx); errors.Is(err, ErrStopped) {
			return ctx.Err()
		}

		delay, ok := c.nextDelay()
		if !ok {
			snap := c.Snapshot()
			c.logger.Debug("polling halted",
				zap.String("op", "poller.Run"),
				zap.String("uuid", c.uuid),
				zap.Bool("final", snap.Final),
				zap.Int("retries", snap.Retries),
			)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.after(delay):
		}
	}
}

// Refetch fetches the record now, regardless of the schedule. If a fetch is
// already in flight the call joins it instead of issuing a second request.
// A successful result clears the error and retry bookkeeping. Refetch does
// not restart a halted session.
func (c *Controller) Refetch(ctx context.Context) (Snapshot, error) {
	if c.uuid == "" {
		return c.Snapshot(), tracking.NewError(tracking.CodeInvalidUUID, "empty reference number")
	}
	err := c.fetch(ctx)
	return c.Snapshot(), err
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	final := c.data.IsFinal()
	return Snapshot{
		Data:    c.data,
		Err:     c.err,
		Loading: c.inFlight > 0,
		Polling: c.running && c.config.Enabled && c.uuid != "" && c.data != nil && !final,
		Final:   final,
		Retries: c.retries,
	}
}

// fetch performs one coalesced request and applies its outcome. It returns
// ErrStopped when the outcome was discarded because of cancellation.
func (c *Controller) fetch(ctx context.Context) error {
	c.mu.Lock()
	c.inFlight++
	c.mu.Unlock()

	ch := c.group.DoChan(c.uuid, func() (any, error) {
		fetchCtx, cancel := c.sharedContext(ctx)
		defer cancel()
		return c.fetcher.FetchStatus(fetchCtx, c.uuid)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
		return ErrStopped
	}

	c.mu.Lock()
	c.inFlight--
	if ctx.Err() != nil || c.cancelledLocked() {
		c.mu.Unlock()
		return ErrStopped
	}

	var record *tracking.ApplicationTracking
	if res.Err != nil {
		c.err = tracking.AsError(res.Err)
	} else {
		record, _ = res.Val.(*tracking.ApplicationTracking)
		if record == nil {
			c.err = tracking.NewError(tracking.CodeServerError, "empty tracking response")
		} else {
			if c.data != nil && tracking.HasStatusChanged(c.data.CurrentStatus, record.CurrentStatus) {
				c.logger.Info("application status changed",
					zap.String("op", "poller.fetch"),
					zap.String("uuid", c.uuid),
					zap.String("from", string(c.data.CurrentStatus)),
					zap.String("to", string(record.CurrentStatus)),
				)
			}
			c.data = record
			c.err = nil
			c.retries = 0
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if snap.Err != nil {
		c.logger.Warn("failed to fetch tracking status",
			zap.String("op", "poller.fetch"),
			zap.String("uuid", c.uuid),
			zap.String("code", string(snap.Err.Code)),
			zap.String("message", snap.Err.Message),
		)
	}
	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
	if snap.Err != nil {
		return snap.Err
	}
	return nil
}

// nextDelay decides whether another fetch should be scheduled and after how
// long. It consumes one retry when scheduling after an error.
func (c *Controller) nextDelay() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		if !c.config.RetryOnError || !c.err.Retryable() || c.retries >= c.config.MaxRetries {
			return 0, false
		}
		delay := retryDelay(c.retries)
		c.retries++
		return delay, true
	}

	if c.data.IsFinal() && c.config.StopOnFinal {
		return 0, false
	}
	return c.config.Interval, true
}

// sharedContext detaches a coalesced fetch from the caller that started it,
// since other callers may join it. It ends with the polling session instead.
func (c *Controller) sharedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return fetchCtx, cancel
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-done:
			cancel()
		case <-stop:
		}
	}()
	return fetchCtx, func() {
		close(stop)
		cancel()
	}
}

func (c *Controller) cancelledLocked() bool {
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Controller) setRunning(running bool) {
	c.mu.Lock()
	c.running = running
	c.mu.Unlock()
}

// retryDelay is the exponential backoff before retry number attempt
// (zero-based), capped at constants.MaxRetryDelay.
func retryDelay(attempt int) time.Duration {
	delay := constants.BaseRetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= constants.MaxRetryDelay {
			return constants.MaxRetryDelay
		}
	}
	return delay
}
