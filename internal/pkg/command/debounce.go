package command

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultDebounce = 180 * time.Millisecond

// Debouncer runs the most recently scheduled func once the quiet period
// has elapsed. Scheduling again before that replaces the pending func.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	seq   uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if seq != d.seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Stop cancels a pending func, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// Pending reports whether a func is waiting for the quiet period.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Control holds a continuous input value as two explicit parts: the
// locally owned optimistic value and the last value confirmed by the server.
type Control[T comparable] struct {
	mu        sync.Mutex
	debouncer *Debouncer
	commit    func(ctx context.Context, v T) error
	timeout   time.Duration
	logger    *zap.Logger
	name      string
	confirmed T
	pending   *T
	// gen counts Set calls; settled is the newest gen whose commit has
	// finished or been cancelled.
	gen      uint64
	settled  uint64
	inFlight int
	lastErr  error
}

func NewControl[T comparable](name string, delay time.Duration, commit func(ctx context.Context, v T) error) *Control[T] {
	return &Control[T]{
		debouncer: NewDebouncer(delay),
		commit:    commit,
		timeout:   10 * time.Second,
		logger:    zap.L(),
		name:      name,
	}
}

// Set records v as the optimistic value and schedules its commit.
func (c *Control[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = &v
	c.gen++
	gen := c.gen
	c.debouncer.Schedule(func() { c.flush(v, gen) })
}

func (c *Control[T]) flush(v T, gen uint64) {
	c.mu.Lock()
	c.inFlight++
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	err := c.commit(ctx, v)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight--
	c.settled = max(c.settled, gen)
	c.lastErr = err
	if err != nil {
		// the optimistic value stays; the next poll reconciles
		c.logger.Error("control commit failed", zap.String("control", c.name), zap.Any("value", v), zap.Error(err))
	}
}

// Confirm applies a server observed value. The optimistic value is dropped
// only when the latest Set has been committed and no commit is running.
func (c *Control[T]) Confirm(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmed = v
	if c.inFlight == 0 && c.settled == c.gen {
		c.pending = nil
	}
}

// Value returns the optimistic value when present, else the confirmed one.
func (c *Control[T]) Value() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return *c.pending
	}
	return c.confirmed
}

func (c *Control[T]) Pending() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		var zero T
		return zero, false
	}
	return *c.pending, true
}

func (c *Control[T]) Confirmed() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmed
}

func (c *Control[T]) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Stop cancels a scheduled commit. The next Confirm drops its value.
func (c *Control[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debouncer.Stop()
	c.settled = c.gen
}
