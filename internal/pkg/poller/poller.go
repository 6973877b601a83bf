// Package poller keeps one widget's aggregated device state fresh by
// polling the home-automation API.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/model"
	"github.com/anicoll/homedash/internal/pkg/state"
)

const DefaultInterval = 3000 * time.Millisecond

type fetcher interface {
	GetWidgetState(ctx context.Context, widgetID string) ([]model.DeviceState, error)
}

// TickerFunc starts a repeating tick and returns its channel and a stop func.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func systemTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Snapshot is a point-in-time view of a poller.
type Snapshot struct {
	WidgetID string
	Devices  []model.DeviceState
	AnyOn    bool
	Err      string
	Loaded   bool
}

type Poller struct {
	mu         sync.Mutex
	fetcher    fetcher
	logger     *zap.Logger
	interval   time.Duration
	newTicker  TickerFunc
	timeout    time.Duration
	onUpdate   func(Snapshot)
	widgetID   string
	enabled    bool
	generation uint64
	stop       chan struct{}
	wg         sync.WaitGroup
	devices    []model.DeviceState
	errMsg     string
	loaded     bool
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithTicker(f TickerFunc) Option {
	return func(p *Poller) {
		p.newTicker = f
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(p *Poller) {
		p.timeout = d
	}
}

// OnUpdate registers a callback invoked after every applied fetch result.
func OnUpdate(f func(Snapshot)) Option {
	return func(p *Poller) {
		p.onUpdate = f
	}
}

func New(f fetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:   f,
		logger:    zap.L(),
		interval:  DefaultInterval,
		newTicker: systemTicker,
		timeout:   10 * time.Second,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Configure sets the polled widget and whether polling is active.
// Enabling, or changing the widget while enabled, fetches immediately and
// starts the interval. Disabling stops the interval.
func (p *Poller) Configure(widgetID string, enabled bool) {
	p.mu.Lock()
	if p.enabled == enabled && p.widgetID == widgetID {
		p.mu.Unlock()
		return
	}
	p.deactivateLocked()
	if p.widgetID != widgetID {
		p.devices = nil
		p.errMsg = ""
		p.loaded = false
	}
	p.widgetID = widgetID
	p.enabled = enabled
	if !enabled {
		p.mu.Unlock()
		return
	}
	gen := p.generation
	stop := make(chan struct{})
	p.stop = stop
	ticks, stopTicker := p.newTicker(p.interval)
	p.wg.Add(1)
	p.mu.Unlock()

	go p.fetch(gen)
	go func() {
		defer p.wg.Done()
		defer stopTicker()
		for {
			select {
			case <-stop:
				return
			case <-ticks:
				// not awaited: a slow fetch may overlap the next tick
				go p.fetch(gen)
			}
		}
	}()
}

// Refresh fetches once, out of band of the interval, and waits for it.
func (p *Poller) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if !p.enabled {
		p.mu.Unlock()
		return nil
	}
	gen := p.generation
	p.mu.Unlock()
	return p.fetchCtx(ctx, gen)
}

// Visible issues one immediate fetch when the view becomes visible again.
func (p *Poller) Visible() {
	p.mu.Lock()
	if !p.enabled {
		p.mu.Unlock()
		return
	}
	gen := p.generation
	p.mu.Unlock()
	go p.fetch(gen)
}

// Close stops polling. In-flight fetch results are discarded.
func (p *Poller) Close() {
	p.mu.Lock()
	p.deactivateLocked()
	p.enabled = false
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) snapshotLocked() Snapshot {
	return Snapshot{
		WidgetID: p.widgetID,
		Devices:  p.devices,
		AnyOn:    state.AnyOn(p.devices),
		Err:      p.errMsg,
		Loaded:   p.loaded,
	}
}

func (p *Poller) deactivateLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.generation++
}

func (p *Poller) fetch(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	_ = p.fetchCtx(ctx, gen)
}

func (p *Poller) fetchCtx(ctx context.Context, gen uint64) error {
	p.mu.Lock()
	widgetID := p.widgetID
	p.mu.Unlock()

	devices, err := p.fetcher.GetWidgetState(ctx, widgetID)

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return err
	}
	if err != nil {
		p.errMsg = "live update failed: " + err.Error()
		p.logger.Warn("widget state fetch failed", zap.String("widget_id", widgetID), zap.Error(err))
	} else {
		p.devices = devices
		p.errMsg = ""
		p.loaded = true
	}
	snap := p.snapshotLocked()
	onUpdate := p.onUpdate
	p.mu.Unlock()

	if onUpdate != nil {
		onUpdate(snap)
	}
	return err
}
