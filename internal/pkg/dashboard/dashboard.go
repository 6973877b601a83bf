// Package dashboard composes a loaded dashboard into a renderable view
// model and owns the per-widget pollers, dispatchers and controls.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/command"
	"github.com/anicoll/homedash/internal/pkg/layout"
	"github.com/anicoll/homedash/internal/pkg/model"
	"github.com/anicoll/homedash/internal/pkg/poller"
	"github.com/anicoll/homedash/internal/pkg/prefs"
	"github.com/anicoll/homedash/internal/pkg/section"
	"github.com/anicoll/homedash/internal/pkg/weather"
	"github.com/anicoll/homedash/internal/pkg/widget"
)

var (
	ErrNotLoaded      = errors.New("dashboard not loaded")
	ErrNotConfirmed   = errors.New("delete must be confirmed")
	ErrWidgetNotFound = errors.New("widget not found")
	ErrDeviceNotFound = errors.New("device not bound to widget")
	ErrNotWeather     = errors.New("widget is not a weather widget")
	ErrNoAddress      = errors.New("weather widget has no address or coordinates")
)

type api interface {
	DefaultDashboardID(ctx context.Context) (string, error)
	GetDashboard(ctx context.Context, id string) (*model.Dashboard, error)
	RenameDashboard(ctx context.Context, id, name string) error
	UpdateLayouts(ctx context.Context, id string, layouts model.Layouts) error
	CreateWidget(ctx context.Context, dashboardID string, req model.CreateWidgetRequest) (*model.DashboardWidget, error)
	UpdateWidget(ctx context.Context, id string, req model.UpdateWidgetRequest) (*model.DashboardWidget, error)
	DeleteWidget(ctx context.Context, id string) error
	ExecuteWidget(ctx context.Context, id string, req model.ExecuteRequest) (*model.ExecuteResult, error)
	GetWidgetState(ctx context.Context, id string) ([]model.DeviceState, error)
	CreateDevice(ctx context.Context, req model.CreateDeviceRequest) (*model.Device, error)
	ExecuteDevice(ctx context.Context, id string, req model.ExecuteRequest) (*model.ExecuteResult, error)
}

type statePublisher interface {
	Publish(ctx context.Context, states ...model.WidgetState) error
	RegisterWidget(widget model.DashboardWidget) error
	Forget(widgetID string)
}

type weatherLookup interface {
	Lookup(ctx context.Context, address string) (*weather.Report, error)
	LookupCoordinates(ctx context.Context, latitude, longitude float64) (*weather.Report, error)
}

type Option func(*Service)

// WithDashboardID pins the dashboard to load. Without it the default
// dashboard is used.
func WithDashboardID(id string) Option {
	return func(s *Service) {
		s.dashboardID = id
	}
}

func WithRegistry(r *widget.Registry) Option {
	return func(s *Service) {
		s.registry = r
	}
}

func WithPreferences(p *prefs.Preferences) Option {
	return func(s *Service) {
		s.prefs = p
	}
}

func WithPublisher(p statePublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithWeather(w weatherLookup) Option {
	return func(s *Service) {
		s.weather = w
	}
}

// WithStateListener registers a callback for every widget state update.
func WithStateListener(fn func(model.WidgetState)) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, fn)
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		s.pollerOpts = append(s.pollerOpts, poller.WithInterval(d))
	}
}

func WithPollerOptions(opts ...poller.Option) Option {
	return func(s *Service) {
		s.pollerOpts = append(s.pollerOpts, opts...)
	}
}

func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		s.debounce = d
	}
}

// instance is the runtime attached to one widget of the loaded dashboard.
type instance struct {
	widget      model.DashboardWidget
	spec        widget.Spec
	known       bool
	poller      *poller.Poller
	dispatcher  *command.Dispatcher
	brightness  *command.Control[int]
	temperature *command.Control[int]
	hue         *command.Control[int]
	busy        atomic.Int32
}

func (i *instance) close() {
	i.poller.Close()
	i.brightness.Stop()
	i.temperature.Stop()
	i.hue.Stop()
}

type Service struct {
	api         api
	registry    *widget.Registry
	prefs       *prefs.Preferences
	publisher   statePublisher
	weather     weatherLookup
	listeners   []func(model.WidgetState)
	pollerOpts  []poller.Option
	debounce    time.Duration
	dashboardID string
	logger      *zap.Logger

	mu        sync.RWMutex
	dashboard *model.Dashboard
	tree      *section.Tree
	instances map[string]*instance
	overlays  map[string]bool
	collapsed map[string]bool
	tracker   layout.Tracker
}

func New(client api, opts ...Option) *Service {
	s := &Service{
		api:       client,
		registry:  widget.DefaultRegistry(),
		prefs:     prefs.New(prefs.NewMemoryStore()),
		debounce:  command.DefaultDebounce,
		logger:    zap.L(),
		instances: make(map[string]*instance),
		overlays:  make(map[string]bool),
		collapsed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the configured (or default) dashboard and starts polling.
func (s *Service) Load(ctx context.Context) error {
	id := s.dashboardID
	if id == "" {
		var err error
		if id, err = s.api.DefaultDashboardID(ctx); err != nil {
			return fmt.Errorf("failed to resolve default dashboard: %w", err)
		}
	}
	return s.load(ctx, id)
}

// Reload refetches the current dashboard aggregate.
func (s *Service) Reload(ctx context.Context) error {
	id, err := s.currentID()
	if err != nil {
		return err
	}
	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id string) error {
	d, err := s.api.GetDashboard(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load dashboard %s: %w", id, err)
	}
	added := s.apply(d)
	if s.publisher != nil {
		for _, w := range added {
			_ = s.publisher.RegisterWidget(w)
		}
	}
	s.logger.Info("dashboard loaded",
		zap.String("dashboard_id", d.ID),
		zap.String("name", d.Name),
		zap.Int("widgets", len(d.Widgets)))
	return nil
}

// apply swaps in a new aggregate and reconciles the widget runtimes. It
// returns the widgets that were not present before.
func (s *Service) apply(d *model.Dashboard) []model.DashboardWidget {
	tree := section.Build(d.Widgets, s.registry.IsSection)

	s.mu.Lock()
	defer s.mu.Unlock()

	var added []model.DashboardWidget
	next := make(map[string]*instance, len(d.Widgets))
	for _, w := range d.Widgets {
		inst, ok := s.instances[w.ID]
		if !ok {
			inst = s.newInstance(w.ID)
			added = append(added, w)
		}
		spec, err := s.registry.Resolve(w.Widget.Component)
		inst.widget = w
		inst.spec = spec
		inst.known = err == nil
		inst.dispatcher = command.NewDispatcher(s.api, inst.poller, w)
		inst.poller.Configure(w.ID, inst.known && spec.Polls && len(w.Devices) > 0)
		next[w.ID] = inst
	}
	for id, inst := range s.instances {
		if _, ok := next[id]; ok {
			continue
		}
		inst.close()
		delete(s.overlays, id)
		if s.publisher != nil {
			s.publisher.Forget(id)
		}
	}

	s.instances = next
	s.dashboard = d
	s.tree = tree
	s.collapsed = make(map[string]bool)
	return added
}

func (s *Service) newInstance(id string) *instance {
	inst := &instance{}
	opts := append(append([]poller.Option{}, s.pollerOpts...), poller.OnUpdate(s.handleUpdate))
	inst.poller = poller.New(s.api, opts...)
	inst.brightness = command.NewControl("brightness", s.debounce, func(ctx context.Context, v int) error {
		return s.execute(ctx, id, command.Brightness(v))
	})
	inst.temperature = command.NewControl("temperature", s.debounce, func(ctx context.Context, v int) error {
		return s.execute(ctx, id, command.WhiteTemperature(v))
	})
	inst.hue = command.NewControl("hue", s.debounce, func(ctx context.Context, v int) error {
		d, err := s.dispatcher(id)
		if err != nil {
			return err
		}
		_, err = d.Execute(ctx, d.ColorFromHue(v))
		return err
	})
	return inst
}

func (s *Service) handleUpdate(snap poller.Snapshot) {
	s.mu.RLock()
	inst, ok := s.instances[snap.WidgetID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if v, ok := stateNumber(snap.Devices, "brightness", "dim"); ok {
		inst.brightness.Confirm(v)
	}
	if v, ok := stateNumber(snap.Devices, "kelvin", "colorTemperature"); ok {
		inst.temperature.Confirm(v)
	}
	if v, ok := stateNumber(snap.Devices, "hue"); ok {
		inst.hue.Confirm(v)
	}

	st := model.WidgetState{
		WidgetID:  snap.WidgetID,
		Name:      inst.widget.DisplayName(),
		AnyOn:     snap.AnyOn,
		Devices:   snap.Devices,
		Warning:   snap.Err,
		UpdatedAt: time.Now(),
	}
	for _, fn := range s.listeners {
		fn(st)
	}
	if s.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.publisher.Publish(ctx, st); err != nil {
			s.logger.Warn("failed to publish widget state", zap.String("widget_id", st.WidgetID), zap.Error(err))
		}
	}
}

// Visible forwards a "became visible" signal to every active poller.
func (s *Service) Visible() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inst := range s.instances {
		inst.poller.Visible()
	}
}

// Refresh fetches one widget's state out of band and waits for it.
func (s *Service) Refresh(ctx context.Context, widgetID string) error {
	inst, err := s.instance(widgetID)
	if err != nil {
		return err
	}
	return inst.poller.Refresh(ctx)
}

// States returns the current live state of every polled widget.
func (s *Service) States() []model.WidgetState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dashboard == nil {
		return nil
	}
	out := make([]model.WidgetState, 0, len(s.instances))
	for _, w := range s.dashboard.Widgets {
		inst, ok := s.instances[w.ID]
		if !ok {
			continue
		}
		snap := inst.poller.Snapshot()
		if !snap.Loaded && snap.Err == "" {
			continue
		}
		out = append(out, model.WidgetState{
			WidgetID: w.ID,
			Name:     w.DisplayName(),
			AnyOn:    snap.AnyOn,
			Devices:  snap.Devices,
			Warning:  snap.Err,
		})
	}
	return out
}

// Close stops every poller and pending control commit.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range s.instances {
		inst.close()
	}
	s.instances = make(map[string]*instance)
}

func (s *Service) currentID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dashboard == nil {
		return "", ErrNotLoaded
	}
	return s.dashboard.ID, nil
}

func (s *Service) instance(widgetID string) (*instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dashboard == nil {
		return nil, ErrNotLoaded
	}
	inst, ok := s.instances[widgetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, widgetID)
	}
	return inst, nil
}

func (s *Service) dispatcher(widgetID string) (*command.Dispatcher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[widgetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, widgetID)
	}
	return inst.dispatcher, nil
}

// Weather returns the current weather for a weather widget. Configured
// coordinates take precedence over the address.
func (s *Service) Weather(ctx context.Context, widgetID string) (*weather.Report, error) {
	inst, err := s.instance(widgetID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	w, spec := inst.widget, inst.spec
	s.mu.RUnlock()
	if spec.Kind != widget.KindWeather {
		return nil, ErrNotWeather
	}
	if s.weather == nil {
		return nil, ErrNoAddress
	}
	lat, latOK := coordinate(w.Config["latitude"])
	lon, lonOK := coordinate(w.Config["longitude"])
	if latOK && lonOK {
		return s.weather.LookupCoordinates(ctx, lat, lon)
	}
	address, _ := w.Config["address"].(string)
	if address == "" {
		return nil, ErrNoAddress
	}
	return s.weather.Lookup(ctx, address)
}

func coordinate(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
