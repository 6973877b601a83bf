package dashboard

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anicoll/homedash/internal/pkg/model"
	"github.com/anicoll/homedash/internal/pkg/poller"
)

type MockAPI struct {
	DefaultDashboardIDFunc func(ctx context.Context) (string, error)
	GetDashboardFunc       func(ctx context.Context, id string) (*model.Dashboard, error)
	RenameDashboardFunc    func(ctx context.Context, id, name string) error
	UpdateLayoutsFunc      func(ctx context.Context, id string, layouts model.Layouts) error
	CreateWidgetFunc       func(ctx context.Context, dashboardID string, req model.CreateWidgetRequest) (*model.DashboardWidget, error)
	UpdateWidgetFunc       func(ctx context.Context, id string, req model.UpdateWidgetRequest) (*model.DashboardWidget, error)
	DeleteWidgetFunc       func(ctx context.Context, id string) error
	ExecuteWidgetFunc      func(ctx context.Context, id string, req model.ExecuteRequest) (*model.ExecuteResult, error)
	GetWidgetStateFunc     func(ctx context.Context, id string) ([]model.DeviceState, error)
	CreateDeviceFunc       func(ctx context.Context, req model.CreateDeviceRequest) (*model.Device, error)
	ExecuteDeviceFunc      func(ctx context.Context, id string, req model.ExecuteRequest) (*model.ExecuteResult, error)
}

func (m *MockAPI) DefaultDashboardID(ctx context.Context) (string, error) {
	if m.DefaultDashboardIDFunc != nil {
		return m.DefaultDashboardIDFunc(ctx)
	}
	return "d1", nil
}

func (m *MockAPI) GetDashboard(ctx context.Context, id string) (*model.Dashboard, error) {
	return m.GetDashboardFunc(ctx, id)
}

func (m *MockAPI) RenameDashboard(ctx context.Context, id, name string) error {
	if m.RenameDashboardFunc != nil {
		return m.RenameDashboardFunc(ctx, id, name)
	}
	return nil
}

func (m *MockAPI) UpdateLayouts(ctx context.Context, id string, layouts model.Layouts) error {
	if m.UpdateLayoutsFunc != nil {
		return m.UpdateLayoutsFunc(ctx, id, layouts)
	}
	return nil
}

func (m *MockAPI) CreateWidget(ctx context.Context, dashboardID string, req model.CreateWidgetRequest) (*model.DashboardWidget, error) {
	return m.CreateWidgetFunc(ctx, dashboardID, req)
}

func (m *MockAPI) UpdateWidget(ctx context.Context, id string, req model.UpdateWidgetRequest) (*model.DashboardWidget, error) {
	return m.UpdateWidgetFunc(ctx, id, req)
}

func (m *MockAPI) DeleteWidget(ctx context.Context, id string) error {
	return m.DeleteWidgetFunc(ctx, id)
}

func (m *MockAPI) ExecuteWidget(ctx context.Context, id string, req model.ExecuteRequest) (*model.ExecuteResult, error) {
	if m.ExecuteWidgetFunc != nil {
		return m.ExecuteWidgetFunc(ctx, id, req)
	}
	return &model.ExecuteResult{Success: true}, nil
}

func (m *MockAPI) GetWidgetState(ctx context.Context, id string) ([]model.DeviceState, error) {
	if m.GetWidgetStateFunc != nil {
		return m.GetWidgetStateFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockAPI) CreateDevice(ctx context.Context, req model.CreateDeviceRequest) (*model.Device, error) {
	return m.CreateDeviceFunc(ctx, req)
}

func (m *MockAPI) ExecuteDevice(ctx context.Context, id string, req model.ExecuteRequest) (*model.ExecuteResult, error) {
	if m.ExecuteDeviceFunc != nil {
		return m.ExecuteDeviceFunc(ctx, id, req)
	}
	return &model.ExecuteResult{Success: true}, nil
}

// fakeServer keeps the server side aggregate so reloads observe mutations.
type fakeServer struct {
	mu        sync.Mutex
	dashboard *model.Dashboard
	fetches   map[string]*atomic.Int32
	updates   []model.UpdateWidgetRequest
}

func strPtr(s string) *string {
	return &s
}

var (
	lamp   = model.Device{ID: "dev1", Name: "Lamp", Type: "light", Capabilities: model.Capabilities{"toggle": true, "dim": true}}
	plug   = model.Device{ID: "dev2", Name: "Plug", Type: "plug", Capabilities: model.Capabilities{"toggle": true}}
	thermo = model.Device{ID: "dev3", Name: "Thermo", Type: "sensor", Capabilities: model.Capabilities{}}
)

func fixture() *model.Dashboard {
	return &model.Dashboard{
		DashboardSummary: model.DashboardSummary{ID: "d1", Name: "Home", IsDefault: true},
		Layouts:          model.Layouts{"lg": {{ID: "a", X: 0, Y: 0, W: 4, H: 2}}},
		Widgets: []model.DashboardWidget{
			{ID: "a", Name: strPtr("Living room"), Widget: model.Widget{ID: "c-switch", Component: "SwitchWidget", Libelle: "Switch"}, Devices: []model.Device{lamp, plug}},
			{ID: "b", Widget: model.Widget{Component: "SensorWidget", Libelle: "Sensor"}, Devices: []model.Device{thermo}},
			{ID: "s", Widget: model.Widget{Component: "SectionWidget", Libelle: "Section"}, Config: map[string]any{"childWidgetIds": []any{"b", "z"}, "title": "Upstairs"}},
			{ID: "u", Widget: model.Widget{Component: "FancyWidget", Libelle: "Fancy"}},
			{ID: "e", Widget: model.Widget{Component: "SwitchWidget", Libelle: "Switch"}},
			{ID: "c", Widget: model.Widget{Component: "ClockWidget", Libelle: "Clock"}},
		},
	}
}

func clone(t *testing.T, d *model.Dashboard) *model.Dashboard {
	t.Helper()
	data, err := json.Marshal(d)
	require.NoError(t, err)
	out := &model.Dashboard{}
	require.NoError(t, json.Unmarshal(data, out))
	return out
}

func newFakeServer(t *testing.T, d *model.Dashboard) (*fakeServer, *MockAPI) {
	t.Helper()
	fs := &fakeServer{dashboard: d, fetches: map[string]*atomic.Int32{}}
	for _, w := range d.Widgets {
		fs.fetches[w.ID] = &atomic.Int32{}
	}
	mock := &MockAPI{
		GetDashboardFunc: func(_ context.Context, id string) (*model.Dashboard, error) {
			fs.mu.Lock()
			defer fs.mu.Unlock()
			return clone(t, fs.dashboard), nil
		},
		UpdateWidgetFunc: func(_ context.Context, id string, req model.UpdateWidgetRequest) (*model.DashboardWidget, error) {
			fs.mu.Lock()
			defer fs.mu.Unlock()
			fs.updates = append(fs.updates, req)
			for i := range fs.dashboard.Widgets {
				w := &fs.dashboard.Widgets[i]
				if w.ID != id {
					continue
				}
				if req.Name != nil {
					w.Name = req.Name
				}
				if req.Config != nil {
					w.Config = req.Config
				}
				out := *w
				return &out, nil
			}
			return nil, ErrWidgetNotFound
		},
		DeleteWidgetFunc: func(_ context.Context, id string) error {
			fs.mu.Lock()
			defer fs.mu.Unlock()
			ws := fs.dashboard.Widgets[:0]
			for _, w := range fs.dashboard.Widgets {
				if w.ID != id {
					ws = append(ws, w)
				}
			}
			fs.dashboard.Widgets = ws
			return nil
		},
		GetWidgetStateFunc: func(_ context.Context, id string) ([]model.DeviceState, error) {
			if c, ok := fs.fetches[id]; ok {
				c.Add(1)
			}
			switch id {
			case "a":
				return []model.DeviceState{
					{Device: lamp, State: map[string]any{"isOn": false, "brightness": float64(30)}},
					{Device: plug, State: map[string]any{"value": "1"}},
				}, nil
			case "b":
				return []model.DeviceState{{Device: thermo, State: map[string]any{"value": 21.5}}}, nil
			}
			return nil, nil
		},
	}
	return fs, mock
}

func (fs *fakeServer) lastUpdate() model.UpdateWidgetRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.updates[len(fs.updates)-1]
}

func (fs *fakeServer) updateCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.updates)
}

// idleTicker never ticks so only explicit fetches happen.
func idleTicker(time.Duration) (<-chan time.Time, func()) {
	return nil, func() {}
}

func newLoadedService(t *testing.T, mock *MockAPI, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithPollerOptions(poller.WithTicker(idleTicker))}, opts...)
	svc := New(mock, opts...)
	require.NoError(t, svc.Load(context.Background()))
	t.Cleanup(svc.Close)
	return svc
}

func childIDs(t *testing.T, cfg map[string]any) []string {
	t.Helper()
	switch ids := cfg["childWidgetIds"].(type) {
	case []string:
		return ids
	case []any:
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			out = append(out, id.(string))
		}
		return out
	}
	t.Fatalf("unexpected childWidgetIds %T", cfg["childWidgetIds"])
	return nil
}
