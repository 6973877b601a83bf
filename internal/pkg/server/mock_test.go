package server

import (
	"context"
	"time"

	"github.com/anicoll/homedash/internal/pkg/dashboard"
	"github.com/anicoll/homedash/internal/pkg/database"
	"github.com/anicoll/homedash/internal/pkg/model"
	"github.com/anicoll/homedash/internal/pkg/section"
	"github.com/anicoll/homedash/internal/pkg/weather"
)

type MockDashboard struct {
	ViewFunc                func(ctx context.Context, editMode bool) (*dashboard.View, error)
	ReloadFunc              func(ctx context.Context) error
	VisibleFunc             func()
	StatesFunc              func() []model.WidgetState
	RefreshFunc             func(ctx context.Context, widgetID string) error
	RenameDashboardFunc     func(ctx context.Context, name string) error
	SetThemeFunc            func(ctx context.Context, theme string) error
	DragStartFunc           func() error
	LayoutChangeFunc        func(ctx context.Context, changed model.Layouts) error
	DragStopFunc            func(ctx context.Context, breakpoint string, item model.LayoutItem) error
	AddWidgetFunc           func(ctx context.Context, req dashboard.AddWidgetRequest) (*model.DashboardWidget, error)
	DeleteWidgetFunc        func(ctx context.Context, widgetID string, confirmed bool) error
	RenameWidgetFunc        func(ctx context.Context, widgetID, name string) error
	UpdateConfigFunc        func(ctx context.Context, widgetID string, config map[string]any) error
	ToggleFunc              func(ctx context.Context, widgetID string, desired bool) error
	SetPowerFunc            func(ctx context.Context, widgetID string, on bool) error
	ExecuteFunc             func(ctx context.Context, widgetID, capability string, params map[string]any) error
	OnChildCommandFunc      func(ctx context.Context, childID, capability string, params map[string]any, deviceID string) error
	SetBrightnessFunc       func(widgetID string, value int) error
	SetWhiteTemperatureFunc func(widgetID string, kelvin int) error
	SetHueFunc              func(widgetID string, hue int) error
	SetWheelPointerFunc     func(widgetID string, dx, dy float64) (int, error)
	WeatherFunc             func(ctx context.Context, widgetID string) (*weather.Report, error)
	SetCollapsedFunc        func(ctx context.Context, sectionID string, collapsed bool) error
	OpenSectionFunc         func(sectionID string) error
	CloseSectionFunc        func(sectionID string) error
	SectionCandidatesFunc   func(sectionID string) ([]model.DashboardWidget, error)
	AddChildFunc            func(ctx context.Context, sectionID, childID string) error
	EjectChildFunc          func(ctx context.Context, sectionID, childID string) error
	DropChildFunc           func(ctx context.Context, sectionID string, drop section.Drop) error
	HideTitleFunc           func(ctx context.Context, deviceID string) (bool, error)
	SetHideTitleFunc        func(ctx context.Context, deviceID string, hide bool) error
}

func (m *MockDashboard) View(ctx context.Context, editMode bool) (*dashboard.View, error) {
	if m.ViewFunc != nil {
		return m.ViewFunc(ctx, editMode)
	}
	return &dashboard.View{}, nil
}

func (m *MockDashboard) Reload(ctx context.Context) error {
	if m.ReloadFunc != nil {
		return m.ReloadFunc(ctx)
	}
	return nil
}

func (m *MockDashboard) Visible() {
	if m.VisibleFunc != nil {
		m.VisibleFunc()
	}
}

func (m *MockDashboard) States() []model.WidgetState {
	if m.StatesFunc != nil {
		return m.StatesFunc()
	}
	return nil
}

func (m *MockDashboard) Refresh(ctx context.Context, widgetID string) error {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, widgetID)
	}
	return nil
}

func (m *MockDashboard) RenameDashboard(ctx context.Context, name string) error {
	if m.RenameDashboardFunc != nil {
		return m.RenameDashboardFunc(ctx, name)
	}
	return nil
}

func (m *MockDashboard) SetTheme(ctx context.Context, theme string) error {
	if m.SetThemeFunc != nil {
		return m.SetThemeFunc(ctx, theme)
	}
	return nil
}

func (m *MockDashboard) DragStart() error {
	if m.DragStartFunc != nil {
		return m.DragStartFunc()
	}
	return nil
}

func (m *MockDashboard) LayoutChange(ctx context.Context, changed model.Layouts) error {
	if m.LayoutChangeFunc != nil {
		return m.LayoutChangeFunc(ctx, changed)
	}
	return nil
}

func (m *MockDashboard) DragStop(ctx context.Context, breakpoint string, item model.LayoutItem) error {
	if m.DragStopFunc != nil {
		return m.DragStopFunc(ctx, breakpoint, item)
	}
	return nil
}

func (m *MockDashboard) AddWidget(ctx context.Context, req dashboard.AddWidgetRequest) (*model.DashboardWidget, error) {
	if m.AddWidgetFunc != nil {
		return m.AddWidgetFunc(ctx, req)
	}
	return &model.DashboardWidget{}, nil
}

func (m *MockDashboard) DeleteWidget(ctx context.Context, widgetID string, confirmed bool) error {
	if m.DeleteWidgetFunc != nil {
		return m.DeleteWidgetFunc(ctx, widgetID, confirmed)
	}
	return nil
}

func (m *MockDashboard) RenameWidget(ctx context.Context, widgetID, name string) error {
	if m.RenameWidgetFunc != nil {
		return m.RenameWidgetFunc(ctx, widgetID, name)
	}
	return nil
}

func (m *MockDashboard) UpdateConfig(ctx context.Context, widgetID string, config map[string]any) error {
	if m.UpdateConfigFunc != nil {
		return m.UpdateConfigFunc(ctx, widgetID, config)
	}
	return nil
}

func (m *MockDashboard) Toggle(ctx context.Context, widgetID string, desired bool) error {
	if m.ToggleFunc != nil {
		return m.ToggleFunc(ctx, widgetID, desired)
	}
	return nil
}

func (m *MockDashboard) SetPower(ctx context.Context, widgetID string, on bool) error {
	if m.SetPowerFunc != nil {
		return m.SetPowerFunc(ctx, widgetID, on)
	}
	return nil
}

func (m *MockDashboard) Execute(ctx context.Context, widgetID, capability string, params map[string]any) error {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, widgetID, capability, params)
	}
	return nil
}

func (m *MockDashboard) OnChildCommand(ctx context.Context, childID, capability string, params map[string]any, deviceID string) error {
	if m.OnChildCommandFunc != nil {
		return m.OnChildCommandFunc(ctx, childID, capability, params, deviceID)
	}
	return nil
}

func (m *MockDashboard) SetBrightness(widgetID string, value int) error {
	if m.SetBrightnessFunc != nil {
		return m.SetBrightnessFunc(widgetID, value)
	}
	return nil
}

func (m *MockDashboard) SetWhiteTemperature(widgetID string, kelvin int) error {
	if m.SetWhiteTemperatureFunc != nil {
		return m.SetWhiteTemperatureFunc(widgetID, kelvin)
	}
	return nil
}

func (m *MockDashboard) SetHue(widgetID string, hue int) error {
	if m.SetHueFunc != nil {
		return m.SetHueFunc(widgetID, hue)
	}
	return nil
}

func (m *MockDashboard) SetWheelPointer(widgetID string, dx, dy float64) (int, error) {
	if m.SetWheelPointerFunc != nil {
		return m.SetWheelPointerFunc(widgetID, dx, dy)
	}
	return 0, nil
}

func (m *MockDashboard) Weather(ctx context.Context, widgetID string) (*weather.Report, error) {
	if m.WeatherFunc != nil {
		return m.WeatherFunc(ctx, widgetID)
	}
	return &weather.Report{}, nil
}

func (m *MockDashboard) SetCollapsed(ctx context.Context, sectionID string, collapsed bool) error {
	if m.SetCollapsedFunc != nil {
		return m.SetCollapsedFunc(ctx, sectionID, collapsed)
	}
	return nil
}

func (m *MockDashboard) OpenSection(sectionID string) error {
	if m.OpenSectionFunc != nil {
		return m.OpenSectionFunc(sectionID)
	}
	return nil
}

func (m *MockDashboard) CloseSection(sectionID string) error {
	if m.CloseSectionFunc != nil {
		return m.CloseSectionFunc(sectionID)
	}
	return nil
}

func (m *MockDashboard) SectionCandidates(sectionID string) ([]model.DashboardWidget, error) {
	if m.SectionCandidatesFunc != nil {
		return m.SectionCandidatesFunc(sectionID)
	}
	return nil, nil
}

func (m *MockDashboard) AddChild(ctx context.Context, sectionID, childID string) error {
	if m.AddChildFunc != nil {
		return m.AddChildFunc(ctx, sectionID, childID)
	}
	return nil
}

func (m *MockDashboard) EjectChild(ctx context.Context, sectionID, childID string) error {
	if m.EjectChildFunc != nil {
		return m.EjectChildFunc(ctx, sectionID, childID)
	}
	return nil
}

func (m *MockDashboard) DropChild(ctx context.Context, sectionID string, drop section.Drop) error {
	if m.DropChildFunc != nil {
		return m.DropChildFunc(ctx, sectionID, drop)
	}
	return nil
}

func (m *MockDashboard) HideTitle(ctx context.Context, deviceID string) (bool, error) {
	if m.HideTitleFunc != nil {
		return m.HideTitleFunc(ctx, deviceID)
	}
	return false, nil
}

func (m *MockDashboard) SetHideTitle(ctx context.Context, deviceID string, hide bool) error {
	if m.SetHideTitleFunc != nil {
		return m.SetHideTitleFunc(ctx, deviceID, hide)
	}
	return nil
}

type MockHistory struct {
	GetHistoryFunc func(ctx context.Context, widgetID string, from, to *time.Time) ([]database.StateRecord, error)
}

func (m *MockHistory) GetHistory(ctx context.Context, widgetID string, from, to *time.Time) ([]database.StateRecord, error) {
	if m.GetHistoryFunc != nil {
		return m.GetHistoryFunc(ctx, widgetID, from, to)
	}
	return nil, nil
}
