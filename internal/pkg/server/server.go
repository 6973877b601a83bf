package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/command"
	"github.com/anicoll/homedash/internal/pkg/dashboard"
	"github.com/anicoll/homedash/internal/pkg/database"
	"github.com/anicoll/homedash/internal/pkg/homeapi"
	"github.com/anicoll/homedash/internal/pkg/model"
	"github.com/anicoll/homedash/internal/pkg/prefs"
	"github.com/anicoll/homedash/internal/pkg/section"
	"github.com/anicoll/homedash/internal/pkg/weather"
	"github.com/anicoll/homedash/internal/pkg/widget"
)

//go:embed openapi.yaml
var openapiSpec []byte

type dashboardService interface {
	View(ctx context.Context, editMode bool) (*dashboard.View, error)
	Reload(ctx context.Context) error
	Visible()
	States() []model.WidgetState
	Refresh(ctx context.Context, widgetID string) error
	RenameDashboard(ctx context.Context, name string) error
	SetTheme(ctx context.Context, theme string) error

	DragStart() error
	LayoutChange(ctx context.Context, changed model.Layouts) error
	DragStop(ctx context.Context, breakpoint string, item model.LayoutItem) error

	AddWidget(ctx context.Context, req dashboard.AddWidgetRequest) (*model.DashboardWidget, error)
	DeleteWidget(ctx context.Context, widgetID string, confirmed bool) error
	RenameWidget(ctx context.Context, widgetID, name string) error
	UpdateConfig(ctx context.Context, widgetID string, config map[string]any) error

	Toggle(ctx context.Context, widgetID string, desired bool) error
	SetPower(ctx context.Context, widgetID string, on bool) error
	Execute(ctx context.Context, widgetID, capability string, params map[string]any) error
	OnChildCommand(ctx context.Context, childID, capability string, params map[string]any, deviceID string) error
	SetBrightness(widgetID string, value int) error
	SetWhiteTemperature(widgetID string, kelvin int) error
	SetHue(widgetID string, hue int) error
	SetWheelPointer(widgetID string, dx, dy float64) (int, error)
	Weather(ctx context.Context, widgetID string) (*weather.Report, error)

	SetCollapsed(ctx context.Context, sectionID string, collapsed bool) error
	OpenSection(sectionID string) error
	CloseSection(sectionID string) error
	SectionCandidates(sectionID string) ([]model.DashboardWidget, error)
	AddChild(ctx context.Context, sectionID, childID string) error
	EjectChild(ctx context.Context, sectionID, childID string) error
	DropChild(ctx context.Context, sectionID string, drop section.Drop) error

	HideTitle(ctx context.Context, deviceID string) (bool, error)
	SetHideTitle(ctx context.Context, deviceID string, hide bool) error
}

type historyReader interface {
	GetHistory(ctx context.Context, widgetID string, from, to *time.Time) ([]database.StateRecord, error)
}

type Option func(*server)

// WithHistory enables the state history endpoint.
func WithHistory(h historyReader) Option {
	return func(s *server) {
		s.history = h
	}
}

// WithEditPassword locks edit operations behind a bcrypt password hash.
func WithEditPassword(hash string) Option {
	return func(s *server) {
		s.sessions.hash = hash
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *server) {
		s.sessions.ttl = ttl
	}
}

// WithStream mounts the live state stream at /ws.
func WithStream(h http.Handler) Option {
	return func(s *server) {
		s.stream = h
	}
}

type server struct {
	dash     dashboardService
	history  historyReader
	stream   http.Handler
	sessions *sessions
	logger   *zap.Logger
}

func New(dash dashboardService, opts ...Option) *server {
	s := &server{
		dash:     dash,
		sessions: newSessions(),
		logger:   zap.L(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the router with logging and request validation.
func (s *server) Handler() (http.Handler, error) {
	doc, err := loadSpec()
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	validate, err := ValidationMiddleware(doc)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.Use(LoggingMiddleware)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	if s.stream != nil {
		r.Handle("/ws", s.stream).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(validate)

	api.HandleFunc("/edit/unlock", s.Unlock).Methods(http.MethodPost)
	api.HandleFunc("/edit/lock", s.Lock).Methods(http.MethodPost)

	api.HandleFunc("/dashboard", s.GetView).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/reload", s.Reload).Methods(http.MethodPost)
	api.HandleFunc("/dashboard/states", s.GetStates).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/visible", s.Visible).Methods(http.MethodPost)
	api.HandleFunc("/dashboard/theme", s.SetTheme).Methods(http.MethodPut)
	api.HandleFunc("/dashboard/name", s.requireEdit(s.RenameDashboard)).Methods(http.MethodPut)
	api.HandleFunc("/dashboard/layouts", s.requireEdit(s.ChangeLayouts)).Methods(http.MethodPut)
	api.HandleFunc("/dashboard/layouts/drag-start", s.requireEdit(s.DragStart)).Methods(http.MethodPost)
	api.HandleFunc("/dashboard/layouts/drag-stop", s.requireEdit(s.DragStop)).Methods(http.MethodPost)

	api.HandleFunc("/widgets", s.requireEdit(s.AddWidget)).Methods(http.MethodPost)
	api.HandleFunc("/widgets/{widgetId}", s.requireEdit(s.DeleteWidget)).Methods(http.MethodDelete)
	api.HandleFunc("/widgets/{widgetId}/name", s.requireEdit(s.RenameWidget)).Methods(http.MethodPut)
	api.HandleFunc("/widgets/{widgetId}/config", s.requireEdit(s.UpdateConfig)).Methods(http.MethodPut)
	api.HandleFunc("/widgets/{widgetId}/toggle", s.Toggle).Methods(http.MethodPost)
	api.HandleFunc("/widgets/{widgetId}/power", s.SetPower).Methods(http.MethodPost)
	api.HandleFunc("/widgets/{widgetId}/execute", s.Execute).Methods(http.MethodPost)
	api.HandleFunc("/widgets/{widgetId}/brightness", s.SetBrightness).Methods(http.MethodPut)
	api.HandleFunc("/widgets/{widgetId}/temperature", s.SetTemperature).Methods(http.MethodPut)
	api.HandleFunc("/widgets/{widgetId}/hue", s.SetHue).Methods(http.MethodPut)
	api.HandleFunc("/widgets/{widgetId}/wheel", s.SetWheelPointer).Methods(http.MethodPut)
	api.HandleFunc("/widgets/{widgetId}/refresh", s.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/widgets/{widgetId}/weather", s.GetWeather).Methods(http.MethodGet)
	api.HandleFunc("/widgets/{widgetId}/history", s.GetHistory).Methods(http.MethodGet)

	api.HandleFunc("/sections/{sectionId}/collapsed", s.SetCollapsed).Methods(http.MethodPut)
	api.HandleFunc("/sections/{sectionId}/open", s.OpenSection).Methods(http.MethodPost)
	api.HandleFunc("/sections/{sectionId}/close", s.CloseSection).Methods(http.MethodPost)
	api.HandleFunc("/sections/{sectionId}/candidates", s.requireEdit(s.SectionCandidates)).Methods(http.MethodGet)
	api.HandleFunc("/sections/{sectionId}/children", s.requireEdit(s.AddChild)).Methods(http.MethodPost)
	api.HandleFunc("/sections/{sectionId}/children/{childId}", s.requireEdit(s.EjectChild)).Methods(http.MethodDelete)
	api.HandleFunc("/sections/{sectionId}/drop", s.requireEdit(s.DropChild)).Methods(http.MethodPost)

	api.HandleFunc("/devices/{deviceId}/hide-title", s.GetHideTitle).Methods(http.MethodGet)
	api.HandleFunc("/devices/{deviceId}/hide-title", s.SetHideTitle).Methods(http.MethodPut)

	return r, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, dashboard.ErrWidgetNotFound),
		errors.Is(err, dashboard.ErrDeviceNotFound),
		errors.Is(err, section.ErrNotFound),
		errors.Is(err, section.ErrNotChild),
		errors.Is(err, homeapi.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrNotConfirmed):
		return http.StatusPreconditionRequired
	case errors.Is(err, section.ErrAlreadyClaimed),
		errors.Is(err, section.ErrCycle),
		errors.Is(err, section.ErrSelfReference):
		return http.StatusConflict
	case errors.Is(err, command.ErrCapabilityMissing),
		errors.Is(err, command.ErrNoDevices),
		errors.Is(err, section.ErrNotSection),
		errors.Is(err, dashboard.ErrNotWeather),
		errors.Is(err, dashboard.ErrNoAddress),
		errors.Is(err, weather.ErrAddressNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, widget.ErrInvalidConfig),
		errors.Is(err, widget.ErrUnknownWidget),
		errors.Is(err, prefs.ErrInvalidTheme):
		return http.StatusBadRequest
	case errors.Is(err, homeapi.ErrUnauthorized):
		return http.StatusBadGateway
	}
	var apiErr *homeapi.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *server) handleError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeError(w, status, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func unmarshalPayload[T any](r *http.Request) (*T, error) {
	var out T
	if err := json.NewDecoder(r.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &out, nil
}
