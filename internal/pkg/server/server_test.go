package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/homedash/internal/pkg/command"
	"github.com/anicoll/homedash/internal/pkg/dashboard"
	"github.com/anicoll/homedash/internal/pkg/database"
	"github.com/anicoll/homedash/internal/pkg/homeapi"
	"github.com/anicoll/homedash/internal/pkg/model"
	"github.com/anicoll/homedash/internal/pkg/section"
	"github.com/anicoll/homedash/pkg/hasher"
)

func newHandler(t *testing.T, dash dashboardService, opts ...Option) http.Handler {
	t.Helper()
	h, err := New(dash, opts...).Handler()
	require.NoError(t, err)
	return h
}

func do(t *testing.T, h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetView(t *testing.T) {
	var gotEdit bool
	dash := &MockDashboard{
		ViewFunc: func(_ context.Context, editMode bool) (*dashboard.View, error) {
			gotEdit = editMode
			return &dashboard.View{ID: "d1", Name: "Home", EditMode: editMode}, nil
		},
	}
	h := newHandler(t, dash)

	rec := do(t, h, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view dashboard.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, "d1", view.ID)
	assert.False(t, gotEdit)

	rec = do(t, h, http.MethodGet, "/api/dashboard?edit=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotEdit)
}

func TestGetView_NotLoaded(t *testing.T) {
	dash := &MockDashboard{
		ViewFunc: func(context.Context, bool) (*dashboard.View, error) {
			return nil, dashboard.ErrNotLoaded
		},
	}
	rec := do(t, newHandler(t, dash), http.MethodGet, "/api/dashboard", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"dashboard not loaded"}`, rec.Body.String())
}

func TestEditUnlock(t *testing.T) {
	hash, err := hasher.HashPassword([]byte("letmein"))
	require.NoError(t, err)

	renamed := ""
	dash := &MockDashboard{
		RenameDashboardFunc: func(_ context.Context, name string) error {
			renamed = name
			return nil
		},
	}
	h := newHandler(t, dash, WithEditPassword(hash))

	rec := do(t, h, http.MethodPut, "/api/dashboard/name", `{"name":"Upstairs"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/dashboard?edit=true", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/edit/unlock", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/edit/unlock", `{"password":"letmein"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp unlockResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)

	rec = do(t, h, http.MethodPut, "/api/dashboard/name", `{"name":"Upstairs"}`, editTokenHeader, resp.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Upstairs", renamed)

	rec = do(t, h, http.MethodPost, "/api/edit/lock", "", editTokenHeader, resp.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodPut, "/api/dashboard/name", `{"name":"Again"}`, editTokenHeader, resp.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessions_Expire(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	hash, err := hasher.HashPassword([]byte("pw"))
	require.NoError(t, err)

	s := newSessions()
	s.hash = hash
	s.ttl = time.Minute
	s.now = func() time.Time { return now }

	token, expires, err := s.unlock("pw")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), expires)
	assert.True(t, s.valid(token))

	now = now.Add(time.Minute)
	assert.False(t, s.valid(token))
	assert.False(t, s.valid(""))
}

func TestRequestValidation(t *testing.T) {
	called := false
	fail := func() error {
		called = true
		return nil
	}
	dash := &MockDashboard{
		SetThemeFunc:      func(context.Context, string) error { return fail() },
		ToggleFunc:        func(context.Context, string, bool) error { return fail() },
		SetBrightnessFunc: func(string, int) error { return fail() },
		DragStopFunc:      func(context.Context, string, model.LayoutItem) error { return fail() },
		AddChildFunc:      func(context.Context, string, string) error { return fail() },
	}
	h := newHandler(t, dash)

	tests := map[string]struct {
		method string
		target string
		body   string
	}{
		"unknown theme": {
			method: http.MethodPut,
			target: "/api/dashboard/theme",
			body:   `{"theme":"sepia"}`,
		},
		"toggle without desired state": {
			method: http.MethodPost,
			target: "/api/widgets/a/toggle",
			body:   `{}`,
		},
		"brightness not a number": {
			method: http.MethodPut,
			target: "/api/widgets/a/brightness",
			body:   `{"value":"bright"}`,
		},
		"negative layout position": {
			method: http.MethodPost,
			target: "/api/dashboard/layouts/drag-stop",
			body:   `{"breakpoint":"lg","item":{"i":"a","x":-1,"y":0,"w":2,"h":2}}`,
		},
		"unknown breakpoint": {
			method: http.MethodPost,
			target: "/api/dashboard/layouts/drag-stop",
			body:   `{"breakpoint":"xl","item":{"i":"a","x":0,"y":0,"w":2,"h":2}}`,
		},
		"empty child id": {
			method: http.MethodPost,
			target: "/api/sections/s/children",
			body:   `{"childId":""}`,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			called = false
			rec := do(t, h, tc.method, tc.target, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, called)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[string]struct {
		err    error
		status int
	}{
		"not loaded":         {err: dashboard.ErrNotLoaded, status: http.StatusServiceUnavailable},
		"widget not found":   {err: fmt.Errorf("x: %w", dashboard.ErrWidgetNotFound), status: http.StatusNotFound},
		"not confirmed":      {err: dashboard.ErrNotConfirmed, status: http.StatusPreconditionRequired},
		"already claimed":    {err: section.ErrAlreadyClaimed, status: http.StatusConflict},
		"cycle":              {err: section.ErrCycle, status: http.StatusConflict},
		"capability missing": {err: fmt.Errorf("dim: %w", command.ErrCapabilityMissing), status: http.StatusUnprocessableEntity},
		"upstream 404":       {err: &homeapi.APIError{StatusCode: http.StatusNotFound}, status: http.StatusNotFound},
		"upstream 500":       {err: &homeapi.APIError{StatusCode: http.StatusInternalServerError}, status: http.StatusBadGateway},
		"unknown":            {err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.status, statusFor(tc.err))
		})
	}
}

func TestDeleteWidget(t *testing.T) {
	dash := &MockDashboard{
		DeleteWidgetFunc: func(_ context.Context, widgetID string, confirmed bool) error {
			assert.Equal(t, "a", widgetID)
			if !confirmed {
				return dashboard.ErrNotConfirmed
			}
			return nil
		},
	}
	h := newHandler(t, dash)

	assert.Equal(t, http.StatusPreconditionRequired, do(t, h, http.MethodDelete, "/api/widgets/a", "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/widgets/a?confirm=true", "").Code)
}

func TestExecute(t *testing.T) {
	var executed, child string
	dash := &MockDashboard{
		ExecuteFunc: func(_ context.Context, widgetID, capability string, params map[string]any) error {
			executed = widgetID + ":" + capability
			return nil
		},
		OnChildCommandFunc: func(_ context.Context, childID, capability string, params map[string]any, deviceID string) error {
			child = childID + ":" + capability + ":" + deviceID
			assert.Equal(t, map[string]any{"desiredState": true}, params)
			return nil
		},
	}
	h := newHandler(t, dash)

	rec := do(t, h, http.MethodPost, "/api/widgets/a/execute", `{"capability":"refresh"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "a:refresh", executed)

	rec = do(t, h, http.MethodPost, "/api/widgets/b/execute", `{"capability":"toggle","params":{"desiredState":true},"deviceId":"lamp"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "b:toggle:lamp", child)
}

func TestControls(t *testing.T) {
	var got []string
	dash := &MockDashboard{
		SetBrightnessFunc: func(id string, v int) error {
			got = append(got, fmt.Sprintf("dim %s %d", id, v))
			return nil
		},
		SetWhiteTemperatureFunc: func(id string, k int) error {
			got = append(got, fmt.Sprintf("temperature %s %d", id, k))
			return nil
		},
		SetHueFunc: func(id string, hue int) error {
			return fmt.Errorf("color: %w", command.ErrCapabilityMissing)
		},
		SetWheelPointerFunc: func(id string, dx, dy float64) (int, error) {
			return 90, nil
		},
	}
	h := newHandler(t, dash)

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPut, "/api/widgets/a/brightness", `{"value":40}`).Code)
	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPut, "/api/widgets/a/temperature", `{"kelvin":3000}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, h, http.MethodPut, "/api/widgets/a/hue", `{"hue":10}`).Code)

	rec := do(t, h, http.MethodPut, "/api/widgets/a/wheel", `{"dx":1,"dy":0}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"hue":90}`, rec.Body.String())

	assert.Equal(t, []string{"dim a 40", "temperature a 3000"}, got)
}

func TestSections(t *testing.T) {
	var drop section.Drop
	var ejected string
	dash := &MockDashboard{
		DropChildFunc: func(_ context.Context, sectionID string, d section.Drop) error {
			assert.Equal(t, "s", sectionID)
			drop = d
			return nil
		},
		EjectChildFunc: func(_ context.Context, sectionID, childID string) error {
			ejected = sectionID + "/" + childID
			return nil
		},
		AddChildFunc: func(context.Context, string, string) error {
			return section.ErrAlreadyClaimed
		},
		SectionCandidatesFunc: func(string) ([]model.DashboardWidget, error) {
			name := "Lamp"
			return []model.DashboardWidget{{ID: "a", Name: &name, Widget: model.Widget{Component: "Switch"}}}, nil
		},
	}
	h := newHandler(t, dash)

	rec := do(t, h, http.MethodPost, "/api/sections/s/drop", `{"source":"b","target":"z","inside":true}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, section.Drop{Source: "b", Target: "z", Inside: true}, drop)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/sections/s/children/b", "").Code)
	assert.Equal(t, "s/b", ejected)

	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/sections/s/children", `{"childId":"a"}`).Code)

	rec = do(t, h, http.MethodGet, "/api/sections/s/candidates", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"a","name":"Lamp","component":"Switch"}]`, rec.Body.String())
}

func TestGetHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		rec := do(t, newHandler(t, &MockDashboard{}), http.MethodGet, "/api/widgets/a/history", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("range", func(t *testing.T) {
		history := &MockHistory{
			GetHistoryFunc: func(_ context.Context, widgetID string, from, to *time.Time) ([]database.StateRecord, error) {
				require.NotNil(t, from)
				require.NotNil(t, to)
				assert.Equal(t, "a", widgetID)
				assert.Equal(t, 2026, from.Year())
				return []database.StateRecord{{ID: 1, WidgetID: "a", AnyOn: true, DeviceCount: 2}}, nil
			},
		}
		h := newHandler(t, &MockDashboard{}, WithHistory(history))
		rec := do(t, h, http.MethodGet, "/api/widgets/a/history?from=2026-01-01T00:00:00Z&to=2026-01-02T00:00:00Z", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var records []database.StateRecord
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&records))
		assert.Len(t, records, 1)
	})

	t.Run("bad time", func(t *testing.T) {
		h := newHandler(t, &MockDashboard{}, WithHistory(&MockHistory{}))
		rec := do(t, h, http.MethodGet, "/api/widgets/a/history?from=yesterday", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPreferences(t *testing.T) {
	hidden := map[string]bool{}
	dash := &MockDashboard{
		HideTitleFunc: func(_ context.Context, deviceID string) (bool, error) {
			return hidden[deviceID], nil
		},
		SetHideTitleFunc: func(_ context.Context, deviceID string, hide bool) error {
			hidden[deviceID] = hide
			return nil
		},
	}
	h := newHandler(t, dash)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPut, "/api/devices/lamp/hide-title", `{"hide":true}`).Code)
	rec := do(t, h, http.MethodGet, "/api/devices/lamp/hide-title", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hide":true}`, rec.Body.String())
}

func TestStream(t *testing.T) {
	visible := make(chan struct{}, 1)
	dash := &MockDashboard{
		StatesFunc: func() []model.WidgetState {
			return []model.WidgetState{{WidgetID: "a", AnyOn: true}}
		},
		VisibleFunc: func() { visible <- struct{}{} },
	}
	stream := NewStream(0)
	stream.Attach(dash)
	t.Cleanup(stream.Close)

	srv := httptest.NewServer(newHandler(t, dash, WithStream(stream)))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var msg streamMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, messageSnapshot, msg.Type)
	require.Len(t, msg.States, 1)
	assert.Equal(t, "a", msg.States[0].WidgetID)

	stream.Publish(model.WidgetState{WidgetID: "b", Warning: "offline"})
	msg = streamMessage{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, messageState, msg.Type)
	require.NotNil(t, msg.State)
	assert.Equal(t, "offline", msg.State.Warning)

	require.NoError(t, conn.WriteJSON(streamMessage{Type: messageVisible}))
	select {
	case <-visible:
	case <-time.After(2 * time.Second):
		t.Fatal("visible not forwarded")
	}
}

func TestGetView_ActiveBreakpoint(t *testing.T) {
	h := newHandler(t, &MockDashboard{})

	tests := map[string]struct {
		target string
		want   string
	}{
		"desktop":  {target: "/api/dashboard?width=1300", want: "lg"},
		"tablet":   {target: "/api/dashboard?width=800", want: "sm"},
		"phone":    {target: "/api/dashboard?width=320", want: "xxs"},
		"no width": {target: "/api/dashboard", want: ""},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tc.target, "")
			require.Equal(t, http.StatusOK, rec.Code)
			var resp viewResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tc.want, resp.ActiveBreakpoint)
		})
	}
}

func TestDropChild_HitTest(t *testing.T) {
	var got section.Drop
	dash := &MockDashboard{
		DropChildFunc: func(_ context.Context, _ string, d section.Drop) error {
			got = d
			return nil
		},
	}
	h := newHandler(t, dash)

	rec := do(t, h, http.MethodPost, "/api/sections/s/drop",
		`{"source":"b","target":"z","inside":true,"point":{"x":500,"y":20},"grid":{"x":0,"y":0,"w":200,"h":100}}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, section.Drop{Source: "b", Target: "z", Inside: false}, got)

	rec = do(t, h, http.MethodPost, "/api/sections/s/drop",
		`{"source":"b","point":{"x":50,"y":20},"grid":{"x":0,"y":0,"w":200,"h":100}}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, got.Inside)
}
