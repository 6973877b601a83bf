package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/anicoll/homedash/internal/pkg/dashboard"
)

var errHistoryDisabled = errors.New("state history is not configured")

func widgetID(r *http.Request) string {
	return mux.Vars(r)["widgetId"]
}

func (s *server) AddWidget(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[dashboard.AddWidgetRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := s.dash.AddWidget(r.Context(), *req)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// DeleteWidget requires ?confirm=true.
func (s *server) DeleteWidget(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := s.dash.DeleteWidget(r.Context(), widgetID(r), confirmed); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) RenameWidget(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[nameRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.RenameWidget(r.Context(), widgetID(r), req.Name); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type configRequest struct {
	Config map[string]any `json:"config"`
}

func (s *server) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[configRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.UpdateConfig(r.Context(), widgetID(r), req.Config); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleRequest struct {
	DesiredState bool `json:"desiredState"`
}

func (s *server) Toggle(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[toggleRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.Toggle(r.Context(), widgetID(r), req.DesiredState); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type powerRequest struct {
	On bool `json:"on"`
}

func (s *server) SetPower(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[powerRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.SetPower(r.Context(), widgetID(r), req.On); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type executeRequest struct {
	Capability string         `json:"capability"`
	Params     map[string]any `json:"params,omitempty"`
	DeviceID   string         `json:"deviceId,omitempty"`
}

// Execute sends a raw capability command. With a deviceId the command
// targets that device of the widget directly.
func (s *server) Execute(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[executeRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.DeviceID != "" {
		err = s.dash.OnChildCommand(r.Context(), widgetID(r), req.Capability, req.Params, req.DeviceID)
	} else {
		err = s.dash.Execute(r.Context(), widgetID(r), req.Capability, req.Params)
	}
	if err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type brightnessRequest struct {
	Value int `json:"value"`
}

func (s *server) SetBrightness(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[brightnessRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.SetBrightness(widgetID(r), req.Value); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type temperatureRequest struct {
	Kelvin int `json:"kelvin"`
}

func (s *server) SetTemperature(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[temperatureRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.SetWhiteTemperature(widgetID(r), req.Kelvin); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type hueRequest struct {
	Hue int `json:"hue"`
}

func (s *server) SetHue(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[hueRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.SetHue(widgetID(r), req.Hue); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type wheelRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (s *server) SetWheelPointer(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[wheelRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hue, err := s.dash.SetWheelPointer(widgetID(r), req.DX, req.DY)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, hueRequest{Hue: hue})
}

func (s *server) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.Refresh(r.Context(), widgetID(r)); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) GetWeather(w http.ResponseWriter, r *http.Request) {
	report, err := s.dash.Weather(r.Context(), widgetID(r))
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetHistory accepts optional RFC 3339 from/to bounds; both are needed to
// narrow the default window.
func (s *server) GetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errHistoryDisabled)
		return
	}
	from, err := parseTime(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseTime(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	records, err := s.history.GetHistory(r.Context(), widgetID(r), from, to)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
