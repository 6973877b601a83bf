package server

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/anicoll/homedash/internal/pkg/dashboard"
	"github.com/anicoll/homedash/internal/pkg/layout"
	"github.com/anicoll/homedash/internal/pkg/model"
)

type viewResponse struct {
	*dashboard.View
	// ActiveBreakpoint is set when the client reports its viewport width.
	ActiveBreakpoint string `json:"activeBreakpoint,omitempty"`
}

func (s *server) GetView(w http.ResponseWriter, r *http.Request) {
	edit, _ := strconv.ParseBool(r.URL.Query().Get("edit"))
	if edit && !s.editAllowed(r) {
		writeError(w, http.StatusUnauthorized, ErrEditLocked)
		return
	}
	view, err := s.dash.View(r.Context(), edit)
	if err != nil {
		s.handleError(w, err)
		return
	}
	resp := viewResponse{View: view}
	if width, err := strconv.Atoi(r.URL.Query().Get("width")); err == nil {
		resp.ActiveBreakpoint = layout.ForWidth(width).Name
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) Reload(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.Reload(r.Context()); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) GetStates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.States())
}

// Visible is called by the client when the page becomes visible again.
func (s *server) Visible(w http.ResponseWriter, _ *http.Request) {
	s.dash.Visible()
	w.WriteHeader(http.StatusNoContent)
}

type nameRequest struct {
	Name string `json:"name"`
}

func (s *server) RenameDashboard(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[nameRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.RenameDashboard(r.Context(), req.Name); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type themeRequest struct {
	Theme string `json:"theme"`
}

func (s *server) SetTheme(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[themeRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.SetTheme(r.Context(), req.Theme); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) DragStart(w http.ResponseWriter, _ *http.Request) {
	if err := s.dash.DragStart(); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type layoutsRequest struct {
	Layouts model.Layouts `json:"layouts"`
}

func (s *server) ChangeLayouts(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[layoutsRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.LayoutChange(r.Context(), req.Layouts); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dragStopRequest struct {
	Breakpoint string           `json:"breakpoint"`
	Item       model.LayoutItem `json:"item"`
}

func (s *server) DragStop(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[dragStopRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.DragStop(r.Context(), req.Breakpoint, req.Item); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) GetHideTitle(w http.ResponseWriter, r *http.Request) {
	hide, err := s.dash.HideTitle(r.Context(), mux.Vars(r)["deviceId"])
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hideTitleRequest{Hide: hide})
}

type hideTitleRequest struct {
	Hide bool `json:"hide"`
}

func (s *server) SetHideTitle(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[hideTitleRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.SetHideTitle(r.Context(), mux.Vars(r)["deviceId"], req.Hide); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
