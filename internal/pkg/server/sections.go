package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/anicoll/homedash/internal/pkg/model"
	"github.com/anicoll/homedash/internal/pkg/section"
)

func sectionID(r *http.Request) string {
	return mux.Vars(r)["sectionId"]
}

type collapsedRequest struct {
	Collapsed bool `json:"collapsed"`
}

func (s *server) SetCollapsed(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[collapsedRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.SetCollapsed(r.Context(), sectionID(r), req.Collapsed); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) OpenSection(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.OpenSection(sectionID(r)); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) CloseSection(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.CloseSection(sectionID(r)); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type candidate struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Component string `json:"component"`
}

func (s *server) SectionCandidates(w http.ResponseWriter, r *http.Request) {
	widgets, err := s.dash.SectionCandidates(sectionID(r))
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(widgets, func(dw model.DashboardWidget, _ int) candidate {
		return candidate{ID: dw.ID, Name: dw.DisplayName(), Component: dw.Widget.Component}
	}))
}

type childRequest struct {
	ChildID string `json:"childId"`
}

func (s *server) AddChild(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[childRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.AddChild(r.Context(), sectionID(r), req.ChildID); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) EjectChild(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.EjectChild(r.Context(), sectionID(r), mux.Vars(r)["childId"]); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dropRequest carries either the resolved inside flag or the pointer and
// child grid rectangle to hit-test.
type dropRequest struct {
	section.Drop
	Point *section.Point `json:"point,omitempty"`
	Grid  *section.Rect  `json:"grid,omitempty"`
}

func (s *server) DropChild(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[dropRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	drop := req.Drop
	if req.Point != nil && req.Grid != nil {
		drop = section.DropAt(req.Source, req.Target, *req.Grid, *req.Point)
	}
	if err := s.dash.DropChild(r.Context(), sectionID(r), drop); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
