package server

import (
	"net/http"
)

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	from, to := queryRange(r)
	ov, err := s.analytics.GetOverview(r.Context(), UserID(r), from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	from, to := queryRange(r)
	groupBy := r.URL.Query().Get("group_by")
	exercise := r.URL.Query().Get("exercise")
	res, err := s.analytics.GetVolume(r.Context(), UserID(r), from, to, groupBy, exercise)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleE1RM(w http.ResponseWriter, r *http.Request) {
	exercise := r.URL.Query().Get("exercise")
	if exercise == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise query parameter is required"})
		return
	}
	from, to := queryRange(r)
	points, err := s.analytics.GetE1RMTrend(r.Context(), UserID(r), exercise, from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleAdherence(w http.ResponseWriter, r *http.Request) {
	from, to := queryRange(r)
	adh, err := s.analytics.GetAdherence(r.Context(), UserID(r), from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adh)
}

func (s *Server) handlePlanVsActual(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "sessionID")
	if err != nil {
		s.writeError(w, err)
		return
	}
	items, err := s.analytics.GetPlanVsActual(r.Context(), UserID(r), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
