package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/scheduler"
)

// scheduledPayload is the wire shape for scheduled workout writes. The date
// comes over as "2006-01-02" (a full timestamp is accepted and truncated).
type scheduledPayload struct {
	Date              string                 `json:"date"`
	TimeOfDay         *string                `json:"time_of_day,omitempty"`
	PlanID            uuid.UUID              `json:"plan_id"`
	Exercises         []models.ExerciseInput `json:"exercises,omitempty"`
	Name              *string                `json:"name,omitempty"`
	Notes             *string                `json:"notes,omitempty"`
	Status            string                 `json:"status,omitempty"`
	SharedWithFriends bool                   `json:"shared_with_friends"`
}

func (p scheduledPayload) toRequest() (scheduler.ScheduledRequest, error) {
	date, err := parseDate(p.Date)
	if err != nil {
		return scheduler.ScheduledRequest{}, err
	}
	return scheduler.ScheduledRequest{
		Date:              date,
		TimeOfDay:         p.TimeOfDay,
		PlanID:            p.PlanID,
		Exercises:         p.Exercises,
		Name:              p.Name,
		Notes:             p.Notes,
		Status:            p.Status,
		SharedWithFriends: p.SharedWithFriends,
	}, nil
}

func (s *Server) handleListScheduled(w http.ResponseWriter, r *http.Request) {
	from, to := queryRange(r)
	list, err := s.scheduled.ListRange(r.Context(), UserID(r), from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateScheduled(w http.ResponseWriter, r *http.Request) {
	var payload scheduledPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date"})
		return
	}
	sw, err := s.scheduled.Create(r.Context(), UserID(r), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sw)
}

func (s *Server) handleGetScheduled(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	sw, err := s.scheduled.Get(r.Context(), UserID(r), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sw)
}

func (s *Server) handleUpdateScheduled(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var payload scheduledPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date"})
		return
	}
	sw, err := s.scheduled.Update(r.Context(), UserID(r), id, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sw)
}

func (s *Server) handleDeleteScheduled(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.scheduled.Delete(r.Context(), UserID(r), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDuplicateScheduled(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	sw, err := s.scheduled.Duplicate(r.Context(), UserID(r), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sw)
}
