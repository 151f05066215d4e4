package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	ids, err := s.friends.FriendIDs(r.Context(), UserID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"friend_ids": ids})
}

func (s *Server) handleFriendRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID int `json:"user_id"`
	}
	if err := decodeJSON(r, &body); err != nil || body.UserID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	me := UserID(r)
	if body.UserID == me {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot befriend yourself"})
		return
	}
	if err := s.friends.CreateFriendRequest(r.Context(), me, body.UserID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "pending"})
}

func (s *Server) handleAcceptFriend(w http.ResponseWriter, r *http.Request) {
	otherID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}
	if err := s.friends.AcceptFriendRequest(r.Context(), UserID(r), otherID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (s *Server) handleFriendScheduled(w http.ResponseWriter, r *http.Request) {
	friendID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}
	from, to := queryRange(r)
	list, err := s.scheduled.ListForFriend(r.Context(), UserID(r), friendID, from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
