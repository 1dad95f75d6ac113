// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strings"

	"github.com/danielhkuo/roompick/auth"
	"github.com/danielhkuo/roompick/middleware"
	"github.com/danielhkuo/roompick/models"
	"github.com/danielhkuo/roompick/session"
)

type RoomHandler struct {
	coord *session.Coordinator
}

func NewRoomHandler(coord *session.Coordinator) *RoomHandler {
	return &RoomHandler{coord: coord}
}

// CreateRoom handles POST /rooms
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromRequest(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	room, err := h.coord.CreateRoom(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, room)
}

// GetRoom handles GET /rooms/{code}
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code is required")
		return
	}

	view, err := h.coord.GetRoom(r.Context(), code)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, view)
}

// GetProgress handles GET /rooms/{code}/progress
func (h *RoomHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.coord.Progress(r.Context(), r.PathValue("code"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, progress)
}

// JoinRoom handles POST /rooms/{code}/join. A first join answers 201,
// a repeat join 200.
func (h *RoomHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromRequest(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	p, created, err := h.coord.Join(r.Context(), r.PathValue("code"), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	middleware.JSONResponse(w, status, p)
}

// StartVoting handles POST /rooms/{code}/start
func (h *RoomHandler) StartVoting(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromRequest(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	var req models.StartVotingRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "category is required")
		return
	}

	room, err := h.coord.StartVoting(r.Context(), r.PathValue("code"), userID, req.Category)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, room)
}

// CastVote handles POST /rooms/{code}/votes
func (h *RoomHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromRequest(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.CandidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_id is required")
		return
	}

	vote, err := h.coord.CastVote(r.Context(), r.PathValue("code"), userID, req.CandidateID, req.Score)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, vote)
}

// FinishVoting handles POST /rooms/{code}/finish
func (h *RoomHandler) FinishVoting(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromRequest(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	room, err := h.coord.FinishVoting(r.Context(), r.PathValue("code"), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, room)
}
