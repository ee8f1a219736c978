package rooms

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/duet/internal/application/usecases/connection"
	"github.com/hilthontt/duet/internal/application/usecases/entry"
	"github.com/hilthontt/duet/internal/application/usecases/room"
	"github.com/hilthontt/duet/internal/domain"
	"github.com/hilthontt/duet/internal/infrastructure/json"
	"github.com/hilthontt/duet/internal/infrastructure/logging"
	"github.com/hilthontt/duet/internal/infrastructure/ratelimiter"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type Handler struct {
	roomUseCase room.RoomUseCase
	gate        *entry.Gate
	machine     *connection.Machine
	attempts    *ratelimiter.AttemptLimiter
	logger      logging.Logger
}

// NewHandler wires the room endpoints. attempts may be nil to disable the
// password and token guessing guard.
func NewHandler(
	roomUseCase room.RoomUseCase,
	gate *entry.Gate,
	machine *connection.Machine,
	attempts *ratelimiter.AttemptLimiter,
	logger logging.Logger,
) *Handler {
	return &Handler{
		roomUseCase: roomUseCase,
		gate:        gate,
		machine:     machine,
		attempts:    attempts,
		logger:      logger,
	}
}

// CreateRoomHandler godoc
// @Summary      Create a room
// @Description  Creates a password-protected two-party room that expires after the configured TTL
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        request body createRoomRequest true "Room password and host identity"
// @Success      200 {object} createRoomResponse "Room created"
// @Failure      400 {object} json.ErrorResponse "Validation error"
// @Failure      409 {object} json.ErrorResponse "Too many active rooms"
// @Failure      500 {object} json.ErrorResponse "Internal server error"
// @Router       /room [post]
func (h *Handler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	host := domain.Identity{
		UID:         req.UID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	}

	roomID, err := h.roomUseCase.Create(r.Context(), req.Password, host)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, createRoomResponse{Okay: true, RoomID: roomID})
}

// CheckPasswordHandler godoc
// @Summary      Check a room password
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        request body checkPasswordRequest true "Room id and password"
// @Success      200 {object} okayResponse "Password matches"
// @Failure      401 {object} json.ErrorResponse "Wrong password"
// @Failure      404 {object} json.ErrorResponse "Room not found"
// @Failure      429 {object} json.ErrorResponse "Too many attempts"
// @Router       /room/check [post]
func (h *Handler) CheckPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req checkPasswordRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if !h.allowAttempt(w, r, req.RoomID) {
		return
	}

	ok, err := h.roomUseCase.CheckPassword(r.Context(), req.RoomID, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !ok {
		h.writeError(w, r, domain.ErrWrongPassword)
		return
	}

	json.Write(w, http.StatusOK, okayResponse{Okay: true})
}

// IssueTokenHandler godoc
// @Summary      Issue an admission token
// @Description  Issues a short-lived signed token. With room_id and password the token is bound to that room after the password is checked; with an empty body it is unbound.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        request body issueTokenRequest false "Optional room binding"
// @Success      200 {object} issueTokenResponse "Token issued"
// @Failure      401 {object} json.ErrorResponse "Wrong password"
// @Failure      404 {object} json.ErrorResponse "Room not found"
// @Router       /room/jwt [post]
func (h *Handler) IssueTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := json.Read(r, &req); err != nil && !errors.Is(err, json.ErrEmptyBody) {
		json.WriteValidationError(w, err)
		return
	}

	if req.RoomID != "" {
		if !h.allowAttempt(w, r, req.RoomID) {
			return
		}
		ok, err := h.roomUseCase.CheckPassword(r.Context(), req.RoomID, req.Password)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if !ok {
			h.writeError(w, r, domain.ErrWrongPassword)
			return
		}
	}

	token, expiresAt, err := h.gate.Issue(req.RoomID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, issueTokenResponse{
		Okay:      true,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// VerifyTokenHandler godoc
// @Summary      Verify an admission token
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        request body verifyTokenRequest true "Token and optional room id"
// @Success      200 {object} okayResponse "Token valid"
// @Failure      401 {object} json.ErrorResponse "token expired, token malformed or token issued for another room"
// @Router       /room/verify [post]
func (h *Handler) VerifyTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := h.gate.Verify(req.Token, req.RoomID); err != nil {
		h.writeError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, okayResponse{Okay: true})
}

// ListRoomsHandler godoc
// @Summary      List active rooms
// @Tags         rooms
// @Produce      json
// @Success      200 {object} roomsResponse "Active rooms, oldest first"
// @Failure      500 {object} json.ErrorResponse "Internal server error"
// @Router       /rooms [get]
func (h *Handler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomUseCase.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rooms == nil {
		rooms = []domain.Room{}
	}

	json.Write(w, http.StatusOK, roomsResponse{Okay: true, Rooms: rooms})
}

// GetRoomHandler godoc
// @Summary      Get a room
// @Tags         rooms
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Success      200 {object} roomResponse "Room"
// @Failure      404 {object} json.ErrorResponse "Room not found"
// @Router       /room/{roomId} [get]
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	found, err := h.roomUseCase.GetByID(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, roomResponse{Okay: true, Room: *found})
}

// GetRoomAuditHandler godoc
// @Summary      Room lifecycle history
// @Tags         rooms
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Param        limit query int false "Maximum entries" default(50)
// @Success      200 {object} auditResponse "Audit entries, newest first"
// @Router       /room/{roomId}/audit [get]
func (h *Handler) GetRoomAuditHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			json.WriteBadRequestError(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	entries, err := h.roomUseCase.History(r.Context(), chi.URLParam(r, "roomId"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.RoomAuditLog{}
	}

	json.Write(w, http.StatusOK, auditResponse{Okay: true, Entries: entries})
}

// TransitionHandler godoc
// @Summary      Update a member's connection status
// @Description  Moves the caller's slot through disconnected, ready and connecting. A new non-host identity claims the guest slot.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Param        request body transitionRequest true "Identity and target status"
// @Success      200 {object} roomResponse "Room after the transition"
// @Failure      400 {object} json.ErrorResponse "Validation error"
// @Failure      404 {object} json.ErrorResponse "Room not found"
// @Failure      409 {object} json.ErrorResponse "Room full or transition not allowed"
// @Router       /room/{roomId}/connection [post]
func (h *Handler) TransitionHandler(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	status, err := domain.ParseConnectionStatus(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	who := domain.Identity{
		UID:         req.UID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	}

	updated, err := h.machine.Transition(r.Context(), chi.URLParam(r, "roomId"), who, status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, roomResponse{Okay: true, Room: *updated})
}

func (h *Handler) allowAttempt(w http.ResponseWriter, r *http.Request, roomID string) bool {
	if h.attempts == nil {
		return true
	}

	ok, retryAfter := h.attempts.Allow(roomID + "|" + ratelimiter.ClientIP(r))
	if ok {
		return true
	}

	h.logger.Warn(logging.Room, logging.RateLimiting, "too many room attempts", map[logging.ExtraKey]any{
		logging.RoomID:   roomID,
		logging.ClientIp: r.RemoteAddr,
	})
	json.WriteRateLimitError(w, int(math.Ceil(retryAfter.Seconds())))
	return false
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		json.WriteValidationError(w, err)
	case errors.Is(err, domain.ErrWrongPassword):
		json.WriteError(w, http.StatusUnauthorized, domain.ErrWrongPassword.Error())
	case errors.Is(err, entry.ErrTokenExpired):
		json.WriteError(w, http.StatusUnauthorized, entry.ErrTokenExpired.Error())
	case errors.Is(err, entry.ErrTokenRoomMismatch):
		json.WriteError(w, http.StatusUnauthorized, entry.ErrTokenRoomMismatch.Error())
	case errors.Is(err, entry.ErrTokenInvalid):
		json.WriteError(w, http.StatusUnauthorized, entry.ErrTokenInvalid.Error())
	case errors.Is(err, domain.ErrRoomNotFound):
		json.WriteError(w, http.StatusNotFound, domain.ErrRoomNotFound.Error())
	case errors.Is(err, domain.ErrRoomCapacityReached),
		errors.Is(err, domain.ErrRoomFull),
		errors.Is(err, domain.ErrInvalidTransition):
		json.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTransactionAborted):
		json.WriteError(w, http.StatusConflict, "room is busy, try again")
	default:
		h.logger.Error(logging.RequestResponse, logging.ExternalService, "request failed", map[logging.ExtraKey]any{
			logging.Method:       r.Method,
			logging.Path:         r.URL.Path,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w)
	}
}
