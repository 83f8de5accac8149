package profile

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"geoasistencia/internal/transport/http/shared"
	id "geoasistencia/pkg/domain"
	dErrors "geoasistencia/pkg/domain-errors"
	"geoasistencia/pkg/requestcontext"
)

// Handler exposes the admin-only profile lifecycle surface.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the profile routes on an admin-gated router.
func (h *Handler) Register(r chi.Router) {
	r.Patch("/perfil/{perfilId}/estado", h.handleStatus)
	r.Patch("/perfil/{perfilId}/rol", h.handleRole)
	r.Delete("/perfil/{perfilId}", h.handleDelete)
}

type statusRequest struct {
	Status string `json:"estado"`
}

type roleRequest struct {
	Role string `json:"rol"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID, err := id.ParseProfileID(chi.URLParam(r, "perfilId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	switch Status(req.Status) {
	case StatusSuspended:
		err = h.service.Suspend(ctx, profileID)
	case StatusActive:
		err = h.service.Reactivate(ctx, profileID)
	default:
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "estado must be ACTIVE or SUSPENDED"))
		return
	}
	if err != nil {
		h.logFailure(ctx, "failed to update profile status", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"estado": req.Status})
}

func (h *Handler) handleRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID, err := id.ParseProfileID(chi.URLParam(r, "perfilId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	if err := h.service.ChangeRole(ctx, profileID, req.Role); err != nil {
		h.logFailure(ctx, "failed to change profile role", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"rol": req.Role})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID, err := id.ParseProfileID(chi.URLParam(r, "perfilId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.SoftDelete(ctx, profileID); err != nil {
		h.logFailure(ctx, "failed to delete profile", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	switch {
	case dErrors.HasCode(err, dErrors.CodeInvalidInput),
		dErrors.HasCode(err, dErrors.CodeNotFound),
		dErrors.HasCode(err, dErrors.CodeConflict):
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
