package assignment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"geoasistencia/internal/transport/http/shared"
	id "geoasistencia/pkg/domain"
	dErrors "geoasistencia/pkg/domain-errors"
	"geoasistencia/pkg/requestcontext"
)

// Handler exposes the admin-only assignment surface.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the assignment routes on an admin-gated router. The two
// route prefixes are both kept for compatibility with existing clients.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assign/new", h.handleCreate)
	r.Put("/assign/change", h.handleChange)
	r.Delete("/asignacion/remove/{perfilId}/{geocercaId}", h.handleRemove)
	r.Get("/asignacion/geocerca/{geocercaId}/usuarios", h.handleListAssigned)
	r.Get("/asignacion/geocerca/{geocercaId}/disponibles", h.handleListAvailable)
}

type createRequest struct {
	ProfileID  string `json:"perfil_id"`
	GeofenceID string `json:"geocerca_id"`
	Entry      string `json:"hora_entrada"`
	Exit       string `json:"hora_salida"`
}

type changeRequest struct {
	ProfileID     string `json:"perfil_id"`
	OldGeofenceID string `json:"geocerca_anterior"`
	NewGeofenceID string `json:"geocerca_nueva"`
	Entry         string `json:"hora_entrada"`
	Exit          string `json:"hora_salida"`
}

type assignmentView struct {
	ProfileID  string    `json:"perfil_id"`
	GeofenceID string    `json:"geocerca_id"`
	Entry      string    `json:"hora_entrada"`
	Exit       string    `json:"hora_salida"`
	CreatedAt  time.Time `json:"creado_en"`
}

func viewOf(a Assignment) assignmentView {
	return assignmentView{
		ProfileID:  a.ProfileID.String(),
		GeofenceID: a.GeofenceID.String(),
		Entry:      a.Schedule.Entry,
		Exit:       a.Schedule.Exit,
		CreatedAt:  a.CreatedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	profileID, err := id.ParseProfileID(req.ProfileID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	zoneID, err := id.ParseGeofenceID(req.GeofenceID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	created, err := h.service.Create(ctx, profileID, zoneID, req.Entry, req.Exit)
	if err != nil {
		h.logFailure(ctx, "failed to create assignment", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, viewOf(created))
}

func (h *Handler) handleChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req changeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	profileID, err := id.ParseProfileID(req.ProfileID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	oldZoneID, err := id.ParseGeofenceID(req.OldGeofenceID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	newZoneID, err := id.ParseGeofenceID(req.NewGeofenceID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	changed, err := h.service.Change(ctx, profileID, oldZoneID, newZoneID, req.Entry, req.Exit)
	if err != nil {
		h.logFailure(ctx, "failed to change assignment", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, viewOf(changed))
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID, err := id.ParseProfileID(chi.URLParam(r, "perfilId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	zoneID, err := id.ParseGeofenceID(chi.URLParam(r, "geocercaId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.Remove(ctx, profileID, zoneID); err != nil {
		h.logFailure(ctx, "failed to remove assignment", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type assignedView struct {
	ProfileID    string    `json:"perfil_id"`
	PersonName   string    `json:"nombre"`
	EmployeeCode string    `json:"codigo_empleado"`
	JobTitle     string    `json:"cargo"`
	Entry        string    `json:"hora_entrada"`
	Exit         string    `json:"hora_salida"`
	AssignedAt   time.Time `json:"asignado_en"`
}

func (h *Handler) handleListAssigned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	zoneID, err := id.ParseGeofenceID(chi.URLParam(r, "geocercaId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	assigned, err := h.service.ListAssigned(ctx, zoneID)
	if err != nil {
		h.logFailure(ctx, "failed to list assigned profiles", err)
		shared.WriteError(w, err)
		return
	}

	views := make([]assignedView, 0, len(assigned))
	for _, ap := range assigned {
		views = append(views, assignedView{
			ProfileID:    ap.Profile.ID.String(),
			PersonName:   ap.Profile.PersonName,
			EmployeeCode: ap.Profile.EmployeeCode,
			JobTitle:     ap.Profile.JobTitle,
			Entry:        ap.Schedule.Entry,
			Exit:         ap.Schedule.Exit,
			AssignedAt:   ap.AssignedAt,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"count": len(views), "data": views})
}

type availableView struct {
	ProfileID    string `json:"perfil_id"`
	PersonName   string `json:"nombre"`
	EmployeeCode string `json:"codigo_empleado"`
	JobTitle     string `json:"cargo"`
}

func (h *Handler) handleListAvailable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	zoneID, err := id.ParseGeofenceID(chi.URLParam(r, "geocercaId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var siteID id.SiteID
	if raw := r.URL.Query().Get("sedeId"); raw != "" {
		siteID, err = id.ParseSiteID(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
	}

	available, err := h.service.ListAvailable(ctx, zoneID, siteID)
	if err != nil {
		h.logFailure(ctx, "failed to list available profiles", err)
		shared.WriteError(w, err)
		return
	}

	views := make([]availableView, 0, len(available))
	for _, sum := range available {
		views = append(views, availableView{
			ProfileID:    sum.ID.String(),
			PersonName:   sum.PersonName,
			EmployeeCode: sum.EmployeeCode,
			JobTitle:     sum.JobTitle,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"count": len(views), "data": views})
}

// logFailure keeps expected client errors out of the error log.
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
