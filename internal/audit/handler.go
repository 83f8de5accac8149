package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"geoasistencia/internal/transport/http/shared"
	dErrors "geoasistencia/pkg/domain-errors"
	"geoasistencia/pkg/requestcontext"
)

// Handler exposes the admin-only ledger read surface.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the audit routes on an admin-gated router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/auditoria", h.handleList)
}

type listResponse struct {
	Count      int          `json:"count"`
	Records    []recordView `json:"data"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type recordView struct {
	ID                string    `json:"id"`
	ActorEmployeeCode string    `json:"codigo_empleado"`
	Table             string    `json:"tabla_afectada"`
	Action            string    `json:"accion"`
	Detail            any       `json:"detalle_cambio"`
	CreatedAt         time.Time `json:"creado_en"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be an integer"))
			return
		}
		limit = parsed
	}

	page, err := h.service.List(ctx, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			h.logger.ErrorContext(ctx, "failed to list audit records",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		shared.WriteError(w, err)
		return
	}

	views := make([]recordView, 0, len(page.Records))
	for _, rec := range page.Records {
		views = append(views, recordView{
			ID:                rec.ID.String(),
			ActorEmployeeCode: rec.ActorEmployeeCode,
			Table:             string(rec.Table),
			Action:            string(rec.Action),
			Detail:            rec.Detail,
			CreatedAt:         rec.CreatedAt,
		})
	}
	shared.WriteJSON(w, http.StatusOK, listResponse{
		Count:      len(views),
		Records:    views,
		NextCursor: page.NextCursor,
	})
}
