package attendance

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"geoasistencia/internal/geofence"
	"geoasistencia/internal/presence"
	"geoasistencia/internal/transport/http/shared"
	dErrors "geoasistencia/pkg/domain-errors"
	"geoasistencia/pkg/requestcontext"
)

const idempotencyHeader = "Idempotency-Key"

// Handler exposes the attendance surface. The acting profile always comes
// from the authenticated identity, never from the request body.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the attendance routes on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registro/entrada", h.handleTyped(presence.Entrada))
	r.Post("/registro/salida", h.handleTyped(presence.Salida))
	r.Post("/registro/new", h.handleUnified)
	r.Get("/registro/ultimo", h.handleLast)
	r.Get("/registro/historial", h.handleHistory)
}

type coordRequest struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

type unifiedRequest struct {
	Type      string  `json:"tipo"`
	Latitude  float64 `json:"latitud"`
	Longitude float64 `json:"longitud"`
}

type registrationView struct {
	ID             string    `json:"id"`
	Type           string    `json:"tipo"`
	Zone           string    `json:"geocerca"`
	DistanceMeters float64   `json:"distancia_metros"`
	Note           string    `json:"nota"`
	Presence       string    `json:"en_sede"`
	RecordedAt     time.Time `json:"creado_en"`
}

func registrationViewOf(reg Registration) registrationView {
	return registrationView{
		ID:             reg.Event.ID.String(),
		Type:           string(reg.Event.Type),
		Zone:           reg.ZoneName,
		DistanceMeters: reg.DistanceMeters,
		Note:           reg.Event.Note,
		Presence:       string(reg.Presence),
		RecordedAt:     reg.Event.RecordedAt,
	}
}

func (h *Handler) handleTyped(eventType presence.EventType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req coordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
			return
		}
		h.register(w, r, eventType, geofence.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude})
	}
}

func (h *Handler) handleUnified(w http.ResponseWriter, r *http.Request) {
	var req unifiedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	eventType, err := presence.ParseEventType(req.Type)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.register(w, r, eventType, geofence.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, eventType presence.EventType, coord geofence.Coordinate) {
	ctx := r.Context()
	profileID := requestcontext.ProfileID(ctx)

	reg, err := h.service.Register(ctx, profileID, eventType, coord, r.Header.Get(idempotencyHeader))
	if err != nil {
		h.logFailure(ctx, "failed to register attendance event", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, registrationViewOf(reg))
}

type eventView struct {
	ID         string    `json:"id"`
	Type       string    `json:"tipo"`
	GeofenceID string    `json:"geocerca_id"`
	Latitude   float64   `json:"latitud"`
	Longitude  float64   `json:"longitud"`
	Valid      bool      `json:"valido"`
	Note       string    `json:"nota"`
	RecordedAt time.Time `json:"creado_en"`
}

func eventViewOf(e Event) eventView {
	return eventView{
		ID:         e.ID.String(),
		Type:       string(e.Type),
		GeofenceID: e.GeofenceID.String(),
		Latitude:   e.Latitude,
		Longitude:  e.Longitude,
		Valid:      e.Valid,
		Note:       e.Note,
		RecordedAt: e.RecordedAt,
	}
}

func (h *Handler) handleLast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.service.Last(ctx, requestcontext.ProfileID(ctx))
	if err != nil {
		h.logFailure(ctx, "failed to load last event", err)
		shared.WriteError(w, err)
		return
	}

	body := map[string]any{"en_sede": string(status.Presence)}
	if status.Event != nil {
		body["ultimo"] = eventViewOf(*status.Event)
	} else {
		body["ultimo"] = nil
	}
	shared.WriteJSON(w, http.StatusOK, body)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	days := 0
	if raw := r.URL.Query().Get("dias"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "dias must be an integer"))
			return
		}
		days = parsed
	}

	events, err := h.service.History(ctx, requestcontext.ProfileID(ctx), days)
	if err != nil {
		h.logFailure(ctx, "failed to load attendance history", err)
		shared.WriteError(w, err)
		return
	}

	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventViewOf(e))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"count": len(views), "data": views})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	switch {
	case dErrors.HasCode(err, dErrors.CodeInvalidInput),
		dErrors.HasCode(err, dErrors.CodeNotFound),
		dErrors.HasCode(err, dErrors.CodeConflict),
		dErrors.HasCode(err, dErrors.CodeForbidden):
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
