package geofence

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

// Handler exposes the admin-only site and zone surface.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the site and zone routes on an admin-gated router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/sede", h.handleListSites)
	r.Post("/sede", h.handleCreateSite)
	r.Put("/sede/{sedeId}", h.handleUpdateSite)
	r.Delete("/sede/{sedeId}", h.handleDeleteSite)
	r.Get("/sede/{sedeId}/geocercas", h.handleListZones)

	r.Post("/geocerca", h.handleCreateZone)
	r.Put("/geocerca/{geocercaId}", h.handleUpdateZone)
	r.Delete("/geocerca/{geocercaId}", h.handleDeleteZone)
}

type siteRequest struct {
	Name    string `json:"nombre"`
	Address string `json:"direccion"`
}

type siteView struct {
	ID        string    `json:"id"`
	Name      string    `json:"nombre"`
	Address   string    `json:"direccion"`
	CreatedAt time.Time `json:"creado_en"`
}

func siteViewOf(site Site) siteView {
	return siteView{
		ID:        site.ID.String(),
		Name:      site.Name,
		Address:   site.Address,
		CreatedAt: site.CreatedAt,
	}
}

type zoneRequest struct {
	SiteID       string  `json:"sede_id"`
	Name         string  `json:"nombre"`
	Latitude     float64 `json:"latitud"`
	Longitude    float64 `json:"longitud"`
	RadiusMeters float64 `json:"radio_metros"`
}

type zoneView struct {
	ID           string    `json:"id"`
	SiteID       string    `json:"sede_id"`
	Name         string    `json:"nombre"`
	Latitude     float64   `json:"latitud"`
	Longitude    float64   `json:"longitud"`
	RadiusMeters float64   `json:"radio_metros"`
	CreatedAt    time.Time `json:"creado_en"`
}

func zoneViewOf(zone GeoFence) zoneView {
	return zoneView{
		ID:           zone.ID.String(),
		SiteID:       zone.SiteID.String(),
		Name:         zone.Name,
		Latitude:     zone.Center.Latitude,
		Longitude:    zone.Center.Longitude,
		RadiusMeters: zone.RadiusMeters,
		CreatedAt:    zone.CreatedAt,
	}
}

func (h *Handler) handleListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.service.ListSites(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "failed to list sites", err)
		shared.WriteError(w, err)
		return
	}
	views := make([]siteView, 0, len(sites))
	for _, site := range sites {
		views = append(views, siteViewOf(site))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"count": len(views), "data": views})
}

func (h *Handler) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	var req siteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	site, err := h.service.CreateSite(r.Context(), req.Name, req.Address)
	if err != nil {
		h.logFailure(r.Context(), "failed to create site", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, siteViewOf(site))
}

func (h *Handler) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	siteID, err := id.ParseSiteID(chi.URLParam(r, "sedeId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req siteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	site, err := h.service.UpdateSite(r.Context(), siteID, req.Name, req.Address)
	if err != nil {
		h.logFailure(r.Context(), "failed to update site", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, siteViewOf(site))
}

func (h *Handler) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	siteID, err := id.ParseSiteID(chi.URLParam(r, "sedeId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.DeleteSite(r.Context(), siteID); err != nil {
		h.logFailure(r.Context(), "failed to delete site", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleListZones(w http.ResponseWriter, r *http.Request) {
	siteID, err := id.ParseSiteID(chi.URLParam(r, "sedeId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	zones, err := h.service.ListZones(r.Context(), siteID)
	if err != nil {
		h.logFailure(r.Context(), "failed to list geofences", err)
		shared.WriteError(w, err)
		return
	}
	views := make([]zoneView, 0, len(zones))
	for _, zone := range zones {
		views = append(views, zoneViewOf(zone))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"count": len(views), "data": views})
}

func (h *Handler) handleCreateZone(w http.ResponseWriter, r *http.Request) {
	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	siteID, err := id.ParseSiteID(req.SiteID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	zone, err := h.service.CreateZone(r.Context(), siteID, req.Name,
		Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}, req.RadiusMeters)
	if err != nil {
		h.logFailure(r.Context(), "failed to create geofence", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, zoneViewOf(zone))
}

func (h *Handler) handleUpdateZone(w http.ResponseWriter, r *http.Request) {
	zoneID, err := id.ParseGeofenceID(chi.URLParam(r, "geocercaId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	zone, err := h.service.UpdateZone(r.Context(), zoneID, req.Name,
		Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}, req.RadiusMeters)
	if err != nil {
		h.logFailure(r.Context(), "failed to update geofence", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, zoneViewOf(zone))
}

func (h *Handler) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	zoneID, err := id.ParseGeofenceID(chi.URLParam(r, "geocercaId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.DeleteZone(r.Context(), zoneID); err != nil {
		h.logFailure(r.Context(), "failed to delete geofence", err)
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
