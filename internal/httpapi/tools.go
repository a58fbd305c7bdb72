package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/geofence"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/places"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/pricing"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

// Estimator is satisfied by *pricing.Estimator.
type Estimator interface {
	Estimate(ctx context.Context, req pricing.Request) (*pricing.Estimate, error)
}

// PlaceFinder is satisfied by *places.Client.
type PlaceFinder interface {
	Autocomplete(ctx context.Context, query string) ([]places.Suggestion, error)
	Details(ctx context.Context, placeID string) (*places.Place, error)
}

// ToolsHandler serves the booking-flow helpers: price estimates, address
// lookup and the service-area check.
type ToolsHandler struct {
	estimator Estimator
	places    PlaceFinder
	geo       *geofence.Validator
	log       *logging.Logger
}

// NewToolsHandler returns a configured ToolsHandler.
func NewToolsHandler(est Estimator, pf PlaceFinder, geo *geofence.Validator, log *logging.Logger) *ToolsHandler {
	return &ToolsHandler{estimator: est, places: pf, geo: geo, log: log}
}

type areaCheckRequest struct {
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	PlaceID string   `json:"place_id"`
}

type areaCheckResponse struct {
	Within     bool                `json:"within"`
	Area       string              `json:"area,omitempty"`
	Coordinate geofence.Coordinate `json:"coordinate"`
}

func (h *ToolsHandler) estimate(w http.ResponseWriter, r *http.Request) {
	var req pricing.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	est, err := h.estimator.Estimate(r.Context(), req)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	jsonOK(w, est)
}

// autocomplete never fails the caller: any upstream error becomes an empty
// suggestion list.
func (h *ToolsHandler) autocomplete(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.places.Autocomplete(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.log.Warn("autocomplete failed", "err", err)
		suggestions = []places.Suggestion{}
	}
	jsonOK(w, suggestions)
}

func (h *ToolsHandler) placeDetails(w http.ResponseWriter, r *http.Request) {
	p, err := h.places.Details(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, places.ErrNoPlace) {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Warn("place details failed", "placeId", chi.URLParam(r, "id"), "err", err)
		jsonError(w, "address lookup unavailable", http.StatusBadGateway)
		return
	}
	jsonOK(w, p)
}

func (h *ToolsHandler) checkArea(w http.ResponseWriter, r *http.Request) {
	var body areaCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var c geofence.Coordinate
	switch {
	case body.Lat != nil && body.Lng != nil:
		c = geofence.Coordinate{Lat: *body.Lat, Lng: *body.Lng}
	case body.PlaceID != "":
		p, err := h.places.Details(r.Context(), body.PlaceID)
		if err != nil {
			h.log.Warn("resolve place for area check failed", "placeId", body.PlaceID, "err", err)
			jsonError(w, "could not resolve that address", http.StatusBadRequest)
			return
		}
		c = p.Coordinate
	default:
		jsonError(w, "body must contain lat/lng or place_id", http.StatusBadRequest)
		return
	}

	resp := areaCheckResponse{Coordinate: c}
	if area, ok := h.geo.AreaFor(c); ok {
		resp.Within, resp.Area = true, area.Name
	}
	jsonOK(w, resp)
}
