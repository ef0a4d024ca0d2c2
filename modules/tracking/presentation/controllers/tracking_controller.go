package controllers

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"

	"github.com/fieldops/opsboard/modules/tracking/presentation/controllers/dtos"
	"github.com/fieldops/opsboard/modules/tracking/services"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/composables"
	"github.com/fieldops/opsboard/pkg/httpapi"
)

type TrackingController struct {
	app      application.Application
	tracking *services.TrackingService
	basePath string
}

func NewTrackingController(app application.Application) application.Controller {
	return &TrackingController{
		app:      app,
		tracking: app.Service(services.TrackingService{}).(*services.TrackingService),
		basePath: "/tracking",
	}
}

func (c *TrackingController) Key() string {
	return c.basePath
}

func (c *TrackingController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/technicians", c.Technicians).Methods(http.MethodGet)
	router.HandleFunc("/technicians/{id}/fly-to", c.FlyTo).Methods(http.MethodGet)
	router.HandleFunc("/tile-style", c.TileStyles).Methods(http.MethodGet)
	router.HandleFunc("/tile-style", c.SetTileStyle).Methods(http.MethodPut)
	router.HandleFunc("/ws", c.Websocket).Methods(http.MethodGet)
}

func (c *TrackingController) Technicians(w http.ResponseWriter, r *http.Request) {
	q, err := composables.UseQuery(&dtos.TechniciansQuery{}, r)
	if err != nil {
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "TRACKING_INVALID_QUERY", "invalid query")
		return
	}
	if fields, ok := q.Ok(); !ok {
		httpapi.WriteValidationError(w, r, "TRACKING_INVALID_QUERY", "status must be all, active or idle", fields)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, c.tracking.Snapshot(services.Filter{Query: q.Query, Status: q.Status}))
}

func (c *TrackingController) FlyTo(w http.ResponseWriter, r *http.Request) {
	target, err := c.tracking.FlyTo(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, services.ErrTechnicianNotFound) {
			httpapi.WriteRequestError(w, r, http.StatusNotFound, "TRACKING_TECHNICIAN_NOT_FOUND", "technician is not on the map")
			return
		}
		httpapi.WriteRequestError(w, r, http.StatusInternalServerError, "TRACKING_INTERNAL", err.Error())
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, target)
}

func (c *TrackingController) TileStyles(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, c.tracking.TileStyles(r.Context()))
}

func (c *TrackingController) SetTileStyle(w http.ResponseWriter, r *http.Request) {
	var dto dtos.TileStyleDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "TRACKING_INVALID_JSON", "invalid json")
		return
	}
	if fields, ok := dto.Ok(); !ok {
		httpapi.WriteValidationError(w, r, "TRACKING_INVALID_REQUEST", "style is required", fields)
		return
	}
	view, err := c.tracking.SetTileStyle(r.Context(), dto.Style)
	if err != nil {
		if errors.Is(err, services.ErrUnknownTileStyle) {
			httpapi.WriteValidationError(w, r, "TRACKING_INVALID_REQUEST", err.Error(), map[string]string{"style": "invalid"})
			return
		}
		composables.UseLogger(r.Context()).WithError(err).Error("failed to save tile style")
		httpapi.WriteRequestError(w, r, http.StatusServiceUnavailable, "TRACKING_UI_STATE_UNAVAILABLE", "could not save tile style")
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, view)
}

// Websocket subscribes the connection to the live location channel.
func (c *TrackingController) Websocket(w http.ResponseWriter, r *http.Request) {
	r2 := r.Clone(r.Context())
	q := r2.URL.Query()
	q.Set("channel", services.Channel)
	r2.URL.RawQuery = q.Encode()
	c.app.Websocket().ServeHTTP(w, r2)
}
