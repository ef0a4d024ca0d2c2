package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fieldops/opsboard/modules/settings/presentation/controllers/dtos"
	"github.com/fieldops/opsboard/modules/settings/services"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/httpapi"
)

// UIStateController remembers the active tab of record pages.
type UIStateController struct {
	app      application.Application
	settings *services.SettingsService
	basePath string
}

func NewUIStateController(app application.Application) application.Controller {
	return &UIStateController{
		app:      app,
		settings: app.Service(services.SettingsService{}).(*services.SettingsService),
		basePath: "/ui-state",
	}
}

func (c *UIStateController) Key() string {
	return c.basePath
}

func (c *UIStateController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/tabs/{entity}/{id}", c.GetTab).Methods(http.MethodGet)
	router.HandleFunc("/tabs/{entity}/{id}", c.SetTab).Methods(http.MethodPut)
}

func (c *UIStateController) GetTab(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tab, err := c.settings.ActiveTab(r.Context(), vars["entity"], vars["id"])
	if err != nil {
		httpapi.WriteRequestError(w, r, http.StatusServiceUnavailable, "UI_STATE_UNAVAILABLE", err.Error())
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"tab": tab})
}

func (c *UIStateController) SetTab(w http.ResponseWriter, r *http.Request) {
	var dto dtos.ActiveTabDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "UI_STATE_INVALID_JSON", "invalid json")
		return
	}
	if fields, ok := dto.Ok(); !ok {
		httpapi.WriteValidationError(w, r, "UI_STATE_INVALID_TAB", "tab is required", fields)
		return
	}
	vars := mux.Vars(r)
	if err := c.settings.SetActiveTab(r.Context(), vars["entity"], vars["id"], dto.Tab); err != nil {
		httpapi.WriteRequestError(w, r, http.StatusServiceUnavailable, "UI_STATE_UNAVAILABLE", err.Error())
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"tab": dto.Tab})
}
