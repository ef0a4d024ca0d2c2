package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fieldops/opsboard/modules/settings/presentation/controllers/dtos"
	"github.com/fieldops/opsboard/modules/settings/services"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/httpapi"
)

type SettingsController struct {
	app      application.Application
	settings *services.SettingsService
	basePath string
}

func NewSettingsController(app application.Application) application.Controller {
	return &SettingsController{
		app:      app,
		settings: app.Service(services.SettingsService{}).(*services.SettingsService),
		basePath: "/settings",
	}
}

func (c *SettingsController) Key() string {
	return c.basePath
}

func (c *SettingsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/account", c.GetAccount).Methods(http.MethodGet)
	router.HandleFunc("/account", c.SaveAccount).Methods(http.MethodPut)
	router.HandleFunc("/password", c.ChangePassword).Methods(http.MethodPost)
}

func (c *SettingsController) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := c.settings.Account(r.Context())
	if err != nil {
		httpapi.WriteUpstreamError(w, r, "SETTINGS", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, account)
}

func (c *SettingsController) SaveAccount(w http.ResponseWriter, r *http.Request) {
	var dto dtos.SaveAccountDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "SETTINGS_INVALID_JSON", "invalid json")
		return
	}
	if fields, ok := dto.Ok(); !ok {
		httpapi.WriteValidationError(w, r, "SETTINGS_VALIDATION_FAILED", "please correct the highlighted fields", fields)
		return
	}
	account, err := c.settings.UpdateAccount(r.Context(), dto.ToUpdate())
	if err != nil {
		httpapi.WriteUpstreamError(w, r, "SETTINGS", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, account)
}

func (c *SettingsController) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var dto dtos.ChangePasswordDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "SETTINGS_INVALID_JSON", "invalid json")
		return
	}
	if fields, ok := dto.Ok(); !ok {
		httpapi.WriteValidationError(w, r, "SETTINGS_VALIDATION_FAILED", "please correct the highlighted fields", fields)
		return
	}
	if err := c.settings.ChangePassword(r.Context(), dto.CurrentPassword, dto.NewPassword); err != nil {
		httpapi.WriteUpstreamError(w, r, "SETTINGS", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
