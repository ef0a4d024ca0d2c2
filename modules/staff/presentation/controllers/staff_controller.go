package controllers

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"

	"github.com/fieldops/opsboard/modules/staff/services"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/httpapi"
)

// StaffController serves the staff endpoints that are not plain record CRUD.
type StaffController struct {
	app      application.Application
	staff    *services.StaffService
	basePath string
}

func NewStaffController(app application.Application) application.Controller {
	return &StaffController{
		app:      app,
		staff:    app.Service(services.StaffService{}).(*services.StaffService),
		basePath: "/staff",
	}
}

func (c *StaffController) Key() string {
	return c.basePath + ":actions"
}

func (c *StaffController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/requests/pending", c.PendingRequests).Methods(http.MethodGet)
	router.HandleFunc("/{id}/reveal-national-id", c.RevealNationalID).Methods(http.MethodPost)
}

func (c *StaffController) PendingRequests(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, c.staff.PendingRequests())
}

func (c *StaffController) RevealNationalID(w http.ResponseWriter, r *http.Request) {
	value, err := c.staff.RevealNationalID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, services.ErrNationalIDMissing) {
			httpapi.WriteRequestError(w, r, http.StatusNotFound, "STAFF_NATIONAL_ID_NOT_FOUND", "no national id on record")
			return
		}
		httpapi.WriteUpstreamError(w, r, "STAFF", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"national_id": value})
}
