package controllers

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobform"
	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
	"github.com/fieldops/opsboard/modules/jobs/presentation/controllers/dtos"
	"github.com/fieldops/opsboard/modules/jobs/services"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/composables"
	"github.com/fieldops/opsboard/pkg/httpapi"
)

type JobsController struct {
	app      application.Application
	jobs     *services.JobService
	basePath string
}

func NewJobsController(app application.Application) application.Controller {
	return &JobsController{
		app:      app,
		jobs:     app.Service(services.JobService{}).(*services.JobService),
		basePath: "/jobs",
	}
}

func (c *JobsController) Key() string {
	return c.basePath
}

// Register wires the literal segments before the {type} routes; mux matches in order.
func (c *JobsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/types", c.Types).Methods(http.MethodGet)
	router.HandleFunc("/types/{type}", c.Type).Methods(http.MethodGet)

	router.HandleFunc("/dialogs/{dialog}", c.DialogView).Methods(http.MethodGet)
	router.HandleFunc("/dialogs/{dialog}", c.CloseDialog).Methods(http.MethodDelete)
	router.HandleFunc("/dialogs/{dialog}/fields", c.SetField).Methods(http.MethodPatch)
	router.HandleFunc("/dialogs/{dialog}/submit", c.Submit).Methods(http.MethodPost)

	router.HandleFunc("/{type}", c.List).Methods(http.MethodGet)
	router.HandleFunc("/{type}/dialogs", c.OpenDialog).Methods(http.MethodPost)
	router.HandleFunc("/{type}/{id}", c.Detail).Methods(http.MethodGet)
}

func (c *JobsController) Types(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": c.jobs.Types()})
}

func (c *JobsController) Type(w http.ResponseWriter, r *http.Request) {
	tv, err := c.jobs.Type(mux.Vars(r)["type"])
	if err != nil {
		writeJobError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, tv)
}

func (c *JobsController) List(w http.ResponseWriter, r *http.Request) {
	clientID := composables.GetLastQueryParam(r, "client_id")
	items, err := c.jobs.List(r.Context(), mux.Vars(r)["type"], clientID)
	if err != nil {
		writeJobError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (c *JobsController) Detail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	detail, err := c.jobs.Detail(r.Context(), vars["type"], vars["id"])
	if err != nil {
		writeJobError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, detail)
}

func (c *JobsController) OpenDialog(w http.ResponseWriter, r *http.Request) {
	var dto dtos.OpenDialogDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "JOB_INVALID_JSON", "invalid json")
		return
	}
	if fields, ok := dto.Ok(); !ok {
		httpapi.WriteValidationError(w, r, "JOB_INVALID_REQUEST", "invalid dialog request", fields)
		return
	}
	d, err := c.jobs.OpenDialog(r.Context(), mux.Vars(r)["type"], services.OpenParams{
		Mode:       jobtype.Mode(dto.Mode),
		RecordID:   string(dto.ID),
		ClientName: dto.ClientName,
		ClientID:   string(dto.ClientID),
	})
	if err != nil {
		writeJobError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, d.View())
}

func (c *JobsController) DialogView(w http.ResponseWriter, r *http.Request) {
	d, err := c.jobs.Dialog(mux.Vars(r)["dialog"])
	if err != nil {
		writeJobError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, d.View())
}

func (c *JobsController) SetField(w http.ResponseWriter, r *http.Request) {
	var dto dtos.SetFieldDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "JOB_INVALID_JSON", "invalid json")
		return
	}
	if fields, ok := dto.Ok(); !ok {
		httpapi.WriteValidationError(w, r, "JOB_INVALID_REQUEST", "field is required", fields)
		return
	}
	view, err := c.jobs.SetField(mux.Vars(r)["dialog"], dto.Field, dto.Value)
	if err != nil {
		writeJobError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, view)
}

func (c *JobsController) Submit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["dialog"]
	d, err := c.jobs.Dialog(id)
	if err != nil {
		writeJobError(w, r, err)
		return
	}
	res, err := c.jobs.Submit(r.Context(), id)
	if err != nil {
		writeJobError(w, r, err)
		return
	}
	// the client navigates to the saved job's detail page
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"id":       res.ID,
		"mode":     res.Mode,
		"location": c.basePath + "/" + d.Descriptor.Config.Key + "/" + res.ID,
	})
}

func (c *JobsController) CloseDialog(w http.ResponseWriter, r *http.Request) {
	c.jobs.CloseDialog(mux.Vars(r)["dialog"])
	w.WriteHeader(http.StatusNoContent)
}

func writeJobError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *jobform.ValidationError
	switch {
	case errors.As(err, &verr):
		httpapi.WriteValidationError(w, r, "JOB_VALIDATION_FAILED", verr.Message, verr.Fields)
	case errors.Is(err, jobtype.ErrUnknownJobType):
		httpapi.WriteRequestError(w, r, http.StatusNotFound, "JOB_TYPE_NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrDialogNotFound):
		httpapi.WriteRequestError(w, r, http.StatusNotFound, "JOB_DIALOG_NOT_FOUND", "dialog not found")
	case errors.Is(err, jobform.ErrDialogBusy):
		httpapi.WriteRequestError(w, r, http.StatusConflict, "JOB_DIALOG_BUSY", err.Error())
	case errors.Is(err, jobform.ErrDialogClosed):
		httpapi.WriteRequestError(w, r, http.StatusConflict, "JOB_DIALOG_CLOSED", err.Error())
	case errors.Is(err, jobform.ErrUnknownField),
		errors.Is(err, jobform.ErrReadOnlyField),
		errors.Is(err, jobform.ErrUnknownStaff),
		errors.Is(err, jobform.ErrMissingRecord):
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "JOB_INVALID_FIELD", strings.TrimSpace(err.Error()))
	default:
		composables.UseLogger(r.Context()).WithError(err).Warn("job request failed")
		httpapi.WriteUpstreamError(w, r, "JOB", err)
	}
}
