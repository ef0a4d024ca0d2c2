package crud

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/composables"
	"github.com/fieldops/opsboard/pkg/constants"
	"github.com/fieldops/opsboard/pkg/httpapi"
)

type Controller struct {
	basePath string
	app      application.Application
	service  *Service
	code     string

	queryParams []string
	required    []string
	emailFields []string
	readOnly    []string

	enableCreate bool
	enableEdit   bool
	enableDelete bool
}

// Option configures a Controller.
type Option func(*Controller)

func WithoutCreate() Option {
	return func(c *Controller) { c.enableCreate = false }
}

func WithoutEdit() Option {
	return func(c *Controller) { c.enableEdit = false }
}

func WithoutDelete() Option {
	return func(c *Controller) { c.enableDelete = false }
}

// WithQueryParams lists the list-endpoint query parameters forwarded to the remote API.
func WithQueryParams(params ...string) Option {
	return func(c *Controller) { c.queryParams = append(c.queryParams, params...) }
}

// WithRequired names body fields that must be non-empty on create.
func WithRequired(fields ...string) Option {
	return func(c *Controller) { c.required = append(c.required, fields...) }
}

func WithEmailFields(fields ...string) Option {
	return func(c *Controller) { c.emailFields = append(c.emailFields, fields...) }
}

// WithReadOnly strips fields from create and update bodies.
func WithReadOnly(fields ...string) Option {
	return func(c *Controller) { c.readOnly = append(c.readOnly, fields...) }
}

func NewController(basePath string, app application.Application, service *Service, opts ...Option) application.Controller {
	c := &Controller{
		basePath:     basePath,
		app:          app,
		service:      service,
		code:         strings.ToUpper(strings.ReplaceAll(service.Name(), "-", "_")),
		enableCreate: true,
		enableEdit:   true,
		enableDelete: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Key() string {
	return c.basePath
}

func (c *Controller) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	if c.enableCreate {
		router.HandleFunc("", c.Create).Methods(http.MethodPost)
	}
	if c.enableEdit {
		router.HandleFunc("/{id}", c.Update).Methods(http.MethodPut)
	}
	if c.enableDelete {
		router.HandleFunc("/{id}", c.Delete).Methods(http.MethodDelete)
	}
}

func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	query := url.Values{}
	for _, p := range c.queryParams {
		if v := composables.GetLastQueryParam(r, p); v != "" {
			query.Set(p, v)
		}
	}
	items, err := c.service.List(r.Context(), query)
	if err != nil {
		httpapi.WriteUpstreamError(w, r, c.code, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	item, err := c.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpapi.WriteUpstreamError(w, r, c.code, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, item)
}

func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	body, ok := c.decode(w, r, true)
	if !ok {
		return
	}
	created, err := c.service.Create(r.Context(), body)
	if err != nil {
		httpapi.WriteUpstreamError(w, r, c.code, err)
		return
	}
	composables.UseLogger(r.Context()).WithField("resource", c.service.Name()).Info("record created")
	_ = httpapi.WriteJSON(w, http.StatusCreated, created)
}

func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	body, ok := c.decode(w, r, false)
	if !ok {
		return
	}
	updated, err := c.service.Update(r.Context(), mux.Vars(r)["id"], body)
	if err != nil {
		httpapi.WriteUpstreamError(w, r, c.code, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, updated)
}

func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := c.service.Delete(r.Context(), id); err != nil {
		httpapi.WriteUpstreamError(w, r, c.code, err)
		return
	}
	composables.UseLogger(r.Context()).WithFields(logrus.Fields{
		"resource": c.service.Name(),
		"id":       id,
	}).Info("record deleted")
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON object body, drops read-only keys and checks required and email fields.
func (c *Controller) decode(w http.ResponseWriter, r *http.Request, creating bool) (Record, bool) {
	var body Record
	if err := httpapi.DecodeJSON(r, &body); err != nil || body == nil {
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, c.code+"_INVALID_JSON", "invalid json")
		return nil, false
	}
	for _, key := range c.readOnly {
		delete(body, key)
	}
	fields := map[string]string{}
	for _, key := range c.required {
		_, present := body[key]
		if (creating || present) && blank(body[key]) {
			fields[key] = "required"
		}
	}
	for _, key := range c.emailFields {
		s, _ := body[key].(string)
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if err := constants.Validate.Var(s, "email"); err != nil {
			fields[key] = "invalid email"
			continue
		}
		body[key] = strings.ToLower(s)
	}
	if len(fields) > 0 {
		httpapi.WriteValidationError(w, r, c.code+"_VALIDATION_FAILED", "please correct the highlighted fields", fields)
		return nil, false
	}
	return body, true
}

func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}
