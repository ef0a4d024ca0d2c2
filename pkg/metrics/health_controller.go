package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/httpapi"
)

type HealthController struct {
	api  apiclient.API
	path string
}

// NewHealthController reports liveness and, with ?deep=1, whether the remote API answers.
func NewHealthController(api apiclient.API) application.Controller {
	return &HealthController{api: api, path: "/health"}
}

func (c *HealthController) Key() string {
	return c.path
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc(c.path, c.Get).Methods(http.MethodGet)
}

type healthResponse struct {
	Status string `json:"status"`
	API    string `json:"api,omitempty"`
}

func (c *HealthController) Get(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("deep") == "" || c.api == nil {
		_ = httpapi.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if _, err := c.api.Get(ctx, "/health"); err != nil && !apiclient.IsNotFound(err) {
		_ = httpapi.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", API: err.Error()})
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", API: "ok"})
}
