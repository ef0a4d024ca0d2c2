package controllers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/composables"
	"github.com/fieldops/opsboard/pkg/httpapi"
	"github.com/fieldops/opsboard/pkg/spotlight"
	"github.com/fieldops/opsboard/pkg/types"
)

// ShellController serves the dashboard sidebar and the command palette.
type ShellController struct {
	app application.Application
}

func NewShellController(app application.Application) application.Controller {
	return &ShellController{app: app}
}

func (c *ShellController) Key() string {
	return "/shell"
}

func (c *ShellController) Register(r *mux.Router) {
	r.HandleFunc("/navigation", c.Navigation).Methods(http.MethodGet)
	r.HandleFunc("/spotlight", c.Spotlight).Methods(http.MethodGet)
}

func (c *ShellController) Navigation(w http.ResponseWriter, r *http.Request) {
	items := c.app.NavItems()
	if items == nil {
		items = []types.NavigationItem{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (c *ShellController) Spotlight(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(composables.GetLastQueryParam(r, "q"))
	items := c.app.QuickLinks().Find(q)
	if items == nil {
		items = []spotlight.Item{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}
