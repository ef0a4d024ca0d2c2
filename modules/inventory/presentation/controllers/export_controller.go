package controllers

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fieldops/opsboard/modules/inventory/services"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/composables"
	"github.com/fieldops/opsboard/pkg/httpapi"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportFilters = []string{"search", "category", "status", "location"}

// ExportController must be registered before the record proxy so /inventory/export
// is not taken for a record id.
type ExportController struct {
	app       application.Application
	inventory *services.InventoryService
	basePath  string
}

func NewExportController(app application.Application) application.Controller {
	return &ExportController{
		app:       app,
		inventory: app.Service(services.InventoryService{}).(*services.InventoryService),
		basePath:  "/inventory",
	}
}

func (c *ExportController) Key() string {
	return c.basePath + ":export"
}

func (c *ExportController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath+"/export", c.Export).Methods(http.MethodGet)
}

func (c *ExportController) Export(w http.ResponseWriter, r *http.Request) {
	query := url.Values{}
	for _, key := range exportFilters {
		if v := composables.GetLastQueryParam(r, key); v != "" {
			query.Set(key, v)
		}
	}
	var buf bytes.Buffer
	n, err := c.inventory.Export(r.Context(), &buf, query)
	if err != nil {
		httpapi.WriteUpstreamError(w, r, "INVENTORY", err)
		return
	}
	composables.UseLogger(r.Context()).WithField("rows", n).Info("inventory exported")
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+c.inventory.FileName()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
