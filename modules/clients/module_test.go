package clients_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/opsboard/modules/clients"
	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/application"
)

func TestModule_ProxiesClientRecords(t *testing.T) {
	var search string
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/clients":
			search = r.URL.Query().Get("search")
			_, _ = w.Write([]byte(`{"data":[{"id":3,"company_name":"Acme Fibre"}]}`))
		case r.Method == http.MethodPut && r.URL.Path == "/clients/3":
			_, _ = w.Write([]byte(`{"id":3,"company_name":"Acme"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(remote.Close)
	api, err := apiclient.New(apiclient.Options{BaseURL: remote.URL})
	require.NoError(t, err)

	app := application.New(&application.ApplicationOptions{API: api})
	require.NoError(t, clients.NewModule().Register(app))
	router := mux.NewRouter()
	for _, c := range app.Controllers() {
		c.Register(router)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clients?search=acme", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", search)
	assert.Contains(t, rec.Body.String(), "Acme Fibre")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/clients/3", strings.NewReader(`{"company_name":"Acme","email":"nope"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/clients/3", strings.NewReader(`{"company_name":"Acme"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, app.NavItems(), 1)
	assert.NotEmpty(t, app.QuickLinks().Find("customers"))
}
