package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/opsboard/modules"
	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/configuration"
	"github.com/fieldops/opsboard/pkg/httpapi"
	"github.com/fieldops/opsboard/pkg/uistate"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/inventory":
			_, _ = w.Write([]byte(`[]`))
		default:
			_, _ = w.Write([]byte(`{"id":1}`))
		}
	}))
	t.Cleanup(remote.Close)
	api, err := apiclient.New(apiclient.Options{BaseURL: remote.URL})
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	conf := &configuration.Configuration{
		RequestIDHeader:  "X-Request-ID",
		RealIPHeader:     "X-Real-IP",
		GoAppEnvironment: "development",
		CorsOrigins:      "http://localhost:3000",
	}
	app := application.New(&application.ApplicationOptions{API: api, Logger: logger})
	require.NoError(t, modules.Load(app, modules.BuiltInModules(conf, uistate.NewMemoryStore())...))

	srv, err := Default(&DefaultOptions{Logger: logger, Configuration: conf, Application: app})
	require.NoError(t, err)
	return srv.Router()
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDefault_Health(t *testing.T) {
	rec := get(newTestRouter(t), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestDefault_NotFoundIsJSON(t *testing.T) {
	rec := get(newTestRouter(t), "/nope/nothing/here")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var envelope httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "NOT_FOUND", envelope.Code)
	assert.NotEmpty(t, envelope.Meta["request_id"])
}

func TestDefault_LiteralRoutesWinOverRecordIDs(t *testing.T) {
	router := newTestRouter(t)

	rec := get(router, "/jobs/types")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "drop-cable")

	rec = get(router, "/inventory/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))

	rec = get(router, "/staff/requests/pending")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestDefault_NavigationCoversModules(t *testing.T) {
	rec := get(newTestRouter(t), "/navigation")
	require.Equal(t, http.StatusOK, rec.Code)
	for _, href := range []string{"/jobs", "/documents", "/tracking", "/staff", "/clients", "/inventory", "/settings"} {
		assert.Contains(t, rec.Body.String(), `"href":"`+href)
	}
}
