package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/fieldops/opsboard/pkg/application"
)

type textController struct{}

func (textController) Key() string { return "/text" }

func (textController) Register(r *mux.Router) {
	r.HandleFunc("/text", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("opsboard ", 400)))
	}).Methods(http.MethodGet)
}

func newTestServer() *HTTPServer {
	return &HTTPServer{
		Controllers: []application.Controller{textController{}},
		NotFoundHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
		MethodNotAllowedHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}),
	}
}

func TestHTTPServer_GzipsUnlessUpgrading(t *testing.T) {
	h := newTestServer().Handler()

	req := httptest.NewRequest(http.MethodGet, "/text", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	req = httptest.NewRequest(http.MethodGet, "/text", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
}

func TestHTTPServer_FallbackHandlers(t *testing.T) {
	router := newTestServer().Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/text", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHTTPServer_ShutdownBeforeStart(t *testing.T) {
	assert.NoError(t, newTestServer().Shutdown(t.Context()))
}
