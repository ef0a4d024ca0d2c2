package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/opsboard/modules/tracking/services"
	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/uistate"
)

func newTrackingApp(t *testing.T) (*mux.Router, *services.TrackingService) {
	t.Helper()
	seen := time.Now().UTC().Add(-time.Minute).Format(time.RFC3339)
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"staff_id":12,"name":"Sipho Dlamini","lat":-26.1,"lng":28.0,"last_seen":"` + seen + `"}]`))
	}))
	t.Cleanup(remote.Close)
	api, err := apiclient.New(apiclient.Options{BaseURL: remote.URL})
	require.NoError(t, err)

	app := application.New(&application.ApplicationOptions{API: api})
	svc := services.NewTrackingService(api, app.Websocket(), uistate.NewMemoryStore(), 10*time.Minute)
	app.RegisterServices(svc)
	app.Websocket().SetOnJoin(svc.SendSnapshot)

	router := mux.NewRouter()
	NewTrackingController(app).Register(router)
	return router, svc
}

func TestTrackingController_Technicians(t *testing.T) {
	router, svc := newTrackingApp(t)
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracking/technicians?q=sip&status=active", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snap services.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Technicians, 1)
	assert.Equal(t, 1, snap.Active)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracking/technicians?status=busy", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracking/technicians/12/fly-to", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"lat":-26.1,"lng":28,"zoom":16,"durationMs":1500}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracking/technicians/77/fly-to", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrackingController_TileStyle(t *testing.T) {
	router, _ := newTrackingApp(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/tracking/tile-style", bytes.NewBufferString(`{"style":"dark"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracking/tile-style", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var view services.TileStyleView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "dark", view.Selected)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/tracking/tile-style", bytes.NewBufferString(`{"style":"neon"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTrackingController_WebsocketFeed(t *testing.T) {
	router, svc := newTrackingApp(t)
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/tracking/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var initial services.Snapshot
	require.NoError(t, conn.ReadJSON(&initial))
	require.Len(t, initial.Technicians, 1)
	assert.Equal(t, "Sipho Dlamini", initial.Technicians[0].Name)

	svc.Poll(context.Background())
	var pushed services.Snapshot
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Len(t, pushed.Technicians, 1)
}
