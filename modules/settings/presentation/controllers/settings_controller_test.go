package controllers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/opsboard/modules/settings"
	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/httpapi"
	"github.com/fieldops/opsboard/pkg/spotlight"
	"github.com/fieldops/opsboard/pkg/uistate"
)

type authAPI struct {
	passwordBody map[string]string
	profileBody  map[string]any
}

func (a *authAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/auth/me" && r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`{"data":{"id":4,"first_name":"Thandi","surname":"Mokoena","email":"thandi@fieldops.test","role":"admin"}}`))
	case r.URL.Path == "/auth/me" && r.Method == http.MethodPut:
		_ = json.NewDecoder(r.Body).Decode(&a.profileBody)
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/auth/change-password":
		_ = json.NewDecoder(r.Body).Decode(&a.passwordBody)
		if a.passwordBody["current_password"] == "wrong-password" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"current password is incorrect"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newSettingsRouter(t *testing.T) (*mux.Router, *authAPI, *uistate.MemoryStore) {
	t.Helper()
	remote := &authAPI{}
	srv := httptest.NewServer(remote)
	t.Cleanup(srv.Close)
	api, err := apiclient.New(apiclient.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	store := uistate.NewMemoryStore()
	app := application.New(&application.ApplicationOptions{API: api})
	require.NoError(t, settings.NewModule(&settings.ModuleOptions{UIState: store}).Register(app))
	app.QuickLinks().Add(spotlight.NewQuickLink("map-pin", "Technician map", "/tracking").WithKeywords("locations"))

	router := mux.NewRouter()
	for _, c := range app.Controllers() {
		c.Register(router)
	}
	return router, remote, store
}

func call(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httpapi.ErrorEnvelope {
	t.Helper()
	var envelope httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestSettingsController_Account(t *testing.T) {
	router, remote, _ := newSettingsRouter(t)

	rec := call(router, http.MethodGet, "/settings/account", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"first_name":"Thandi"`)

	rec = call(router, http.MethodPut, "/settings/account", `{"first_name":" Thandi ","surname":"Mokoena","email":"Thandi@FieldOps.test"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "thandi@fieldops.test", remote.profileBody["email"])
	assert.Equal(t, "Thandi", remote.profileBody["first_name"])
	assert.Contains(t, rec.Body.String(), `"email":"thandi@fieldops.test"`)

	rec = call(router, http.MethodPut, "/settings/account", `{"first_name":"","surname":"Mokoena","email":"nope"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "required", envelope.Fields["first_name"])
	assert.Equal(t, "invalid email", envelope.Fields["email"])
}

func TestSettingsController_ChangePassword(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		fields map[string]string
	}{
		{
			name:   "mismatched confirmation",
			body:   `{"current_password":"old-secret","new_password":"new-secret-1","confirm_password":"new-secret-2"}`,
			status: http.StatusUnprocessableEntity,
			fields: map[string]string{"confirm_password": "does not match"},
		},
		{
			name:   "same as current",
			body:   `{"current_password":"same-secret","new_password":"same-secret","confirm_password":"same-secret"}`,
			status: http.StatusUnprocessableEntity,
			fields: map[string]string{"new_password": "must differ from the current value"},
		},
		{
			name:   "too short",
			body:   `{"current_password":"old-secret","new_password":"short","confirm_password":"short"}`,
			status: http.StatusUnprocessableEntity,
			fields: map[string]string{"new_password": "must be at least 8"},
		},
		{
			name:   "ok",
			body:   `{"current_password":"old-secret","new_password":"new-secret-1","confirm_password":"new-secret-1"}`,
			status: http.StatusNoContent,
		},
		{
			name:   "rejected by remote",
			body:   `{"current_password":"wrong-password","new_password":"new-secret-1","confirm_password":"new-secret-1"}`,
			status: http.StatusUnauthorized,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, remote, _ := newSettingsRouter(t)
			rec := call(router, http.MethodPost, "/settings/password", tc.body)
			require.Equal(t, tc.status, rec.Code)
			if tc.fields != nil {
				assert.Equal(t, tc.fields, decodeEnvelope(t, rec).Fields)
				assert.Nil(t, remote.passwordBody)
			}
			if tc.status == http.StatusNoContent {
				assert.Equal(t, map[string]string{"current_password": "old-secret", "new_password": "new-secret-1"}, remote.passwordBody)
			}
		})
	}
}

func TestUIStateController_Tabs(t *testing.T) {
	router, _, store := newSettingsRouter(t)

	rec := call(router, http.MethodGet, "/ui-state/tabs/client/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tab":""}`, rec.Body.String())

	rec = call(router, http.MethodPut, "/ui-state/tabs/client/3", `{"tab":"documents"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	v, ok, err := store.Get(t.Context(), uistate.TabKey("client", "3"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "documents", v)

	rec = call(router, http.MethodGet, "/ui-state/tabs/client/3", "")
	assert.JSONEq(t, `{"tab":"documents"}`, rec.Body.String())

	rec = call(router, http.MethodPut, "/ui-state/tabs/client/3", `{"tab":"  "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestShellController(t *testing.T) {
	router, _, _ := newSettingsRouter(t)

	rec := call(router, http.MethodGet, "/navigation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"href":"/settings"`)

	rec = call(router, http.MethodGet, "/spotlight?q=locat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []spotlight.Item `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "/tracking", body.Items[0].Link)

	rec = call(router, http.MethodGet, "/spotlight?q=zzzz", "")
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}
