package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/opsboard/pkg/composables"
	"github.com/fieldops/opsboard/pkg/configuration"
)

func testConf() *configuration.Configuration {
	return &configuration.Configuration{
		RequestIDHeader:  "X-Request-ID",
		RealIPHeader:     "X-Real-IP",
		GoAppEnvironment: "development",
	}
}

func TestWithLogger_PropagatesRequestID(t *testing.T) {
	logger, _ := test.NewNullLogger()
	var seen string
	h := WithLogger(logger, testConf(), DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = composables.UseRequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/jobs/types", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
}

func TestWithLogger_RecoversPanicAsJSON(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := WithLogger(logger, testConf(), DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/staff", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body["code"])
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestWithLogger_RedactsSecretsAndKeepsBody(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	var body string
	h := WithLogger(logger, testConf(), DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}))

	payload := `{"current_password":"hunter2","name":"Thabo"}`
	req := httptest.NewRequest(http.MethodPut, "/settings/password", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, payload, body)
	var logged map[string]any
	for _, e := range hook.AllEntries() {
		if v, ok := e.Data["request-body"]; ok {
			logged = v.(map[string]any)
		}
	}
	require.NotNil(t, logged)
	assert.Equal(t, "[redacted]", logged["current_password"])
	assert.Equal(t, "Thabo", logged["name"])
}

func TestForwardToken(t *testing.T) {
	var token string
	h := ForwardToken()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ = composables.UseToken(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc", token)

	token = ""
	ws := httptest.NewRequest(http.MethodGet, "/tracking/ws?access_token=xyz", nil)
	ws.Header.Set("Upgrade", "websocket")
	h.ServeHTTP(httptest.NewRecorder(), ws)
	assert.Equal(t, "xyz", token)
}

func TestOpsGuard(t *testing.T) {
	conf := testConf()
	conf.GoAppEnvironment = configuration.Production
	conf.OpsGuard = configuration.OpsGuardOptions{Enabled: true, CIDRs: "10.0.0.0/8", Token: "ops"}
	h := OpsGuard(conf)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		path   string
		ip     string
		token  string
		status int
	}{
		{"non ops path", "/jobs/types", "8.8.8.8", "", http.StatusOK},
		{"blocked", "/debug/prometheus", "8.8.8.8", "", http.StatusNotFound},
		{"allowed cidr", "/debug/prometheus", "10.1.2.3", "", http.StatusOK},
		{"token", "/debug/prometheus", "8.8.8.8", "ops", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("X-Real-IP", tc.ip)
			if tc.token != "" {
				req.Header.Set("X-Ops-Token", tc.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRateLimit_Returns429(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerPeriod: 1})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/staff", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/staff", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")
}
