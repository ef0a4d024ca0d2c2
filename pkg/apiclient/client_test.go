package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/opsboard/pkg/composables"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/api", Token: token})
	require.NoError(t, err)
	return c
}

func TestClient_GetDecodesEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/drop-cable/7", r.URL.Path)
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":7,"circuit_number":"CKT-7"}}`))
	}, "svc-token")

	resp, err := c.Get(context.Background(), "/drop-cable/7")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)

	var record map[string]any
	require.NoError(t, resp.Decode(&record))
	assert.Equal(t, "CKT-7", record["circuit_number"])
}

func TestClient_PostSendsJSONAndForwardedToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Acme", body["client"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42}`))
	}, "svc-token")

	ctx := composables.WithToken(context.Background(), "user-token")
	resp, err := c.Post(ctx, "/drop-cable", map[string]any{"client": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.JSONEq(t, `{"id":42}`, string(resp.Data))
}

func TestClient_ErrorMessageExtraction(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", http.StatusBadRequest, `{"message":"circuit number taken"}`, "circuit number taken"},
		{"error string", http.StatusConflict, `{"error":"duplicate"}`, "duplicate"},
		{"nested error", http.StatusUnprocessableEntity, `{"error":{"message":"bad site"}}`, "bad site"},
		{"detail", http.StatusForbidden, `{"detail":"not allowed"}`, "not allowed"},
		{"plain text", http.StatusInternalServerError, `boom`, "boom"},
		{"html", http.StatusBadGateway, `<html>oops</html>`, "request failed with status 502 (Bad Gateway)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}, "")
			_, err := c.Put(context.Background(), "/link-build/1", map[string]any{})
			require.Error(t, err)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.message, apiErr.Error())
		})
	}
}

func TestClient_IsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, "")
	_, err := c.Del(context.Background(), "/staff/9")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(errors.Wrap(err, "load staff")))
	assert.False(t, IsNotFound(errors.New("dial tcp: refused")))
}

func TestClient_KeepsQueryString(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documents/signed-url", r.URL.Path)
		assert.Equal(t, "12", r.URL.Query().Get("id"))
		assert.Equal(t, "3600", r.URL.Query().Get("expires"))
		_, _ = w.Write([]byte(`{"url":"https://files/12"}`))
	}, "")
	_, err := c.Get(context.Background(), "/documents/signed-url?id=12&expires=3600")
	require.NoError(t, err)
}

func TestClient_UploadMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "survey.pdf", r.FormValue("fileName"))
		assert.Equal(t, "5", r.FormValue("job_id"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		body, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "survey.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.4", string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":3}`))
	}, "")

	resp, err := c.Upload(context.Background(), "/documents/upload", &MultipartForm{
		FileName: "survey.pdf",
		MIMEType: "application/pdf",
		File:     strings.NewReader("%PDF-1.4"),
		Fields:   map[string]string{"fileName": "survey.pdf", "job_id": "5"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
}

func TestClient_NilContext(t *testing.T) {
	c, err := New(Options{BaseURL: "http://localhost:1"})
	require.NoError(t, err)
	_, err = c.Get(nil, "/x") //nolint:staticcheck // Testing nil context behavior
	require.ErrorIs(t, err, ErrNilContext)
}

func TestNew_RejectsRelativeBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "/api"})
	require.Error(t, err)
}
