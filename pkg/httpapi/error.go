package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/composables"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteRequestError writes an error envelope tagged with the request id of r.
func WriteRequestError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	meta := map[string]string{}
	if id := composables.UseRequestID(r.Context()); id != "" {
		meta["request_id"] = id
	}
	_ = WriteError(w, status, code, message, meta)
}

// WriteUpstreamError maps an error returned by the remote API client onto the envelope.
// Remote 4xx statuses pass through; anything else is reported as a bad gateway.
func WriteUpstreamError(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		WriteRequestError(w, r, status, prefix+"_UPSTREAM", apiErr.Message)
		return
	}
	WriteRequestError(w, r, http.StatusBadGateway, prefix+"_UNAVAILABLE", err.Error())
}

// WriteValidationError writes a 422 envelope with per-field messages.
func WriteValidationError(w http.ResponseWriter, r *http.Request, code, message string, fields map[string]string) {
	meta := map[string]string{}
	if id := composables.UseRequestID(r.Context()); id != "" {
		meta["request_id"] = id
	}
	_ = WriteJSON(w, http.StatusUnprocessableEntity, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
		Fields:  fields,
	})
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
