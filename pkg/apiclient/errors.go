package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
)

var ErrNilContext = errors.New("apiclient: context cannot be nil")

// APIError is returned for every non-2xx response of the remote API.
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is a 404 from the remote API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// messageFromBody extracts a human readable message from an error response.
// The remote API answers with {"message": ...}, {"error": ...} or {"detail": ...}.
func messageFromBody(status int, body []byte) string {
	var envelope struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
		Detail  string          `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if msg := strings.TrimSpace(envelope.Message); msg != "" {
			return msg
		}
		if len(envelope.Error) > 0 {
			var s string
			if err := json.Unmarshal(envelope.Error, &s); err == nil && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(envelope.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
				return strings.TrimSpace(nested.Message)
			}
		}
		if msg := strings.TrimSpace(envelope.Detail); msg != "" {
			return msg
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	return fmt.Sprintf("request failed with status %d (%s)", status, http.StatusText(status))
}
