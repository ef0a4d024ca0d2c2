package composables

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/form"
	"github.com/sirupsen/logrus"

	"github.com/fieldops/opsboard/pkg/constants"
)

var (
	ErrNoLogger = errors.New("logger not found")
)

var queryDecoder = form.NewDecoder()

type Params struct {
	IP        string
	UserAgent string
	RequestID string
	Request   *http.Request
	Writer    http.ResponseWriter
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

// WithParams returns a new context with the request parameters.
func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

// UseRequestID returns the request id assigned by the logging middleware, or "".
func UseRequestID(ctx context.Context) string {
	params, ok := UseParams(ctx)
	if !ok {
		return ""
	}
	return params.RequestID
}

// UseLogger returns the request-scoped logger. Outside a request it falls back
// to the standard logrus logger so services stay usable from CLI commands and tests.
func UseLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok {
		return logger
	}
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Logger); ok {
		return logrus.NewEntry(logger)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseToken returns the bearer token forwarded from the incoming request.
func UseToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(constants.TokenKey).(string)
	return token, ok && token != ""
}

func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, constants.TokenKey, token)
}

// UseQuery decodes the URL query of r into v.
func UseQuery[T any](v *T, r *http.Request) (*T, error) {
	return v, queryDecoder.Decode(v, r.URL.Query())
}

// GetLastQueryParam returns the last occurrence of a query parameter.
func GetLastQueryParam(r *http.Request, key string) string {
	values := r.URL.Query()[key]
	if len(values) > 0 {
		return strings.TrimSpace(values[len(values)-1])
	}
	return ""
}
