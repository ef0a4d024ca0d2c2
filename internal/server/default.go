package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/configuration"
	"github.com/fieldops/opsboard/pkg/httpapi"
	"github.com/fieldops/opsboard/pkg/metrics"
	"github.com/fieldops/opsboard/pkg/middleware"
	"github.com/fieldops/opsboard/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, conf, middleware.DefaultLoggerOptions()),
		middleware.Cors(conf.AllowedOrigins()...),
		middleware.OpsGuard(conf),
		middleware.ForwardToken(),
	}

	if conf.RateLimit.Enabled {
		var store limiter.Store
		var err error

		switch conf.RateLimit.Storage {
		case "redis":
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}

		middlewares = append(middlewares,
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             store,
				Logger:            options.Logger,
			}),
		)
	}

	app.RegisterMiddleware(middlewares...)
	app.RegisterControllers(metrics.NewHealthController(app.API()))
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	return server.NewHTTPServer(
		app,
		http.HandlerFunc(notFound),
		http.HandlerFunc(methodNotAllowed),
	), nil
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteRequestError(w, r, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteRequestError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" is not allowed on "+r.URL.Path)
}
