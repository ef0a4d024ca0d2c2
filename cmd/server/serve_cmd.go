package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldops/opsboard/internal/server"
	"github.com/fieldops/opsboard/modules"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/configuration"
	"github.com/fieldops/opsboard/pkg/eventbus"
	"github.com/fieldops/opsboard/pkg/logging"
	"github.com/fieldops/opsboard/pkg/scheduler"
	"github.com/fieldops/opsboard/pkg/uistate"
)

const uiStateTTL = 90 * 24 * time.Hour

func newServeCmd() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, pollers and websocket feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configuration.Use(), shutdownTimeout)
		},
	}
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "Grace period for in-flight requests")
	return cmd
}

func serve(ctx context.Context, conf *configuration.Configuration, shutdownTimeout time.Duration) error {
	defer conf.Unload()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	api, err := newAPIClient(conf, "")
	if err != nil {
		return err
	}
	store := newUIStateStore(ctx, conf)
	origins := conf.AllowedOrigins()
	app := application.New(&application.ApplicationOptions{
		API:       api,
		EventBus:  eventbus.NewEventPublisher(logger),
		Scheduler: scheduler.New(logger),
		Logger:    logger,
		Huber: application.NewHub(&application.HuberOptions{
			Logger: logger,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(origins, origin)
			},
		}),
	})
	if err := modules.Load(app, modules.BuiltInModules(conf, store)...); err != nil {
		return err
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
	})
	if err != nil {
		return err
	}

	if err := app.Scheduler().Start(ctx); err != nil {
		return err
	}
	defer app.Scheduler().Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on: %s", conf.SocketAddress)
		errCh <- serverInstance.Start(conf.SocketAddress)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return serverInstance.Shutdown(shutdownCtx)
}

// newUIStateStore falls back to memory when Redis is configured but unreachable;
// UI state is a convenience and must not block startup.
func newUIStateStore(ctx context.Context, conf *configuration.Configuration) uistate.Store {
	if conf.UIState.Storage != "redis" {
		return uistate.NewMemoryStore()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	store, err := uistate.NewRedisStore(pingCtx, conf.UIState.RedisURL, uiStateTTL)
	if err != nil {
		conf.Logger().WithError(err).Warn("Failed to connect UI state store to Redis, falling back to memory")
		return uistate.NewMemoryStore()
	}
	return store
}
