package application

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/eventbus"
	"github.com/fieldops/opsboard/pkg/scheduler"
	"github.com/fieldops/opsboard/pkg/spotlight"
	"github.com/fieldops/opsboard/pkg/types"
)

type Controller interface {
	Register(r *mux.Router)
	Key() string
}

type Module interface {
	Register(app Application) error
	Name() string
}

// Application is the registry every module wires itself into.
type Application interface {
	API() apiclient.API
	EventPublisher() eventbus.EventBus
	Scheduler() *scheduler.Scheduler
	Websocket() Huber
	Logger() *logrus.Logger

	Controllers() []Controller
	Middleware() []mux.MiddlewareFunc
	NavItems() []types.NavigationItem
	QuickLinks() *spotlight.QuickLinks

	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterNavItems(items ...types.NavigationItem)
	RegisterServices(services ...interface{})
	Service(service interface{}) interface{}
}

type ApplicationOptions struct {
	API       apiclient.API
	EventBus  eventbus.EventBus
	Scheduler *scheduler.Scheduler
	Huber     Huber
	Logger    *logrus.Logger
}

func New(opts *ApplicationOptions) Application {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	bus := opts.EventBus
	if bus == nil {
		bus = eventbus.NewEventPublisher(logger)
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = scheduler.New(logger)
	}
	hub := opts.Huber
	if hub == nil {
		hub = NewHub(&HuberOptions{Logger: logger})
	}
	return &application{
		api:            opts.API,
		eventPublisher: bus,
		scheduler:      sched,
		websocket:      hub,
		logger:         logger,
		controllerKeys: make(map[string]int),
		services:       make(map[reflect.Type]interface{}),
		quickLinks:     &spotlight.QuickLinks{},
	}
}

// application with a dynamically extendable service registry
type application struct {
	api            apiclient.API
	eventPublisher eventbus.EventBus
	scheduler      *scheduler.Scheduler
	websocket      Huber
	logger         *logrus.Logger

	mu             sync.RWMutex
	controllers    []Controller
	controllerKeys map[string]int
	services       map[reflect.Type]interface{}
	middleware     []mux.MiddlewareFunc
	navItems       []types.NavigationItem
	quickLinks     *spotlight.QuickLinks
}

func (app *application) API() apiclient.API {
	return app.api
}

func (app *application) EventPublisher() eventbus.EventBus {
	return app.eventPublisher
}

func (app *application) Scheduler() *scheduler.Scheduler {
	return app.scheduler
}

func (app *application) Websocket() Huber {
	return app.websocket
}

func (app *application) Logger() *logrus.Logger {
	return app.logger
}

// Controllers returns controllers in registration order; routes that overlap
// (e.g. /jobs/types and /jobs/{type}) rely on it.
func (app *application) Controllers() []Controller {
	app.mu.RLock()
	defer app.mu.RUnlock()
	out := make([]Controller, len(app.controllers))
	copy(out, app.controllers)
	return out
}

func (app *application) Middleware() []mux.MiddlewareFunc {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.middleware
}

func (app *application) NavItems() []types.NavigationItem {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.navItems
}

func (app *application) QuickLinks() *spotlight.QuickLinks {
	return app.quickLinks
}

// RegisterControllers adds controllers; a controller with an already registered key replaces the old one.
func (app *application) RegisterControllers(controllers ...Controller) {
	app.mu.Lock()
	defer app.mu.Unlock()
	for _, c := range controllers {
		if idx, ok := app.controllerKeys[c.Key()]; ok {
			app.controllers[idx] = c
			continue
		}
		app.controllerKeys[c.Key()] = len(app.controllers)
		app.controllers = append(app.controllers, c)
	}
}

func (app *application) RegisterMiddleware(middleware ...mux.MiddlewareFunc) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.middleware = append(app.middleware, middleware...)
}

func (app *application) RegisterNavItems(items ...types.NavigationItem) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.navItems = append(app.navItems, items...)
}

// RegisterServices registers a new service in the application by its type
func (app *application) RegisterServices(services ...interface{}) {
	app.mu.Lock()
	defer app.mu.Unlock()
	for _, service := range services {
		serviceType := reflect.TypeOf(service).Elem()
		app.services[serviceType] = service
	}
}

// Service retrieves a service by its type
func (app *application) Service(service interface{}) interface{} {
	app.mu.RLock()
	defer app.mu.RUnlock()
	serviceType := reflect.TypeOf(service)
	svc, exists := app.services[serviceType]
	if !exists {
		panic(fmt.Sprintf("service %s not found", serviceType.Name()))
	}
	return svc
}
