package tracking

import (
	"time"

	"github.com/fieldops/opsboard/modules/tracking/presentation/controllers"
	"github.com/fieldops/opsboard/modules/tracking/services"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/scheduler"
	"github.com/fieldops/opsboard/pkg/spotlight"
	"github.com/fieldops/opsboard/pkg/types"
	"github.com/fieldops/opsboard/pkg/uistate"
)

type ModuleOptions struct {
	UIState      uistate.Store
	PollInterval time.Duration
	StaleAfter   time.Duration
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

var MapLink = types.NavigationItem{
	Name: "Map",
	Icon: "map-pin",
	Href: "/tracking",
}

func (m *Module) Register(app application.Application) error {
	store := m.options.UIState
	if store == nil {
		store = uistate.NewMemoryStore()
	}
	interval := m.options.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	trackingService := services.NewTrackingService(app.API(), app.Websocket(), store, m.options.StaleAfter)
	app.RegisterServices(trackingService)
	app.Websocket().SetOnJoin(trackingService.SendSnapshot)

	if err := app.Scheduler().Every("tracking.locations", interval, trackingService.Poll, scheduler.RunImmediately()); err != nil {
		return err
	}

	app.RegisterControllers(
		controllers.NewTrackingController(app),
	)
	app.RegisterNavItems(MapLink)
	app.QuickLinks().Add(
		spotlight.NewQuickLink(MapLink.Icon, "Technician map", MapLink.Href).
			WithKeywords("tracking", "locations", "technicians"),
	)
	return nil
}

func (m *Module) Name() string {
	return "tracking"
}
