package settings

import (
	"github.com/fieldops/opsboard/modules/settings/presentation/controllers"
	"github.com/fieldops/opsboard/modules/settings/services"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/spotlight"
	"github.com/fieldops/opsboard/pkg/types"
	"github.com/fieldops/opsboard/pkg/uistate"
)

type ModuleOptions struct {
	UIState uistate.Store
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

var SettingsLink = types.NavigationItem{
	Name: "Settings",
	Icon: "gear",
	Href: "/settings",
}

func (m *Module) Register(app application.Application) error {
	store := m.options.UIState
	if store == nil {
		store = uistate.NewMemoryStore()
	}
	app.RegisterServices(services.NewSettingsService(app.API(), store))
	app.RegisterControllers(
		controllers.NewSettingsController(app),
		controllers.NewUIStateController(app),
		controllers.NewShellController(app),
	)
	app.RegisterNavItems(SettingsLink)
	app.QuickLinks().Add(
		spotlight.NewQuickLink(SettingsLink.Icon, "Account settings", SettingsLink.Href).
			WithKeywords("profile", "password"),
	)
	return nil
}

func (m *Module) Name() string {
	return "settings"
}
