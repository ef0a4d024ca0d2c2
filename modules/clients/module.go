// Package clients exposes the remote client records through the generic CRUD proxy.
package clients

import (
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/crud"
	"github.com/fieldops/opsboard/pkg/spotlight"
	"github.com/fieldops/opsboard/pkg/types"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

var ClientsLink = types.NavigationItem{
	Name: "Clients",
	Icon: "building",
	Href: "/clients",
}

func (m *Module) Register(app application.Application) error {
	records := crud.NewService(app.API(), "clients", "/clients")
	app.RegisterServices(records)
	app.RegisterControllers(
		crud.NewController("/clients", app, records,
			crud.WithQueryParams("search", "page", "limit"),
			crud.WithRequired("company_name"),
			crud.WithEmailFields("email", "billing_email"),
			crud.WithReadOnly("id", "created_at", "updated_at"),
		),
	)
	app.RegisterNavItems(ClientsLink)
	app.QuickLinks().Add(
		spotlight.NewQuickLink(ClientsLink.Icon, "Clients", ClientsLink.Href).
			WithKeywords("customers", "companies"),
	)
	return nil
}

func (m *Module) Name() string {
	return "clients"
}
