package inventory

import (
	"github.com/fieldops/opsboard/modules/inventory/presentation/controllers"
	"github.com/fieldops/opsboard/modules/inventory/services"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/crud"
	"github.com/fieldops/opsboard/pkg/spotlight"
	"github.com/fieldops/opsboard/pkg/types"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

var InventoryLink = types.NavigationItem{
	Name: "Inventory",
	Icon: "package",
	Href: "/inventory",
}

func (m *Module) Register(app application.Application) error {
	inventoryService := services.NewInventoryService(app.API())
	app.RegisterServices(inventoryService)
	app.RegisterControllers(
		controllers.NewExportController(app),
		crud.NewController("/inventory", app, inventoryService.Records(),
			crud.WithQueryParams("search", "category", "status", "location"),
			crud.WithRequired("name"),
			crud.WithReadOnly("id", "created_at", "updated_at"),
		),
	)
	app.RegisterNavItems(InventoryLink)
	app.QuickLinks().Add(
		spotlight.NewQuickLink(InventoryLink.Icon, "Inventory", InventoryLink.Href).
			WithKeywords("stock", "materials"),
		spotlight.NewQuickLink("download", "Export inventory", "/inventory/export").
			WithKeywords("excel", "xlsx"),
	)
	return nil
}

func (m *Module) Name() string {
	return "inventory"
}
