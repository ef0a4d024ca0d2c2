package staff

import (
	"time"

	"github.com/fieldops/opsboard/modules/staff/presentation/controllers"
	"github.com/fieldops/opsboard/modules/staff/services"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/crud"
	"github.com/fieldops/opsboard/pkg/scheduler"
	"github.com/fieldops/opsboard/pkg/spotlight"
	"github.com/fieldops/opsboard/pkg/types"
)

type ModuleOptions struct {
	PendingRequestsInterval time.Duration
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

var StaffLink = types.NavigationItem{
	Name: "Staff",
	Icon: "users",
	Href: "/staff",
}

func (m *Module) Register(app application.Application) error {
	interval := m.options.PendingRequestsInterval
	if interval <= 0 {
		interval = time.Minute
	}

	staffService := services.NewStaffService(app.API())
	app.RegisterServices(staffService)

	if err := app.Scheduler().Every("staff.pending-requests", interval, staffService.RefreshPending, scheduler.RunImmediately()); err != nil {
		return err
	}

	app.RegisterControllers(
		controllers.NewStaffController(app),
		crud.NewController("/staff", app, staffService.Records(),
			crud.WithQueryParams("role", "search"),
			crud.WithRequired("first_name", "surname", "role"),
			crud.WithEmailFields("email"),
			crud.WithReadOnly("id", "national_id"),
		),
	)
	app.RegisterNavItems(StaffLink)
	app.QuickLinks().Add(
		spotlight.NewQuickLink(StaffLink.Icon, "Staff", StaffLink.Href).
			WithKeywords("technicians", "employees", "team"),
	)
	return nil
}

func (m *Module) Name() string {
	return "staff"
}
