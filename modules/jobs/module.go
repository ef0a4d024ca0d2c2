package jobs

import (
	"time"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
	"github.com/fieldops/opsboard/modules/jobs/presentation/controllers"
	"github.com/fieldops/opsboard/modules/jobs/services"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/spotlight"
)

type ModuleOptions struct {
	Registry          *jobtype.Registry
	Palette           *jobtype.Palette
	DialogIdleTimeout time.Duration
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

func (m *Module) Register(app application.Application) error {
	registry := m.options.Registry
	if registry == nil {
		r, err := jobtype.Default()
		if err != nil {
			return err
		}
		registry = r
	}
	palette := m.options.Palette
	if palette == nil {
		palette = jobtype.DefaultPalette()
	}

	jobService := services.NewJobService(services.JobServiceOptions{
		API:               app.API(),
		Registry:          registry,
		Palette:           palette,
		Publisher:         app.EventPublisher(),
		DialogIdleTimeout: m.options.DialogIdleTimeout,
	})
	app.RegisterServices(jobService)

	app.RegisterControllers(
		controllers.NewJobsController(app),
	)

	sweepEvery := m.options.DialogIdleTimeout / 4
	if sweepEvery < time.Minute {
		sweepEvery = time.Minute
	}
	if err := app.Scheduler().Every("jobs.dialog-sweeper", sweepEvery, jobService.SweepDialogs); err != nil {
		return err
	}

	app.RegisterNavItems(NavItems(registry)...)
	for _, cfg := range registry.Implemented() {
		app.QuickLinks().Add(
			spotlight.NewQuickLink(cfg.Icon, "New "+cfg.Title, "/jobs/"+cfg.Key+"?dialog=create").
				WithKeywords(cfg.ShortName, cfg.Key),
		)
	}
	return nil
}

func (m *Module) Name() string {
	return "jobs"
}
