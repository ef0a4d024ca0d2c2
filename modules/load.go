package modules

import (
	"github.com/fieldops/opsboard/modules/clients"
	"github.com/fieldops/opsboard/modules/documents"
	"github.com/fieldops/opsboard/modules/inventory"
	"github.com/fieldops/opsboard/modules/jobs"
	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
	"github.com/fieldops/opsboard/modules/settings"
	"github.com/fieldops/opsboard/modules/staff"
	"github.com/fieldops/opsboard/modules/tracking"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/configuration"
	"github.com/fieldops/opsboard/pkg/uistate"
)

// BuiltInModules returns the dashboard modules in registration order. Jobs comes
// before documents because the documents module subscribes to job events.
func BuiltInModules(conf *configuration.Configuration, store uistate.Store) []application.Module {
	registry := jobtype.MustDefault()
	return []application.Module{
		jobs.NewModule(&jobs.ModuleOptions{
			Registry:          registry,
			DialogIdleTimeout: conf.Jobs.DialogIdleTimeout,
		}),
		documents.NewModule(&documents.ModuleOptions{
			Registry:         registry,
			SignedURLExpires: conf.Documents.SignedURLExpires,
			MaxUploadSize:    conf.Documents.MaxUploadSize,
			MaxUploadMemory:  conf.Documents.MaxUploadMemory,
		}),
		tracking.NewModule(&tracking.ModuleOptions{
			UIState:      store,
			PollInterval: conf.Tracking.PollInterval,
			StaleAfter:   conf.Tracking.StaleAfter,
		}),
		staff.NewModule(&staff.ModuleOptions{
			PendingRequestsInterval: conf.Tracking.PendingRequestsInterval,
		}),
		clients.NewModule(),
		inventory.NewModule(),
		settings.NewModule(&settings.ModuleOptions{
			UIState: store,
		}),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
