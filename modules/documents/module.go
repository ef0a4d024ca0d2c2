package documents

import (
	"time"

	"github.com/fieldops/opsboard/modules/documents/presentation/controllers"
	"github.com/fieldops/opsboard/modules/documents/services"
	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/spotlight"
	"github.com/fieldops/opsboard/pkg/types"
)

type ModuleOptions struct {
	Registry         *jobtype.Registry
	SignedURLExpires time.Duration
	MaxUploadSize    int64
	MaxUploadMemory  int64
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

var DocumentsLink = types.NavigationItem{
	Name: "Documents",
	Icon: "folder-open",
	Href: "/documents",
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
	documentService := services.NewDocumentService(app.API(), registry, m.options.SignedURLExpires)
	app.RegisterServices(documentService)
	app.EventPublisher().Subscribe(documentService.OnJobSaved)

	app.RegisterControllers(
		controllers.NewDocumentsController(app, controllers.UploadLimits{
			MaxSize:   m.options.MaxUploadSize,
			MaxMemory: m.options.MaxUploadMemory,
		}),
	)
	app.RegisterNavItems(DocumentsLink)
	app.QuickLinks().Add(
		spotlight.NewQuickLink(DocumentsLink.Icon, DocumentsLink.Name, DocumentsLink.Href).
			WithKeywords("files", "uploads", "attachments"),
	)
	return nil
}

func (m *Module) Name() string {
	return "documents"
}
