package jobs

import (
	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
	"github.com/fieldops/opsboard/pkg/types"
)

// NavItems builds the Jobs sidebar group from the registry; unimplemented types are listed without a link.
func NavItems(registry *jobtype.Registry) []types.NavigationItem {
	jobsLink := types.NavigationItem{
		Name: "Jobs",
		Icon: "briefcase",
		Href: "/jobs",
	}
	for _, cfg := range registry.All() {
		item := types.NavigationItem{
			Name: cfg.Title,
			Icon: cfg.Icon,
		}
		if cfg.Implemented {
			item.Href = "/jobs/" + cfg.Key
		} else {
			item.Badge = "soon"
		}
		jobsLink.Children = append(jobsLink.Children, item)
	}
	return []types.NavigationItem{jobsLink}
}
