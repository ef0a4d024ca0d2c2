package services

import (
	"time"

	"github.com/wI2L/jsondiff"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
)

// JobSavedEvent is published after the remote API accepted a create or update.
// Subscribers use it to revalidate cached views of the client's jobs.
type JobSavedEvent struct {
	JobType   string
	ID        string
	ClientID  string
	Mode      jobtype.Mode
	Changes   jsondiff.Patch
	Timestamp time.Time
}
