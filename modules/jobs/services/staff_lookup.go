package services

import (
	"context"
	"net/url"

	"github.com/go-faster/errors"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobform"
	"github.com/fieldops/opsboard/pkg/apiclient"
)

// StaffLookup resolves picker options for a staff role.
type StaffLookup interface {
	ByRole(ctx context.Context, role string) ([]jobform.StaffRef, error)
}

func NewAPIStaffLookup(api apiclient.API) StaffLookup {
	return &apiStaffLookup{api: api}
}

type apiStaffLookup struct {
	api apiclient.API
}

func (l *apiStaffLookup) ByRole(ctx context.Context, role string) ([]jobform.StaffRef, error) {
	q := url.Values{}
	q.Set("role", role)
	resp, err := l.api.Get(ctx, "/staff?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var refs []jobform.StaffRef
	if err := resp.Decode(&refs); err != nil {
		return nil, errors.Wrap(err, "decode staff list")
	}
	return refs, nil
}
