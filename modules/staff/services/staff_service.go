package services

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/composables"
	"github.com/fieldops/opsboard/pkg/crud"
)

var ErrNationalIDMissing = errors.New("remote api returned no national id")

// PendingRequests is the cached badge value served to the dashboard.
type PendingRequests struct {
	Count     int       `json:"count"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	Stale     bool      `json:"stale"`
}

type StaffService struct {
	api     apiclient.API
	records *crud.Service
	now     func() time.Time

	mu      sync.RWMutex
	pending PendingRequests
}

func NewStaffService(api apiclient.API) *StaffService {
	return &StaffService{
		api:     api,
		records: crud.NewService(api, "staff", "/staff"),
		now:     time.Now,
	}
}

// Records is the /staff collection proxy.
func (s *StaffService) Records() *crud.Service {
	return s.records
}

// RevealNationalID asks the remote API for the unmasked id number of a staff member.
// Every reveal is written to the audit log with the request id.
func (s *StaffService) RevealNationalID(ctx context.Context, id string) (string, error) {
	resp, err := s.api.Post(ctx, "/staff/"+url.PathEscape(id)+"/reveal-national-id", nil)
	if err != nil {
		return "", err
	}
	var body struct {
		NationalID      string `json:"national_id"`
		NationalIDCamel string `json:"nationalId"`
		IDNumber        string `json:"id_number"`
	}
	if err := resp.Decode(&body); err != nil {
		return "", errors.Wrap(err, "decode national id")
	}
	value := firstNonEmpty(body.NationalID, body.NationalIDCamel, body.IDNumber)
	if value == "" {
		return "", ErrNationalIDMissing
	}
	nationalIDReveals.Inc()
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"audit":    "staff.national-id.reveal",
		"staff-id": id,
	}).Info("national id revealed")
	return value, nil
}

// RefreshPending polls the pending request count. A failed poll keeps the previous
// count and marks it stale.
func (s *StaffService) RefreshPending(ctx context.Context) {
	count, err := s.fetchPending(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.pending.Stale = true
		composables.UseLogger(ctx).WithError(err).Warn("pending request poll failed")
		return
	}
	s.pending = PendingRequests{Count: count, FetchedAt: s.now()}
	pendingRequests.Set(float64(count))
}

func (s *StaffService) fetchPending(ctx context.Context) (int, error) {
	resp, err := s.api.Get(ctx, "/staff/requests/pending/count")
	if err != nil {
		return 0, err
	}
	var body struct {
		Count json.Number `json:"count"`
		Data  json.Number `json:"data"`
	}
	if err := resp.Decode(&body); err != nil {
		var bare json.Number
		if err := json.Unmarshal(resp.Data, &bare); err != nil {
			return 0, errors.Wrap(err, "decode pending count")
		}
		body.Count = bare
	}
	if body.Count == "" {
		body.Count = body.Data
	}
	n, err := body.Count.Int64()
	if err != nil {
		return 0, errors.Wrapf(err, "pending count %q", body.Count)
	}
	return int(n), nil
}

func (s *StaffService) PendingRequests() PendingRequests {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
