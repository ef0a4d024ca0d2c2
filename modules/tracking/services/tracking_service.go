package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"

	"github.com/fieldops/opsboard/modules/tracking/domain/location"
	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/composables"
	"github.com/fieldops/opsboard/pkg/uistate"
)

// Channel is the websocket channel the location feed is pushed on.
const Channel = "tracking"

var (
	ErrTechnicianNotFound = errors.New("technician not found")
	ErrUnknownTileStyle   = errors.New("unknown tile style")
)

// Broadcaster pushes a value to every subscriber of a channel.
type Broadcaster interface {
	Broadcast(channel string, v any) error
}

type Snapshot struct {
	Technicians []location.Technician `json:"technicians"`
	FetchedAt   time.Time             `json:"fetchedAt"`
	Active      int                   `json:"active"`
	Idle        int                   `json:"idle"`
}

type Filter struct {
	Query  string
	Status string
}

type TrackingService struct {
	api        apiclient.API
	hub        Broadcaster
	ui         uistate.Store
	staleAfter time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
}

func NewTrackingService(api apiclient.API, hub Broadcaster, ui uistate.Store, staleAfter time.Duration) *TrackingService {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &TrackingService{
		api:        api,
		hub:        hub,
		ui:         ui,
		staleAfter: staleAfter,
		now:        time.Now,
		snapshot:   Snapshot{Technicians: []location.Technician{}},
	}
}

// Poll is the scheduler job: fetch the feed, keep it as the latest snapshot and push it to subscribers.
// A failed poll keeps the previous snapshot.
func (s *TrackingService) Poll(ctx context.Context) {
	logger := composables.UseLogger(ctx)
	snap, err := s.Refresh(ctx)
	if err != nil {
		locationPolls.WithLabelValues("error").Inc()
		if ctx.Err() == nil {
			logger.WithError(err).Warn("location poll failed")
		}
		return
	}
	locationPolls.WithLabelValues("ok").Inc()
	if s.hub != nil {
		if err := s.hub.Broadcast(Channel, snap); err != nil {
			logger.WithError(err).Warn("location broadcast failed")
		}
	}
}

func (s *TrackingService) Refresh(ctx context.Context) (Snapshot, error) {
	resp, err := s.api.Get(ctx, "/staff/locations")
	if err != nil {
		return Snapshot{}, err
	}
	var techs []location.Technician
	if err := resp.Decode(&techs); err != nil {
		return Snapshot{}, errors.Wrap(err, "decode staff locations")
	}
	now := s.now()
	snap := Snapshot{Technicians: make([]location.Technician, 0, len(techs)), FetchedAt: now}
	for _, t := range techs {
		if raw := t.UnparsedLastSeen(); raw != "" {
			composables.UseLogger(ctx).WithFields(logrus.Fields{
				"staff-id":  t.ID,
				"last-seen": raw,
			}).Warn("unreadable location timestamp, treating technician as idle")
		}
		t.Status = location.Classify(t.LastSeen, now, s.staleAfter)
		if t.Status == location.StatusActive {
			snap.Active++
		} else {
			snap.Idle++
		}
		snap.Technicians = append(snap.Technicians, t)
	}
	sort.SliceStable(snap.Technicians, func(i, j int) bool {
		return strings.ToLower(snap.Technicians[i].Name) < strings.ToLower(snap.Technicians[j].Name)
	})
	activeTechnicians.Set(float64(snap.Active))

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	return snap, nil
}

// Snapshot returns the latest feed narrowed by a fuzzy name search and a status (all, active, idle).
func (s *TrackingService) Snapshot(f Filter) Snapshot {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()

	q := strings.TrimSpace(f.Query)
	status := strings.ToLower(strings.TrimSpace(f.Status))
	if q == "" && (status == "" || status == "all") {
		return snap
	}
	out := Snapshot{FetchedAt: snap.FetchedAt, Technicians: make([]location.Technician, 0, len(snap.Technicians))}
	for _, t := range snap.Technicians {
		if status != "" && status != "all" && string(t.Status) != status {
			continue
		}
		if q != "" && !fuzzy.MatchNormalizedFold(q, t.Name) {
			continue
		}
		if t.Status == location.StatusActive {
			out.Active++
		} else {
			out.Idle++
		}
		out.Technicians = append(out.Technicians, t)
	}
	return out
}

func (s *TrackingService) FlyTo(id string) (location.CameraTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.snapshot.Technicians {
		if t.ID == id {
			return location.FlyTo(t), nil
		}
	}
	return location.CameraTarget{}, errors.Wrap(ErrTechnicianNotFound, id)
}

type TileStyleView struct {
	Styles   []location.TileStyle `json:"styles"`
	Selected string               `json:"selected"`
}

// TileStyles lists the styles with the caller's saved selection. A store outage falls back to the default.
func (s *TrackingService) TileStyles(ctx context.Context) TileStyleView {
	view := TileStyleView{Styles: location.TileStyles(), Selected: location.DefaultTileStyle}
	value, ok, err := s.ui.Get(ctx, tileStyleKey(ctx))
	if err != nil {
		composables.UseLogger(ctx).WithError(err).Warn("ui state unavailable, using default tile style")
		return view
	}
	if _, known := location.LookupTileStyle(value); ok && known {
		view.Selected = value
	}
	return view
}

func (s *TrackingService) SetTileStyle(ctx context.Context, key string) (TileStyleView, error) {
	style, ok := location.LookupTileStyle(key)
	if !ok {
		return TileStyleView{}, errors.Wrap(ErrUnknownTileStyle, key)
	}
	if err := s.ui.Set(ctx, tileStyleKey(ctx), style.Key); err != nil {
		return TileStyleView{}, errors.Wrap(err, "save tile style")
	}
	return TileStyleView{Styles: location.TileStyles(), Selected: style.Key}, nil
}

// tileStyleKey scopes the preference to the caller's token so users do not share a selection.
func tileStyleKey(ctx context.Context) string {
	owner := "shared"
	if token, ok := composables.UseToken(ctx); ok {
		sum := sha256.Sum256([]byte(token))
		owner = hex.EncodeToString(sum[:8])
	}
	return uistate.PreferenceKey(owner, "tracking.tile-style")
}

// SendSnapshot pushes the current snapshot to a subscriber that just joined.
func (s *TrackingService) SendSnapshot(channel string, send func(v any) error) {
	if channel != Channel {
		return
	}
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	_ = send(snap)
}
