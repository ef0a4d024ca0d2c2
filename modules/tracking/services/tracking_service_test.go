package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/opsboard/modules/tracking/domain/location"
	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/composables"
	"github.com/fieldops/opsboard/pkg/uistate"
)

var pollNow = time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

const feed = `{"data":[
	{"staff_id":12,"first_name":"Sipho","surname":"Dlamini","latitude":-26.1,"longitude":28.0,"last_seen":"2024-03-14T11:55:00Z"},
	{"staff_id":14,"first_name":"Anele","surname":"Khumalo","latitude":"-25.7","longitude":"28.2","last_seen":"2024-03-14T11:40:00Z"},
	{"staff_id":15,"name":"Pieter Botha","lat":-33.9,"lng":18.4}
]}`

type stubHub struct {
	mu       sync.Mutex
	channels []string
	values   []any
}

func (h *stubHub) Broadcast(channel string, v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.channels = append(h.channels, channel)
	h.values = append(h.values, v)
	return nil
}

func newTestTrackingService(t *testing.T, handler http.HandlerFunc) (*TrackingService, *stubHub) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	api, err := apiclient.New(apiclient.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	hub := &stubHub{}
	svc := NewTrackingService(api, hub, uistate.NewMemoryStore(), 10*time.Minute)
	svc.now = func() time.Time { return pollNow }
	return svc, hub
}

func feedHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/staff/locations" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_, _ = w.Write([]byte(feed))
}

func TestTrackingService_PollClassifiesAndBroadcasts(t *testing.T) {
	svc, hub := newTestTrackingService(t, feedHandler)

	svc.Poll(context.Background())

	snap := svc.Snapshot(Filter{})
	require.Len(t, snap.Technicians, 3)
	assert.Equal(t, 1, snap.Active)
	assert.Equal(t, 2, snap.Idle)

	byID := map[string]location.Technician{}
	for _, tech := range snap.Technicians {
		byID[tech.ID] = tech
	}
	assert.Equal(t, location.StatusActive, byID["12"].Status)
	assert.Equal(t, "Sipho Dlamini", byID["12"].Name)
	assert.Equal(t, location.StatusIdle, byID["14"].Status)
	assert.InDelta(t, -25.7, byID["14"].Lat, 1e-9)
	assert.Equal(t, location.StatusIdle, byID["15"].Status)

	require.Len(t, hub.channels, 1)
	assert.Equal(t, Channel, hub.channels[0])
	assert.IsType(t, Snapshot{}, hub.values[0])
}

func TestTrackingService_FailedPollKeepsSnapshot(t *testing.T) {
	var fail atomic.Bool
	svc, hub := newTestTrackingService(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		feedHandler(w, r)
	})
	svc.Poll(context.Background())
	fail.Store(true)
	svc.Poll(context.Background())

	assert.Len(t, svc.Snapshot(Filter{}).Technicians, 3)
	assert.Len(t, hub.channels, 1)
}

func TestTrackingService_SnapshotFilter(t *testing.T) {
	svc, _ := newTestTrackingService(t, feedHandler)
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	got := svc.Snapshot(Filter{Query: "sipho"})
	require.Len(t, got.Technicians, 1)
	assert.Equal(t, "12", got.Technicians[0].ID)

	got = svc.Snapshot(Filter{Status: "idle"})
	assert.Len(t, got.Technicians, 2)
	assert.Equal(t, 0, got.Active)

	got = svc.Snapshot(Filter{Query: "khum", Status: "active"})
	assert.Empty(t, got.Technicians)

	got = svc.Snapshot(Filter{Status: "all"})
	assert.Len(t, got.Technicians, 3)

	got = svc.Snapshot(Filter{Status: "Active"})
	require.Len(t, got.Technicians, 1)
	assert.Equal(t, "12", got.Technicians[0].ID)
}

func TestTrackingService_RefreshToleratesTimestampFormats(t *testing.T) {
	svc, _ := newTestTrackingService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"staff_id":1,"name":"Lerato Mokoena","lat":-26.2,"lng":28.0,"last_seen":"2024-03-14 11:58:00.123456+00"},
			{"staff_id":2,"name":"Thabo Nkosi","lat":-26.2,"lng":28.0,"updated_at":"2024-03-14 13:55:00+0200"},
			{"staff_id":3,"name":"Zanele Dube","lat":-26.2,"lng":28.0,"last_seen":"2024-03-14T13:57:00+0200"},
			{"staff_id":4,"name":"Ruan van Wyk","lat":-26.2,"lng":28.0,"last_seen":"yesterday-ish"}
		]`))
	})

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Technicians, 4)

	byID := map[string]location.Technician{}
	for _, tech := range snap.Technicians {
		byID[tech.ID] = tech
	}
	assert.Equal(t, location.StatusActive, byID["1"].Status)
	assert.Equal(t, location.StatusActive, byID["2"].Status)
	assert.Equal(t, location.StatusActive, byID["3"].Status)
	assert.True(t, byID["4"].LastSeen.IsZero())
	assert.Equal(t, "yesterday-ish", byID["4"].UnparsedLastSeen())
	assert.Equal(t, location.StatusIdle, byID["4"].Status)
	assert.Equal(t, 3, snap.Active)
}

func TestTrackingService_FlyTo(t *testing.T) {
	svc, _ := newTestTrackingService(t, feedHandler)
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	target, err := svc.FlyTo("15")
	require.NoError(t, err)
	assert.Equal(t, location.CameraTarget{Lat: -33.9, Lng: 18.4, Zoom: 16, DurationMs: 1500}, target)

	_, err = svc.FlyTo("99")
	require.ErrorIs(t, err, ErrTechnicianNotFound)
}

func TestTrackingService_TileStylePerToken(t *testing.T) {
	svc, _ := newTestTrackingService(t, feedHandler)
	alice := composables.WithToken(context.Background(), "alice-token")
	bob := composables.WithToken(context.Background(), "bob-token")

	assert.Equal(t, location.DefaultTileStyle, svc.TileStyles(alice).Selected)
	assert.Len(t, svc.TileStyles(alice).Styles, 4)

	view, err := svc.SetTileStyle(alice, "Satellite")
	require.NoError(t, err)
	assert.Equal(t, "satellite", view.Selected)
	assert.Equal(t, "satellite", svc.TileStyles(alice).Selected)
	assert.Equal(t, location.DefaultTileStyle, svc.TileStyles(bob).Selected)

	_, err = svc.SetTileStyle(alice, "watercolor")
	require.ErrorIs(t, err, ErrUnknownTileStyle)
}

func TestTrackingService_SendSnapshotOnJoin(t *testing.T) {
	svc, _ := newTestTrackingService(t, feedHandler)
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	var sent []any
	send := func(v any) error {
		sent = append(sent, v)
		return nil
	}
	svc.SendSnapshot("other", send)
	assert.Empty(t, sent)
	svc.SendSnapshot(Channel, send)
	require.Len(t, sent, 1)
	assert.Len(t, sent[0].(Snapshot).Technicians, 3)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, location.StatusActive, location.Classify(pollNow.Add(-10*time.Minute), pollNow, 10*time.Minute))
	assert.Equal(t, location.StatusIdle, location.Classify(pollNow.Add(-10*time.Minute-time.Second), pollNow, 10*time.Minute))
	assert.Equal(t, location.StatusIdle, location.Classify(time.Time{}, pollNow, 10*time.Minute))
}
