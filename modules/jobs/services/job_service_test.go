package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobform"
	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
	"github.com/fieldops/opsboard/pkg/apiclient"
)

type stubPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *stubPublisher) Publish(args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, args...)
}
func (p *stubPublisher) Subscribe(interface{})   {}
func (p *stubPublisher) Unsubscribe(interface{}) {}
func (p *stubPublisher) Clear()                  {}
func (p *stubPublisher) SubscribersCount() int   { return 0 }

func (p *stubPublisher) saved(t *testing.T) *JobSavedEvent {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.events, 1)
	ev, ok := p.events[0].(*JobSavedEvent)
	require.True(t, ok)
	return ev
}

type staffFunc func(ctx context.Context, role string) ([]jobform.StaffRef, error)

func (f staffFunc) ByRole(ctx context.Context, role string) ([]jobform.StaffRef, error) {
	return f(ctx, role)
}

type recordedCall struct {
	Method string
	Path   string
	Body   map[string]any
}

type fakeAPI struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeAPI) record(r *http.Request) recordedCall {
	c := recordedCall{Method: r.Method, Path: r.URL.RequestURI()}
	if r.Body != nil && r.ContentLength != 0 {
		_ = json.NewDecoder(r.Body).Decode(&c.Body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	return c
}

func (f *fakeAPI) writes() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.Method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

func newTestService(t *testing.T, handler func(f *fakeAPI) http.HandlerFunc, staff StaffLookup) (*JobService, *fakeAPI, *stubPublisher) {
	t.Helper()
	fake := &fakeAPI{}
	srv := httptest.NewServer(handler(fake))
	t.Cleanup(srv.Close)
	api, err := apiclient.New(apiclient.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	if staff == nil {
		staff = staffFunc(func(ctx context.Context, role string) ([]jobform.StaffRef, error) {
			return []jobform.StaffRef{{ID: "12", FirstName: "Sipho", Surname: "Dlamini", Role: role}}, nil
		})
	}
	pub := &stubPublisher{}
	svc := NewJobService(JobServiceOptions{
		API:       api,
		Registry:  jobtype.MustDefault(),
		Staff:     staff,
		Publisher: pub,
	})
	svc.now = func() time.Time { return time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC) }
	return svc, fake, pub
}

func dropCableAPI(f *fakeAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/drop-cable":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":88}`))
		case r.Method == http.MethodGet && r.URL.Path == "/drop-cable/5":
			_, _ = w.Write([]byte(`{"data":{"id":5,"client":"Acme","client_id":21,"circuit_number":"CKT-5","site_b_name":"Site B","site_b_address":"1 Main Rd","notes":"[{\"text\":\"one\",\"timestamp\":\"2024-03-01\"}]"}}`))
		case r.Method == http.MethodPut && r.URL.Path == "/drop-cable/5":
			_, _ = w.Write([]byte(`{"data":{"id":5}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/drop-cable":
			_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestJobService_CreateFlow(t *testing.T) {
	svc, fake, pub := newTestService(t, dropCableAPI, nil)
	ctx := context.Background()

	d, err := svc.OpenDialog(ctx, "drop-cable", OpenParams{Mode: jobtype.ModeCreate, ClientName: "Acme", ClientID: "21"})
	require.NoError(t, err)
	assert.Equal(t, jobform.PhaseEditing, d.Phase())

	_, err = svc.SetField(d.ID, "circuit_number", "CKT-1")
	require.NoError(t, err)
	view, err := svc.SetField(d.ID, "site_b_name", "Site B")
	require.NoError(t, err)
	assert.Equal(t, "New Drop Cable", view.Chrome.Title)

	res, err := svc.Submit(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "88", res.ID)

	writes := fake.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, http.MethodPost, writes[0].Method)
	assert.Equal(t, "/drop-cable", writes[0].Path)
	assert.Equal(t, "Acme", writes[0].Body["client"])
	assert.Equal(t, "CKT-1", writes[0].Body["circuit_number"])
	assert.NotContains(t, writes[0].Body, "id")

	ev := pub.saved(t)
	assert.Equal(t, "drop-cable", ev.JobType)
	assert.Equal(t, "88", ev.ID)
	assert.Equal(t, jobtype.ModeCreate, ev.Mode)
	assert.Equal(t, "21", ev.ClientID)
	assert.Empty(t, ev.Changes)

	_, err = svc.Dialog(d.ID)
	require.ErrorIs(t, err, ErrDialogNotFound)
}

func TestJobService_EditFlowSendsOnlyNewNote(t *testing.T) {
	svc, fake, pub := newTestService(t, dropCableAPI, nil)
	ctx := context.Background()

	d, err := svc.OpenDialog(ctx, "drop-cable", OpenParams{Mode: jobtype.ModeEdit, RecordID: "5"})
	require.NoError(t, err)
	assert.Equal(t, "Edit Drop Cable", d.View().Chrome.Title)

	_, err = svc.SetField(d.ID, jobform.NewNoteField, "hello")
	require.NoError(t, err)
	_, err = svc.SetField(d.ID, "site_b_address", "2 Side St")
	require.NoError(t, err)

	res, err := svc.Submit(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "5", res.ID)

	writes := fake.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, http.MethodPut, writes[0].Method)
	assert.Equal(t, "/drop-cable/5", writes[0].Path)
	assert.Equal(t, "hello", writes[0].Body["notes"])

	ev := pub.saved(t)
	assert.Equal(t, jobtype.ModeEdit, ev.Mode)
	var paths []string
	for _, op := range ev.Changes {
		paths = append(paths, op.Path)
	}
	assert.Contains(t, paths, "/site_b_address")
	assert.Contains(t, paths, "/notes")
	assert.NotContains(t, paths, "/circuit_number")
}

func TestJobService_ValidationErrorKeepsDialogOpen(t *testing.T) {
	svc, fake, pub := newTestService(t, dropCableAPI, nil)

	d, err := svc.OpenDialog(context.Background(), "drop-cable", OpenParams{Mode: jobtype.ModeCreate, ClientName: "Acme"})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), d.ID)
	var verr *jobform.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, fake.writes())
	assert.Empty(t, pub.events)

	still, err := svc.Dialog(d.ID)
	require.NoError(t, err)
	assert.Equal(t, jobform.PhaseEditing, still.Phase())
}

func TestJobService_StaffLookupFailureDegrades(t *testing.T) {
	failing := staffFunc(func(context.Context, string) ([]jobform.StaffRef, error) {
		return nil, errors.New("staff service down")
	})
	svc, _, _ := newTestService(t, dropCableAPI, failing)

	d, err := svc.OpenDialog(context.Background(), "drop-cable", OpenParams{Mode: jobtype.ModeCreate, ClientName: "Acme"})
	require.NoError(t, err)

	view := d.View()
	require.NotNil(t, view.Form)
	for _, section := range view.Form.Sections {
		for _, c := range section.Controls {
			if c.Name == "technician" {
				assert.Empty(t, c.Options)
				return
			}
		}
	}
	t.Fatal("technician picker not rendered")
}

func TestJobService_OpenEditWithMissingRecord(t *testing.T) {
	svc, _, _ := newTestService(t, dropCableAPI, nil)

	_, err := svc.OpenDialog(context.Background(), "drop-cable", OpenParams{Mode: jobtype.ModeEdit, RecordID: "404"})
	require.Error(t, err)
	assert.True(t, apiclient.IsNotFound(err))
	assert.Equal(t, 0, svc.dialogs.Len())

	_, err = svc.OpenDialog(context.Background(), "drop-cable", OpenParams{Mode: jobtype.ModeEdit})
	require.ErrorIs(t, err, jobform.ErrMissingRecord)
}

func TestJobService_UnknownAndUnimplementedTypes(t *testing.T) {
	svc, _, _ := newTestService(t, dropCableAPI, nil)

	_, err := svc.OpenDialog(context.Background(), "fibre-splice", OpenParams{Mode: jobtype.ModeCreate})
	require.ErrorIs(t, err, jobtype.ErrUnknownJobType)

	_, err = svc.OpenDialog(context.Background(), "maintenance", OpenParams{Mode: jobtype.ModeCreate})
	require.ErrorIs(t, err, jobtype.ErrUnknownJobType)
}

func TestJobService_ListAndDetail(t *testing.T) {
	svc, fake, _ := newTestService(t, dropCableAPI, nil)

	jobs, err := svc.List(context.Background(), "drop-cable", "21")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.Equal(t, "/drop-cable?client_id=21", fake.calls[0].Path)

	detail, err := svc.Detail(context.Background(), "drop-cable", "5")
	require.NoError(t, err)
	assert.Equal(t, "Edit Drop Cable", detail.Chrome.Title)
	assert.Equal(t, "CKT-5 · Site B", detail.Chrome.Subtitle)
	assert.NotEmpty(t, detail.Form.Sections)
}

func TestJobService_SweepDialogs(t *testing.T) {
	svc, _, _ := newTestService(t, dropCableAPI, nil)
	svc.idleTimeout = time.Minute

	d, err := svc.OpenDialog(context.Background(), "drop-cable", OpenParams{Mode: jobtype.ModeCreate, ClientName: "Acme"})
	require.NoError(t, err)
	dctx := d.Context()

	svc.SweepDialogs(context.Background())
	assert.Equal(t, 1, svc.dialogs.Len())

	svc.now = func() time.Time { return d.IdleSince().Add(2 * time.Minute) }
	svc.SweepDialogs(context.Background())
	assert.Equal(t, 0, svc.dialogs.Len())
	assert.Equal(t, jobform.PhaseClosed, d.Phase())
	assert.Error(t, dctx.Err())
}

func TestJobService_TypesCarryStatusOptions(t *testing.T) {
	svc, _, _ := newTestService(t, dropCableAPI, nil)

	types := svc.Types()
	require.NotEmpty(t, types)
	tv, err := svc.Type("drop-cable")
	require.NoError(t, err)
	assert.NotEmpty(t, tv.StatusOptions)
	assert.Equal(t, "/drop-cable", tv.APIEndpoint)
}
