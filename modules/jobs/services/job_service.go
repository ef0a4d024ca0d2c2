package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wI2L/jsondiff"
	"golang.org/x/sync/errgroup"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobform"
	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/composables"
	"github.com/fieldops/opsboard/pkg/eventbus"
)

type JobServiceOptions struct {
	API               apiclient.API
	Registry          *jobtype.Registry
	Palette           *jobtype.Palette
	Staff             StaffLookup
	Publisher         eventbus.EventBus
	DialogIdleTimeout time.Duration
}

type JobService struct {
	api         apiclient.API
	registry    *jobtype.Registry
	palette     *jobtype.Palette
	staff       StaffLookup
	publisher   eventbus.EventBus
	dialogs     *DialogStore
	idleTimeout time.Duration
	now         func() time.Time
}

func NewJobService(opts JobServiceOptions) *JobService {
	staff := opts.Staff
	if staff == nil {
		staff = NewAPIStaffLookup(opts.API)
	}
	idle := opts.DialogIdleTimeout
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &JobService{
		api:         opts.API,
		registry:    opts.Registry,
		palette:     opts.Palette,
		staff:       staff,
		publisher:   opts.Publisher,
		dialogs:     NewDialogStore(),
		idleTimeout: idle,
		now:         time.Now,
	}
}

// TypeView is a job type config together with its status palette.
type TypeView struct {
	*jobtype.Config
	StatusOptions []jobtype.StatusOption `json:"statusOptions,omitempty"`
}

func (s *JobService) Registry() *jobtype.Registry {
	return s.registry
}

func (s *JobService) Types() []TypeView {
	all := s.registry.All()
	out := make([]TypeView, 0, len(all))
	for _, cfg := range all {
		out = append(out, TypeView{Config: cfg, StatusOptions: jobtype.NewDescriptor(cfg, s.palette).StatusOptions()})
	}
	return out
}

func (s *JobService) Type(key string) (*TypeView, error) {
	cfg, err := s.registry.Get(key)
	if err != nil {
		return nil, err
	}
	return &TypeView{Config: cfg, StatusOptions: jobtype.NewDescriptor(cfg, s.palette).StatusOptions()}, nil
}

func (s *JobService) descriptor(key string) (*jobtype.Descriptor, error) {
	cfg, err := s.registry.Get(key)
	if err != nil {
		return nil, err
	}
	return jobtype.NewDescriptor(cfg, s.palette), nil
}

// List returns the jobs of one type, optionally narrowed to a client.
func (s *JobService) List(ctx context.Context, key, clientID string) ([]map[string]any, error) {
	cfg, err := s.registry.Get(key)
	if err != nil {
		return nil, err
	}
	path := cfg.APIEndpoint
	if clientID != "" {
		path += "?" + url.Values{"client_id": {clientID}}.Encode()
	}
	resp, err := s.api.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	var jobs []map[string]any
	if err := resp.Decode(&jobs); err != nil {
		return nil, errors.Wrapf(err, "decode %s list", key)
	}
	return jobs, nil
}

func (s *JobService) Get(ctx context.Context, key, id string) (map[string]any, error) {
	cfg, err := s.registry.Get(key)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Get(ctx, cfg.Path(url.PathEscape(id)))
	if err != nil {
		return nil, err
	}
	var record map[string]any
	if err := resp.Decode(&record); err != nil {
		return nil, errors.Wrapf(err, "decode %s %s", key, id)
	}
	return record, nil
}

type DetailView struct {
	JobType string           `json:"jobType"`
	Record  map[string]any   `json:"record"`
	Chrome  jobtype.Chrome   `json:"chrome"`
	Form    jobform.FormView `json:"form"`
}

// Detail renders a saved job read-only for its detail page.
func (s *JobService) Detail(ctx context.Context, key, id string) (*DetailView, error) {
	desc, err := s.descriptor(key)
	if err != nil {
		return nil, err
	}
	record, err := s.Get(ctx, key, id)
	if err != nil {
		return nil, err
	}
	state := jobform.NewFormState()
	if _, err := state.Initialize(jobform.OpenOptions{
		Mode:   jobtype.ModeEdit,
		Record: record,
		Config: desc.Config,
		Staff:  s.loadStaff(ctx, desc.Config),
		Now:    s.now(),
	}); err != nil {
		return nil, err
	}
	return &DetailView{
		JobType: key,
		Record:  record,
		Chrome:  desc.Chrome(jobtype.ModeEdit, state.Values),
		Form:    jobform.Render(state, desc.Config),
	}, nil
}

// loadStaff fetches picker options for every staff role the config uses. A failing
// lookup degrades to an empty list.
func (s *JobService) loadStaff(ctx context.Context, cfg *jobtype.Config) map[string][]jobform.StaffRef {
	roles := map[string]bool{}
	for _, f := range cfg.Fields() {
		if f.IsStaffPicker() {
			roles[f.StaffRole] = true
		}
	}
	out := make(map[string][]jobform.StaffRef, len(roles))
	var mu sync.Mutex
	var g errgroup.Group
	for role := range roles {
		g.Go(func() error {
			refs, err := s.staff.ByRole(ctx, role)
			if err != nil {
				composables.UseLogger(ctx).WithError(err).WithField("role", role).Warn("staff lookup failed, picker will be empty")
				refs = nil
			}
			mu.Lock()
			out[role] = refs
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

type OpenParams struct {
	Mode       jobtype.Mode
	RecordID   string
	ClientName string
	ClientID   string
}

// OpenDialog creates a dialog, loads what it needs and leaves it in editing.
func (s *JobService) OpenDialog(ctx context.Context, key string, params OpenParams) (*jobform.Dialog, error) {
	desc, err := s.descriptor(key)
	if err != nil {
		return nil, err
	}
	if !desc.Config.Implemented {
		return nil, errors.Wrapf(jobtype.ErrUnknownJobType, "%s is not available yet", key)
	}
	if params.Mode == jobtype.ModeEdit && params.RecordID == "" {
		return nil, jobform.ErrMissingRecord
	}

	d := jobform.NewDialog(uuid.NewString(), desc)
	dialogCtx, err := d.Begin(ctx)
	if err != nil {
		return nil, err
	}
	// loads stop when either the dialog closes or the opening request goes away
	loadCtx, cancel := context.WithCancel(dialogCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	opts := jobform.OpenOptions{
		Mode:       params.Mode,
		Config:     desc.Config,
		ClientName: params.ClientName,
		ClientID:   params.ClientID,
		Now:        s.now(),
	}
	var g errgroup.Group
	if params.Mode == jobtype.ModeEdit {
		g.Go(func() error {
			record, err := s.Get(loadCtx, key, params.RecordID)
			opts.Record = record
			return err
		})
	}
	g.Go(func() error {
		opts.Staff = s.loadStaff(loadCtx, desc.Config)
		return nil
	})
	if err := g.Wait(); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.Ready(opts); err != nil {
		d.Close()
		return nil, err
	}
	s.dialogs.Put(d)
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"dialog":   d.ID,
		"job-type": key,
		"mode":     params.Mode,
	}).Debug("job dialog opened")
	return d, nil
}

func (s *JobService) Dialog(id string) (*jobform.Dialog, error) {
	return s.dialogs.Get(id)
}

func (s *JobService) SetField(id, name string, value any) (*jobform.DialogView, error) {
	d, err := s.dialogs.Get(id)
	if err != nil {
		return nil, err
	}
	if err := d.SetField(name, value); err != nil {
		return nil, err
	}
	view := d.View()
	return &view, nil
}

// Submit sends the dialog's draft. On success the dialog is closed and a JobSavedEvent published.
func (s *JobService) Submit(ctx context.Context, id string) (*jobform.SubmitResult, error) {
	d, err := s.dialogs.Get(id)
	if err != nil {
		return nil, err
	}
	cfg := d.Descriptor.Config
	_, original := d.Draft()
	mode := jobtype.ModeCreate
	if original != nil {
		mode = jobtype.ModeEdit
	}

	res, err := d.Submit(func(dialogCtx context.Context, mode jobtype.Mode, recordID string, payload map[string]any) (string, error) {
		sendCtx, cancel := context.WithCancel(dialogCtx)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()
		sendCtx = withRequestValues(sendCtx, ctx)

		var resp *apiclient.Response
		var err error
		if mode == jobtype.ModeEdit {
			resp, err = s.api.Put(sendCtx, cfg.Path(url.PathEscape(recordID)), payload)
		} else {
			resp, err = s.api.Post(sendCtx, cfg.APIEndpoint, payload)
		}
		if err != nil {
			return "", err
		}
		return responseID(resp), nil
	})
	if err != nil {
		outcome := "error"
		var verr *jobform.ValidationError
		if errors.As(err, &verr) {
			outcome = "invalid"
		}
		jobSubmissions.WithLabelValues(cfg.Key, string(mode), outcome).Inc()
		return nil, err
	}
	jobSubmissions.WithLabelValues(cfg.Key, string(res.Mode), "ok").Inc()
	s.dialogs.Remove(id)

	ev := &JobSavedEvent{
		JobType:   cfg.Key,
		ID:        res.ID,
		ClientID:  fmt.Sprint(valueOrEmpty(res.Payload["client_id"])),
		Mode:      res.Mode,
		Timestamp: s.now(),
	}
	logger := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"job-type": cfg.Key,
		"job-id":   res.ID,
		"mode":     res.Mode,
	})
	if res.Mode == jobtype.ModeEdit {
		changes, err := diffRecord(original, res.Payload)
		if err != nil {
			logger.WithError(err).Warn("could not compute change log")
		}
		ev.Changes = changes
		logger = logger.WithField("changes", len(changes))
	}
	logger.Info("job saved")
	if s.publisher != nil {
		s.publisher.Publish(ev)
	}
	return res, nil
}

func (s *JobService) CloseDialog(id string) {
	s.dialogs.Remove(id)
}

// SweepDialogs drops dialogs idle past the configured timeout.
func (s *JobService) SweepDialogs(ctx context.Context) {
	if n := s.dialogs.Sweep(s.now(), s.idleTimeout); n > 0 {
		composables.UseLogger(ctx).WithField("count", n).Info("closed idle job dialogs")
	}
}

// diffRecord compares the fields of the original record that the payload touches.
func diffRecord(original, payload map[string]any) (jsondiff.Patch, error) {
	before := make(map[string]any, len(payload))
	for key := range payload {
		before[key] = original[key]
	}
	if _, ok := payload["notes"]; ok {
		before["notes"] = nil
	}
	src, err := json.Marshal(before)
	if err != nil {
		return nil, errors.Wrap(err, "encode original record")
	}
	dst, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}
	return jsondiff.CompareJSON(src, dst)
}

func responseID(resp *apiclient.Response) string {
	if resp == nil || len(resp.Data) == 0 {
		return ""
	}
	var body map[string]any
	if err := resp.Decode(&body); err != nil {
		return ""
	}
	if id, ok := body["id"]; ok && id != nil {
		if f, ok := id.(float64); ok {
			return fmt.Sprintf("%.0f", f)
		}
		return fmt.Sprint(id)
	}
	return ""
}

func valueOrEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

// withRequestValues carries the caller's token, request id and logger onto a context
// whose lifetime belongs to the dialog.
func withRequestValues(ctx, request context.Context) context.Context {
	if token, ok := composables.UseToken(request); ok {
		ctx = composables.WithToken(ctx, token)
	}
	if params, ok := composables.UseParams(request); ok {
		ctx = composables.WithParams(ctx, params)
	}
	return composables.WithLogger(ctx, composables.UseLogger(request))
}
