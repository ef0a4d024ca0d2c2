package jobform

import (
	"context"
	"sync"
	"time"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
)

type Phase string

const (
	PhaseClosed     Phase = "closed"
	PhaseOpening    Phase = "opening"
	PhaseEditing    Phase = "editing"
	PhaseSubmitting Phase = "submitting"
)

// SubmitFunc sends the payload to the remote API and returns the id of the saved record.
type SubmitFunc func(ctx context.Context, mode jobtype.Mode, recordID string, payload map[string]any) (string, error)

type SubmitResult struct {
	ID      string         `json:"id"`
	Mode    jobtype.Mode   `json:"mode"`
	Payload map[string]any `json:"-"`
}

// Dialog drives one job form through closed → opening → editing ⇄ submitting.
// Work started for the dialog runs under its context, which Close cancels; results
// that arrive after Close are dropped.
type Dialog struct {
	ID         string
	Descriptor *jobtype.Descriptor

	mu         sync.Mutex
	phase      Phase
	state      *FormState
	ctx        context.Context
	cancel     context.CancelFunc
	lastActive time.Time
	now        func() time.Time
}

func NewDialog(id string, desc *jobtype.Descriptor) *Dialog {
	return &Dialog{
		ID:         id,
		Descriptor: desc,
		phase:      PhaseClosed,
		state:      NewFormState(),
		now:        time.Now,
		lastActive: time.Now(),
	}
}

func (d *Dialog) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// Begin moves closed → opening and returns the context that loads for this dialog must use.
// The context is detached from parent cancellation so the dialog outlives the request that opened it.
func (d *Dialog) Begin(parent context.Context) (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != PhaseClosed {
		return nil, ErrDialogBusy
	}
	d.ctx, d.cancel = context.WithCancel(context.WithoutCancel(parent))
	d.phase = PhaseOpening
	d.touch()
	return d.ctx, nil
}

// Ready initializes the draft and moves opening → editing.
func (d *Dialog) Ready(opts OpenOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != PhaseOpening {
		return ErrDialogClosed
	}
	if opts.Config == nil {
		opts.Config = d.Descriptor.Config
	}
	if _, err := d.state.Initialize(opts); err != nil {
		return err
	}
	d.phase = PhaseEditing
	d.touch()
	return nil
}

// Context returns the dialog's context, or a cancelled one once the dialog is closed.
func (d *Dialog) Context() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return d.ctx
}

func (d *Dialog) SetField(name string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.phase {
	case PhaseEditing:
	case PhaseSubmitting, PhaseOpening:
		return ErrDialogBusy
	default:
		return ErrDialogClosed
	}
	d.touch()
	return d.state.SetField(name, value)
}

// Submit validates, builds the payload and hands it to send. On failure the dialog
// returns to editing with the draft intact and ErrorMsg set. On success it closes.
func (d *Dialog) Submit(send SubmitFunc) (*SubmitResult, error) {
	d.mu.Lock()
	switch d.phase {
	case PhaseEditing:
	case PhaseSubmitting, PhaseOpening:
		d.mu.Unlock()
		return nil, ErrDialogBusy
	default:
		d.mu.Unlock()
		return nil, ErrDialogClosed
	}
	d.touch()
	cfg := d.state.Config()
	if verr := Validate(d.state, cfg); verr != nil {
		d.state.ErrorMsg = verr.Message
		d.state.FieldErrors = verr.Fields
		d.mu.Unlock()
		return nil, verr
	}
	payload := PreparePayload(d.state, cfg)
	mode, recordID, ctx := d.state.Mode, d.state.RecordID, d.ctx
	d.phase = PhaseSubmitting
	d.state.Saving = true
	d.state.ErrorMsg = ""
	d.state.FieldErrors = nil
	d.mu.Unlock()

	id, err := send(ctx, mode, recordID, payload)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != PhaseSubmitting || d.ctx != ctx {
		return nil, ErrDialogClosed
	}
	d.touch()
	if err != nil {
		d.phase = PhaseEditing
		d.state.Saving = false
		d.state.ErrorMsg = err.Error()
		return nil, err
	}
	if id == "" {
		id = recordID
	}
	d.closeLocked()
	return &SubmitResult{ID: id, Mode: mode, Payload: payload}, nil
}

// Close cancels outstanding work and discards the draft. Closing twice is a no-op.
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
}

func (d *Dialog) closeLocked() {
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx, d.cancel = nil, nil
	d.phase = PhaseClosed
	d.state.Reset()
}

func (d *Dialog) touch() {
	d.lastActive = d.now()
}

// IdleSince reports when the dialog last saw activity.
func (d *Dialog) IdleSince() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastActive
}

type DialogView struct {
	ID          string            `json:"id"`
	JobType     string            `json:"jobType"`
	Phase       Phase             `json:"phase"`
	Mode        jobtype.Mode      `json:"mode,omitempty"`
	RecordID    string            `json:"recordId,omitempty"`
	Week        any               `json:"week,omitempty"`
	Saving      bool              `json:"saving"`
	ErrorMsg    string            `json:"errorMsg,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Chrome      jobtype.Chrome    `json:"chrome"`
	Form        *FormView         `json:"form,omitempty"`
}

// View snapshots the dialog for presentation.
func (d *Dialog) View() DialogView {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := DialogView{
		ID:      d.ID,
		JobType: d.Descriptor.Config.Key,
		Phase:   d.phase,
	}
	if !d.state.Initialized() {
		v.Chrome = d.Descriptor.Chrome(jobtype.ModeCreate, nil)
		return v
	}
	v.Mode = d.state.Mode
	v.RecordID = d.state.RecordID
	v.Week = d.state.Week()
	v.Saving = d.state.Saving
	v.ErrorMsg = d.state.ErrorMsg
	v.FieldErrors = d.state.FieldErrors
	v.Chrome = d.Descriptor.Chrome(d.state.Mode, d.state.Values)
	form := Render(d.state, d.state.Config())
	v.Form = &form
	return v
}

// Draft returns a copy of the current values; used by callers that diff against the original record.
func (d *Dialog) Draft() (values map[string]any, original map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	values = make(map[string]any, len(d.state.Values))
	for k, v := range d.state.Values {
		values[k] = v
	}
	return values, d.state.Original
}
