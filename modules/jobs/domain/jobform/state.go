package jobform

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
)

// NewNoteField addresses the pending note text through SetField.
const NewNoteField = "newNote"

// StaffRef is a read-only staff entry offered by staff pickers.
type StaffRef struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Role      string `json:"role"`
	Position  string `json:"position"`
}

func (s *StaffRef) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        any    `json:"id"`
		FirstName string `json:"first_name"`
		Surname   string `json:"surname"`
		Role      string `json:"role"`
		Position  string `json:"position"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = StaffRef{
		ID:        toString(raw.ID),
		FirstName: raw.FirstName,
		Surname:   raw.Surname,
		Role:      raw.Role,
		Position:  raw.Position,
	}
	return nil
}

func (s StaffRef) DisplayName() string {
	return strings.TrimSpace(s.FirstName + " " + s.Surname)
}

type OpenOptions struct {
	Mode       jobtype.Mode
	Record     map[string]any
	Config     *jobtype.Config
	ClientName string
	ClientID   string
	// Staff holds picker options keyed by staff role.
	Staff map[string][]StaffRef
	Now   time.Time
}

// FormState is the draft owned by one open dialog. It performs no I/O.
type FormState struct {
	Mode         jobtype.Mode
	Values       map[string]any
	NewNote      string
	History      []Note
	NotesDisplay string
	Original     map[string]any
	RecordID     string
	ClientID     string
	Staff        map[string][]StaffRef
	Saving       bool
	ErrorMsg     string
	FieldErrors  map[string]string

	config      *jobtype.Config
	initialized bool
}

func NewFormState() *FormState {
	return &FormState{}
}

func (s *FormState) Initialized() bool {
	return s.initialized
}

func (s *FormState) Config() *jobtype.Config {
	return s.config
}

// Initialize seeds the draft once per open. It reports false when the state was already initialized.
func (s *FormState) Initialize(opts OpenOptions) (bool, error) {
	if s.initialized {
		return false, nil
	}
	if opts.Config == nil {
		return false, errors.New("jobform: config is required")
	}
	if !opts.Mode.Valid() {
		return false, errors.Errorf("jobform: invalid mode %q", opts.Mode)
	}
	if opts.Mode == jobtype.ModeEdit && opts.Record == nil {
		return false, ErrMissingRecord
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	*s = FormState{
		Mode:     opts.Mode,
		Values:   make(map[string]any),
		ClientID: opts.ClientID,
		Staff:    opts.Staff,
		config:   opts.Config,
	}
	if s.Staff == nil {
		s.Staff = map[string][]StaffRef{}
	}
	if opts.Mode == jobtype.ModeEdit {
		s.seedFromRecord(opts.Record)
	} else {
		s.seedDefaults(opts.ClientName, now)
	}
	s.initialized = true
	return true, nil
}

// Reset discards the draft so the next Initialize starts over.
func (s *FormState) Reset() {
	*s = FormState{}
}

func (s *FormState) seedDefaults(clientName string, now time.Time) {
	for _, f := range s.config.PayloadFields() {
		switch {
		case f.IsNotes():
			continue
		case f.DefaultValue != nil:
			s.Values[f.Name] = f.DefaultValue
		case f.Type == jobtype.Checkbox:
			s.Values[f.Name] = false
		default:
			s.Values[f.Name] = ""
		}
		if f.IsStaffPicker() {
			s.Values[f.IDField] = ""
		}
	}
	if _, ok := s.config.Field("client"); ok && clientName != "" {
		s.Values["client"] = clientName
	}
	if _, ok := s.config.Field("week"); ok {
		_, week := now.ISOWeek()
		s.Values["week"] = week
	}
}

func (s *FormState) seedFromRecord(record map[string]any) {
	s.Original = record
	s.RecordID = toString(record["id"])
	if cid := toString(record["client_id"]); cid != "" {
		s.ClientID = cid
	}
	for _, f := range s.config.PayloadFields() {
		v := record[f.Name]
		switch {
		case f.IsNotes():
			s.History = ParseNotes(v)
			s.NotesDisplay = FormatNotes(s.History)
			continue
		case f.Type == jobtype.Checkbox:
			v = toBool(v)
		case v == nil:
			v = ""
		}
		s.Values[f.Name] = v
		if f.IsStaffPicker() {
			s.Values[f.IDField] = valueOrBlank(record[f.IDField])
		}
	}
	if _, ok := s.config.Field("client"); ok {
		if name := clientName(record); name != "" {
			s.Values["client"] = name
		} else if _, nested := s.Values["client"].(map[string]any); nested {
			s.Values["client"] = ""
		}
	}
}

// clientName denormalizes the client name from a nested relation when the API embeds one.
func clientName(record map[string]any) string {
	for _, key := range []string{"client", "clients"} {
		nested, ok := record[key].(map[string]any)
		if !ok {
			continue
		}
		for _, nameKey := range []string{"name", "company_name"} {
			if name := strings.TrimSpace(toString(nested[nameKey])); name != "" {
				return name
			}
		}
	}
	if name, ok := record["client"].(string); ok {
		return name
	}
	return ""
}

func valueOrBlank(v any) any {
	if v == nil {
		return ""
	}
	return v
}

// Week returns the working week carried with the job.
func (s *FormState) Week() any {
	return s.Values["week"]
}

// SetField is the generic change handler for every addressable draft value.
func (s *FormState) SetField(name string, value any) error {
	if !s.initialized {
		return errors.New("jobform: state is not initialized")
	}
	if name == NewNoteField {
		s.NewNote = toString(value)
		return nil
	}
	f, ok := s.config.Field(name)
	if !ok {
		return errors.Wrap(ErrUnknownField, name)
	}
	delete(s.FieldErrors, name)
	switch {
	case f.IsNotes():
		return errors.Wrap(ErrReadOnlyField, name)
	case f.IsStaffPicker():
		return s.setStaff(f, value)
	case f.Type == jobtype.Checkbox:
		s.Values[name] = toBool(value)
	case f.Decimal:
		s.Values[name] = stripDecimal(value)
	default:
		s.Values[name] = value
	}
	return nil
}

func (s *FormState) setStaff(f *jobtype.Field, value any) error {
	id := strings.TrimSpace(toString(value))
	if id == "" {
		s.Values[f.Name] = ""
		s.Values[f.IDField] = ""
		return nil
	}
	for _, ref := range s.Staff[f.StaffRole] {
		if ref.ID == id {
			s.Values[f.Name] = ref.DisplayName()
			s.Values[f.IDField] = ref.ID
			return nil
		}
	}
	return errors.Wrapf(ErrUnknownStaff, "%s %s", f.StaffRole, id)
}
