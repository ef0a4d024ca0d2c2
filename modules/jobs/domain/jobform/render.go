package jobform

import (
	"strconv"

	"github.com/Rhymond/go-money"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
)

type Widget string

const (
	WidgetInput       Widget = "input"
	WidgetSelect      Widget = "select"
	WidgetCheckbox    Widget = "checkbox"
	WidgetTextarea    Widget = "textarea"
	WidgetStaffPicker Widget = "staff-picker"
	WidgetNotes       Widget = "notes"
)

type NoteView struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
	Display   string `json:"display"`
}

// Control is the view model of one form field.
type Control struct {
	Name        string           `json:"name"`
	Label       string           `json:"label"`
	Widget      Widget           `json:"widget"`
	InputType   string           `json:"inputType,omitempty"`
	Value       any              `json:"value"`
	Display     string           `json:"display,omitempty"`
	Options     []jobtype.Option `json:"options,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
	GridCols    int              `json:"gridCols,omitempty"`
	Required    bool             `json:"required,omitempty"`
	Hidden      bool             `json:"hidden,omitempty"`
	Toggle      string           `json:"toggle,omitempty"`
	IDField     string           `json:"idField,omitempty"`
	SelectedID  any              `json:"selectedId,omitempty"`
	History     []NoteView       `json:"history,omitempty"`
	Error       string           `json:"error,omitempty"`
}

type SectionView struct {
	Title    string    `json:"title"`
	Icon     string    `json:"icon,omitempty"`
	GridCols int       `json:"gridCols,omitempty"`
	Controls []Control `json:"controls"`
}

type FormView struct {
	Sections  []SectionView `json:"sections"`
	Auxiliary []Control     `json:"auxiliary,omitempty"`
}

// Render turns the draft into controls, section by section.
func Render(state *FormState, cfg *jobtype.Config) FormView {
	view := FormView{Sections: make([]SectionView, 0, len(cfg.Sections))}
	for si := range cfg.Sections {
		section := &cfg.Sections[si]
		sv := SectionView{
			Title:    section.Title,
			Icon:     section.Icon,
			GridCols: section.GridCols,
			Controls: make([]Control, 0, len(section.Fields)),
		}
		for fi := range section.Fields {
			sv.Controls = append(sv.Controls, RenderField(state, &section.Fields[fi]))
		}
		view.Sections = append(view.Sections, sv)
	}
	for i := range cfg.Auxiliary {
		view.Auxiliary = append(view.Auxiliary, RenderField(state, &cfg.Auxiliary[i]))
	}
	return view
}

func RenderField(state *FormState, f *jobtype.Field) Control {
	c := Control{
		Name:        f.Name,
		Label:       f.Label,
		Options:     f.Options,
		Placeholder: f.Placeholder,
		GridCols:    f.GridCols,
		Required:    f.Required,
		Toggle:      f.Toggle,
		Error:       state.FieldErrors[f.Name],
	}
	v := state.Values[f.Name]

	switch {
	case f.IsStaffPicker():
		c.Widget = WidgetStaffPicker
		c.IDField = f.IDField
		c.Value = toString(v)
		c.SelectedID = state.Values[f.IDField]
		c.Options = staffOptions(state.Staff[f.StaffRole])
		return c
	case f.IsNotes():
		c.Widget = WidgetNotes
		c.Value = state.NewNote
		c.Display = state.NotesDisplay
		for _, n := range state.History {
			c.History = append(c.History, NoteView{Text: n.Text, Timestamp: n.Timestamp, Display: n.Display()})
		}
		return c
	}

	switch f.Type {
	case jobtype.Checkbox:
		c.Widget = WidgetCheckbox
		c.Value = toBool(v)
	case jobtype.Select:
		c.Widget = WidgetSelect
		c.Value = toString(v)
	case jobtype.Textarea:
		c.Widget = WidgetTextarea
		c.Value = toString(v)
	case jobtype.Number:
		c.Widget = WidgetInput
		c.InputType = "number"
		c.Value, c.Display = numberDisplay(f, v)
	case jobtype.Date:
		c.Widget = WidgetInput
		c.InputType = "date"
		c.Value = dateOnly(v)
	case jobtype.Time:
		c.Widget = WidgetInput
		c.InputType = "time"
		c.Value = hourMinute(v)
	default:
		c.Widget = WidgetInput
		c.InputType = string(f.Type)
		if f.Phone {
			c.InputType = "tel"
		}
		c.Value = toString(v)
	}
	if f.Toggle != "" {
		c.Hidden = !toggleOn(state, f)
	}
	return c
}

func numberDisplay(f *jobtype.Field, v any) (string, string) {
	if f.Decimal {
		raw := stripDecimal(v)
		d, ok := parseNumber(raw)
		if !ok {
			return raw, ""
		}
		return raw, money.NewFromFloat(d.InexactFloat64(), money.ZAR).Display()
	}
	d, ok := parseNumber(v)
	if !ok {
		return toString(v), ""
	}
	return strconv.FormatInt(d.Truncate(0).IntPart(), 10), ""
}

func staffOptions(refs []StaffRef) []jobtype.Option {
	out := make([]jobtype.Option, 0, len(refs))
	for _, ref := range refs {
		out = append(out, jobtype.Option{Value: ref.ID, Label: ref.DisplayName()})
	}
	return out
}
