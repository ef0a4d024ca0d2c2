package jobtype

import (
	"gopkg.in/yaml.v3"
)

type FieldType string

const (
	Text     FieldType = "text"
	Email    FieldType = "email"
	Number   FieldType = "number"
	Date     FieldType = "date"
	Time     FieldType = "time"
	Select   FieldType = "select"
	Checkbox FieldType = "checkbox"
	Textarea FieldType = "textarea"
)

func (t FieldType) Valid() bool {
	switch t {
	case Text, Email, Number, Date, Time, Select, Checkbox, Textarea:
		return true
	}
	return false
}

// FieldKind picks a richer control for a field. Plain fields render from their type alone.
type FieldKind string

const (
	KindPlain       FieldKind = "plain"
	KindStaffPicker FieldKind = "staff-picker"
	KindNotes       FieldKind = "append-only-notes"
)

func (k FieldKind) Valid() bool {
	switch k {
	case KindPlain, KindStaffPicker, KindNotes:
		return true
	}
	return false
}

type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// UnmarshalYAML accepts either a bare scalar (value doubles as label) or a {value, label} map.
func (o *Option) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		o.Value = node.Value
		o.Label = node.Value
		return nil
	}
	type plain Option
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*o = Option(p)
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

type Field struct {
	Name         string    `yaml:"name" json:"name"`
	Label        string    `yaml:"label" json:"label"`
	Type         FieldType `yaml:"type" json:"type"`
	Options      []Option  `yaml:"options" json:"options,omitempty"`
	DefaultValue any       `yaml:"defaultValue" json:"defaultValue,omitempty"`
	Placeholder  string    `yaml:"placeholder" json:"placeholder,omitempty"`
	GridCols     int       `yaml:"gridCols" json:"gridCols,omitempty"`
	Required     bool      `yaml:"required" json:"required,omitempty"`
	Kind         FieldKind `yaml:"kind" json:"kind"`
	StaffRole    string    `yaml:"staffRole" json:"staffRole,omitempty"`
	IDField      string    `yaml:"idField" json:"idField,omitempty"`
	Decimal      bool      `yaml:"decimal" json:"decimal,omitempty"`
	Phone        bool      `yaml:"phone" json:"phone,omitempty"`
	Toggle       string    `yaml:"toggle" json:"toggle,omitempty"`
}

func (f *Field) IsStaffPicker() bool {
	return f.Kind == KindStaffPicker
}

func (f *Field) IsNotes() bool {
	return f.Kind == KindNotes
}

type Section struct {
	Title    string  `yaml:"title" json:"title"`
	Icon     string  `yaml:"icon" json:"icon,omitempty"`
	GridCols int     `yaml:"gridCols" json:"gridCols,omitempty"`
	Fields   []Field `yaml:"fields" json:"fields"`
}

// Config is the declarative description of one job type. It is never mutated after load.
type Config struct {
	Key           string    `yaml:"key" json:"key"`
	APIEndpoint   string    `yaml:"apiEndpoint" json:"apiEndpoint"`
	ShortName     string    `yaml:"shortName" json:"shortName"`
	Title         string    `yaml:"title" json:"title"`
	Icon          string    `yaml:"icon" json:"icon,omitempty"`
	Implemented   bool      `yaml:"implemented" json:"implemented"`
	DocumentsType string    `yaml:"documentsType" json:"documentsType"`
	StatusField   string    `yaml:"statusField" json:"statusField,omitempty"`
	SearchFields  []string  `yaml:"searchFields" json:"searchFields,omitempty"`
	Sections      []Section `yaml:"sections" json:"sections"`
	Auxiliary     []Field   `yaml:"auxiliary" json:"auxiliary,omitempty"`

	index map[string]*Field
}

// Fields flattens the rendered sections in declaration order.
func (c *Config) Fields() []*Field {
	var out []*Field
	for si := range c.Sections {
		for fi := range c.Sections[si].Fields {
			out = append(out, &c.Sections[si].Fields[fi])
		}
	}
	return out
}

// PayloadFields is Fields followed by the auxiliary fields.
func (c *Config) PayloadFields() []*Field {
	out := c.Fields()
	for i := range c.Auxiliary {
		out = append(out, &c.Auxiliary[i])
	}
	return out
}

// Field looks up a rendered or auxiliary field by name.
func (c *Config) Field(name string) (*Field, bool) {
	f, ok := c.index[name]
	return f, ok
}

// StaffIDFields lists the companion id keys of the staff pickers.
func (c *Config) StaffIDFields() []string {
	var out []string
	for _, f := range c.Fields() {
		if f.IsStaffPicker() && f.IDField != "" {
			out = append(out, f.IDField)
		}
	}
	return out
}

// Path returns the REST path of one record of this type.
func (c *Config) Path(id string) string {
	if id == "" {
		return c.APIEndpoint
	}
	return c.APIEndpoint + "/" + id
}

func (c *Config) buildIndex() {
	c.index = make(map[string]*Field)
	for _, f := range c.PayloadFields() {
		c.index[f.Name] = f
	}
}
