package jobtype

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/go-faster/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed status_colors.toml
var statusColorsTOML []byte

type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

func (m Mode) Valid() bool {
	return m == ModeCreate || m == ModeEdit
}

type typeColors struct {
	Default  string            `toml:"default"`
	Statuses map[string]string `toml:"statuses"`
}

// Palette maps job statuses to CSS classes per job type.
type Palette struct {
	Default string                `toml:"default"`
	Types   map[string]typeColors `toml:"types"`
}

func LoadPalette(data []byte) (*Palette, error) {
	p := &Palette{}
	if _, err := toml.Decode(string(data), p); err != nil {
		return nil, errors.Wrap(err, "decode status colours")
	}
	if p.Default == "" {
		p.Default = "bg-gray-100 text-gray-800"
	}
	return p, nil
}

var defaultPalette = sync.OnceValue(func() *Palette {
	p, err := LoadPalette(statusColorsTOML)
	if err != nil {
		panic(err)
	}
	return p
})

func DefaultPalette() *Palette {
	return defaultPalette()
}

// Color returns the class for status of jobType, falling back to the type default and then the global default.
func (p *Palette) Color(jobType, status string) string {
	colors, ok := p.Types[jobType]
	if !ok {
		return p.Default
	}
	if class, ok := colors.Statuses[normalizeStatus(status)]; ok {
		return class
	}
	if colors.Default != "" {
		return colors.Default
	}
	return p.Default
}

func normalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.Join(strings.Fields(s), "_")
}

var titleCaser = cases.Title(language.English)

type StatusOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Class string `json:"class"`
}

// Chrome is the header decoration of a dialog or detail page.
type Chrome struct {
	Title         string         `json:"title"`
	Subtitle      string         `json:"subtitle"`
	Icon          string         `json:"icon,omitempty"`
	ShortName     string         `json:"shortName"`
	Status        string         `json:"status,omitempty"`
	StatusLabel   string         `json:"statusLabel,omitempty"`
	StatusClass   string         `json:"statusClass,omitempty"`
	StatusOptions []StatusOption `json:"statusOptions,omitempty"`
}

// Descriptor carries everything type specific that the generic form engine needs for presentation.
type Descriptor struct {
	Config  *Config
	palette *Palette
}

func NewDescriptor(cfg *Config, palette *Palette) *Descriptor {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Descriptor{Config: cfg, palette: palette}
}

func (d *Descriptor) Title(mode Mode) string {
	if mode == ModeEdit {
		return "Edit " + d.Config.Title
	}
	return "New " + d.Config.Title
}

// Subtitle identifies the record being edited by its first non-empty search fields.
func (d *Descriptor) Subtitle(mode Mode, record map[string]any) string {
	if mode != ModeEdit {
		return fmt.Sprintf("Create a new %s job", strings.ToLower(d.Config.Title))
	}
	var parts []string
	for _, name := range d.Config.SearchFields {
		if name == d.Config.StatusField {
			continue
		}
		if v := strings.TrimSpace(fmt.Sprint(valueOr(record[name], ""))); v != "" {
			parts = append(parts, v)
		}
		if len(parts) == 2 {
			break
		}
	}
	if len(parts) == 0 {
		if id, ok := record["id"]; ok && id != nil {
			return fmt.Sprintf("%s #%v", d.Config.ShortName, id)
		}
		return d.Config.Title
	}
	return strings.Join(parts, " · ")
}

func (d *Descriptor) StatusColor(status string) string {
	return d.palette.Color(d.Config.Key, status)
}

// StatusLabel prefers the label declared on the status field, then title-cases the raw value.
func (d *Descriptor) StatusLabel(status string) string {
	if status == "" {
		return ""
	}
	if f, ok := d.Config.Field(d.Config.StatusField); ok {
		for _, opt := range f.Options {
			if opt.Value == status {
				return opt.Label
			}
		}
	}
	return titleCaser.String(strings.ReplaceAll(normalizeStatus(status), "_", " "))
}

func (d *Descriptor) StatusOptions() []StatusOption {
	f, ok := d.Config.Field(d.Config.StatusField)
	if !ok {
		return nil
	}
	out := make([]StatusOption, 0, len(f.Options))
	for _, opt := range f.Options {
		out = append(out, StatusOption{Value: opt.Value, Label: opt.Label, Class: d.StatusColor(opt.Value)})
	}
	return out
}

func (d *Descriptor) Chrome(mode Mode, values map[string]any) Chrome {
	c := Chrome{
		Title:         d.Title(mode),
		Subtitle:      d.Subtitle(mode, values),
		Icon:          d.Config.Icon,
		ShortName:     d.Config.ShortName,
		StatusOptions: d.StatusOptions(),
	}
	if d.Config.StatusField != "" {
		if status, ok := values[d.Config.StatusField].(string); ok && status != "" {
			c.Status = status
			c.StatusLabel = d.StatusLabel(status)
			c.StatusClass = d.StatusColor(status)
		}
	}
	return c
}

func valueOr(v any, fallback any) any {
	if v == nil {
		return fallback
	}
	return v
}
