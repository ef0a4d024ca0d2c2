package jobtype

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml
var schemaFiles embed.FS

var ErrUnknownJobType = errors.New("unknown job type")

// Registry holds every job type config keyed by its key.
type Registry struct {
	byKey map[string]*Config
	order []string
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	return Load(schemaFiles, "schemas")
})

// Default returns the registry built from the embedded schemas.
func Default() (*Registry, error) {
	return defaultRegistry()
}

// MustDefault is Default for wiring code; a broken embedded schema is a build defect.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Load reads every *.yaml file in dir of fsys.
func Load(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrap(err, "read schema dir")
	}
	var configs []*Config
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", entry.Name())
		}
		cfg := &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse %s", entry.Name())
		}
		configs = append(configs, cfg)
	}
	return NewRegistry(configs...)
}

// NewRegistry validates configs and indexes them.
func NewRegistry(configs ...*Config) (*Registry, error) {
	r := &Registry{byKey: make(map[string]*Config)}
	for _, cfg := range configs {
		if err := normalize(cfg); err != nil {
			return nil, err
		}
		if _, ok := r.byKey[cfg.Key]; ok {
			return nil, fmt.Errorf("duplicate job type %q", cfg.Key)
		}
		r.byKey[cfg.Key] = cfg
		r.order = append(r.order, cfg.Key)
	}
	sort.Strings(r.order)
	return r, nil
}

func normalize(cfg *Config) error {
	if cfg.Key == "" {
		return errors.New("job type without key")
	}
	if !strings.HasPrefix(cfg.APIEndpoint, "/") {
		return fmt.Errorf("%s: apiEndpoint %q must start with /", cfg.Key, cfg.APIEndpoint)
	}
	if cfg.Title == "" {
		cfg.Title = cfg.Key
	}
	if cfg.DocumentsType == "" {
		cfg.DocumentsType = strings.ReplaceAll(cfg.Key, "-", "_")
	}
	seen := map[string]bool{}
	for _, f := range cfg.PayloadFields() {
		if f.Name == "" {
			return fmt.Errorf("%s: field without name", cfg.Key)
		}
		if seen[f.Name] {
			return fmt.Errorf("%s: duplicate field %q", cfg.Key, f.Name)
		}
		seen[f.Name] = true
		if f.Kind == "" {
			f.Kind = KindPlain
		}
		if !f.Type.Valid() {
			return fmt.Errorf("%s.%s: unknown field type %q", cfg.Key, f.Name, f.Type)
		}
		if !f.Kind.Valid() {
			return fmt.Errorf("%s.%s: unknown field kind %q", cfg.Key, f.Name, f.Kind)
		}
		if f.IsStaffPicker() && (f.StaffRole == "" || f.IDField == "") {
			return fmt.Errorf("%s.%s: staff picker needs staffRole and idField", cfg.Key, f.Name)
		}
		if f.Label == "" {
			f.Label = f.Name
		}
	}
	for _, f := range cfg.PayloadFields() {
		if f.Toggle == "" {
			continue
		}
		if f.Type != Number {
			return fmt.Errorf("%s.%s: toggled field must be a number", cfg.Key, f.Name)
		}
		var toggle *Field
		for _, candidate := range cfg.PayloadFields() {
			if candidate.Name == f.Toggle {
				toggle = candidate
			}
		}
		if toggle == nil || toggle.Type != Checkbox {
			return fmt.Errorf("%s.%s: toggle %q is not a checkbox field", cfg.Key, f.Name, f.Toggle)
		}
	}
	for _, name := range cfg.SearchFields {
		if !seen[name] {
			return fmt.Errorf("%s: search field %q is not declared", cfg.Key, name)
		}
	}
	if cfg.StatusField != "" && !seen[cfg.StatusField] {
		return fmt.Errorf("%s: status field %q is not declared", cfg.Key, cfg.StatusField)
	}
	cfg.buildIndex()
	return nil
}

func (r *Registry) Get(key string) (*Config, error) {
	cfg, ok := r.byKey[key]
	if !ok {
		return nil, errors.Wrap(ErrUnknownJobType, key)
	}
	return cfg, nil
}

func (r *Registry) ByEndpoint(endpoint string) (*Config, error) {
	for _, key := range r.order {
		if r.byKey[key].APIEndpoint == endpoint {
			return r.byKey[key], nil
		}
	}
	return nil, errors.Wrap(ErrUnknownJobType, endpoint)
}

// All returns every config sorted by key.
func (r *Registry) All() []*Config {
	out := make([]*Config, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	return out
}

// Implemented returns the configs whose remote endpoints exist.
func (r *Registry) Implemented() []*Config {
	var out []*Config
	for _, cfg := range r.All() {
		if cfg.Implemented {
			out = append(out, cfg)
		}
	}
	return out
}
