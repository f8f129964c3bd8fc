package department

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Defaults is the department set used when no config file is given.
// Complaint categories and departments share this enumeration.
var Defaults = []Info{
	{Name: "Canteen", Description: "Food services and canteen facilities"},
	{Name: "Academic", Description: "Academic affairs, courses and examinations"},
	{Name: "Maintenance", Description: "Campus infrastructure and repairs"},
	{Name: "Auditorium", Description: "Auditorium bookings and events"},
	{Name: "Administration", Description: "Administrative services and records"},
	{Name: "Sports", Description: "Sports facilities and activities"},
	{Name: "Others", Description: "Complaints outside the listed departments"},
}

type Info struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Email       string `json:"email" yaml:"email"`
}

type File struct {
	Departments []Info `json:"departments" yaml:"departments"`
}

type Registry struct {
	mu          sync.RWMutex
	departments map[string]*Info
}

func NewRegistry(infos ...Info) *Registry {
	r := &Registry{departments: make(map[string]*Info)}
	for i := range infos {
		r.Register(infos[i])
	}
	return r
}

// Default returns a registry holding Defaults.
func Default() *Registry {
	return NewRegistry(Defaults...)
}

// Load reads a department file, or returns Default when path is empty.
// Files ending in .yaml or .yml are parsed as YAML, anything else as JSON.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read departments config: %w", err)
	}

	var file File
	if err := Decode(path, data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse departments config: %w", err)
	}
	if len(file.Departments) == 0 {
		return nil, fmt.Errorf("departments config %s lists no departments", path)
	}

	return NewRegistry(file.Departments...), nil
}

// Decode unmarshals data into v, choosing the format from path's extension.
func Decode(path string, data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return json.Unmarshal(data, v)
	}
}

func (r *Registry) Register(info Info) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.departments[info.Name] = &info
}

func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.departments[name]
	return ok
}

func (r *Registry) Get(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.departments[name]
	if !ok {
		return Info{}, false
	}
	return *info, true
}

// All returns the departments sorted by name.
func (r *Registry) All() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Info, 0, len(r.departments))
	for _, info := range r.departments {
		result = append(result, *info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, info := range all {
		names[i] = info.Name
	}
	return names
}
