package model

import (
	"fmt"
	"sort"

	"github.com/imyuanhui/COMP47360/internal/domain"
)

// Registry holds loaded artifacts by name. It is immutable after construction.
type Registry struct {
	byName      map[string]*Artifact
	defaultName string
}

// Info describes a loaded model for listing.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Kind      Kind   `json:"kind"`
	Transform string `json:"transform"`
	Features  int    `json:"features"`
	Default   bool   `json:"default"`
}

// NewRegistry indexes artifacts. defaultName must be one of them.
func NewRegistry(artifacts []*Artifact, defaultName string) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Artifact, len(artifacts)), defaultName: defaultName}
	for _, a := range artifacts {
		if _, dup := r.byName[a.Name]; dup {
			return nil, fmt.Errorf("duplicate model name %q", a.Name)
		}
		r.byName[a.Name] = a
	}
	if _, ok := r.byName[defaultName]; !ok {
		return nil, fmt.Errorf("default model %q is not loaded", defaultName)
	}
	return r, nil
}

// LoadRegistry loads every manifest path.
func LoadRegistry(paths []string, defaultName string) (*Registry, error) {
	artifacts := make([]*Artifact, 0, len(paths))
	for _, p := range paths {
		a, err := LoadManifest(p)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return NewRegistry(artifacts, defaultName)
}

// Get returns the named artifact; an empty name selects the default.
func (r *Registry) Get(name string) (*Artifact, error) {
	if name == "" {
		name = r.defaultName
	}
	a, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownModel, name)
	}
	return a, nil
}

// Resolve implements pipeline.ModelCatalog.
func (r *Registry) Resolve(name string) (domain.ModelArtifact, error) {
	a, err := r.Get(name)
	if err != nil {
		return domain.ModelArtifact{}, err
	}
	return a.ModelArtifact, nil
}

// List returns model descriptions sorted by name.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.byName))
	for _, a := range r.byName {
		out = append(out, Info{
			Name:      a.Name,
			Version:   a.Version,
			Kind:      a.Kind,
			Transform: string(a.Transform),
			Features:  a.Schema.Len(),
			Default:   a.Name == r.defaultName,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
