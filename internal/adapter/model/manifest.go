// Package model loads trained model artifacts and their feature schemas.
//
// Each model ships as a JSON manifest naming its kind, output transform and
// ordered feature columns. The weights live in a kind-specific artifact file
// next to the manifest, or behind an HTTP endpoint for remote models.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/imyuanhui/COMP47360/internal/domain"
)

// Kind selects how a manifest's artifact is evaluated.
type Kind string

const (
	KindLinear       Kind = "linear"
	KindTreeEnsemble Kind = "tree_ensemble"
	KindRemote       Kind = "remote"
)

// Manifest is the on-disk model descriptor.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Kind        Kind     `json:"kind"`
	Transform   string   `json:"transform"`
	Features    []string `json:"features"`
	Categorical []string `json:"categorical,omitempty"`

	// Artifact is the weights file, relative to the manifest directory.
	Artifact string `json:"artifact,omitempty"`

	// Endpoint and Timeout apply to remote models.
	Endpoint string `json:"endpoint,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

// Artifact is a loaded, ready-to-call model with its schema.
type Artifact struct {
	domain.ModelArtifact
	Kind Kind
}

// LoadManifest reads a manifest and the artifact it points to.
func LoadManifest(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	a, err := Build(m, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return a, nil
}

// Build validates m and loads its artifact, resolving relative artifact
// paths against dir.
func Build(m Manifest, dir string) (*Artifact, error) {
	if m.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	transform, err := domain.ParseTransform(m.Transform)
	if err != nil {
		return nil, err
	}
	schema, err := domain.NewFeatureSchema(m.Version, m.Features, m.Categorical)
	if err != nil {
		return nil, err
	}

	a := &Artifact{
		ModelArtifact: domain.ModelArtifact{
			Name:      m.Name,
			Version:   m.Version,
			Transform: transform,
			Schema:    schema,
		},
		Kind: m.Kind,
	}

	switch m.Kind {
	case KindLinear:
		a.Model, err = LoadLinear(artifactPath(dir, m.Artifact), schema)
	case KindTreeEnsemble:
		a.Model, err = LoadTreeEnsemble(artifactPath(dir, m.Artifact), schema)
	case KindRemote:
		a.Model, err = remoteFromManifest(m, schema)
	default:
		err = fmt.Errorf("unknown model kind %q", m.Kind)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func artifactPath(dir, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func remoteFromManifest(m Manifest, schema domain.FeatureSchema) (*RemoteModel, error) {
	if m.Endpoint == "" {
		return nil, fmt.Errorf("remote model %s needs an endpoint", m.Name)
	}
	timeout := 5 * time.Second
	if m.Timeout != "" {
		d, err := time.ParseDuration(m.Timeout)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("remote model %s: invalid timeout %q", m.Name, m.Timeout)
		}
		timeout = d
	}
	return NewRemoteModel(m.Endpoint, m.Name, schema.Columns, timeout), nil
}
