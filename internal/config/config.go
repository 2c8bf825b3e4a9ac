// Package config loads and validates arc configuration and bridges it to
// function runtimes through environment variables.
//
// Configuration is YAML on disk, checked against an embedded CUE schema. A
// function runtime receives its slice of the configuration as one JSON
// valued environment variable named after the consuming type.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/arclot/internal/handler"
	"github.com/roach88/arclot/internal/lot"
	"github.com/roach88/arclot/internal/model"
)

// Store purposes used to derive bucket names from the placement.
const (
	PurposeArcs      = "arcs"
	PurposeManifests = "manifests"
	PurposeMetadata  = "metadata"
)

// Arc is the configuration of one arc.
type Arc struct {
	Placement model.Placement          `yaml:"placement" json:"placement"`
	Project   model.Project            `yaml:"project" json:"project"`
	Name      string                   `yaml:"name" json:"name"`
	Role      string                   `yaml:"role,omitempty" json:"role,omitempty"`
	Interval  string                   `yaml:"interval" json:"interval"`
	Boundary  bool                     `yaml:"boundary,omitempty" json:"boundary,omitempty"`
	Stores    Stores                   `yaml:"stores,omitempty" json:"stores,omitempty"`
	Sources   map[string]DatasetConfig `yaml:"sources,omitempty" json:"sources,omitempty"`
	Sinks     map[string]DatasetConfig `yaml:"sinks" json:"sinks"`
}

// Stores overrides derived store names.
type Stores struct {
	Arcs      string `yaml:"arcs,omitempty" json:"arcs,omitempty"`
	Manifests string `yaml:"manifests,omitempty" json:"manifests,omitempty"`
	Metadata  string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// DatasetConfig declares a dataset. Publish and Subscribe default by role:
// sinks publish and sources subscribe unless set to false.
type DatasetConfig struct {
	Name      string `yaml:"name" json:"name"`
	Version   string `yaml:"version" json:"version"`
	PathURI   string `yaml:"pathURI,omitempty" json:"pathURI,omitempty"`
	Publish   *bool  `yaml:"publish,omitempty" json:"publish,omitempty"`
	Subscribe *bool  `yaml:"subscribe,omitempty" json:"subscribe,omitempty"`
}

func (d DatasetConfig) dataset() model.Dataset {
	return model.Dataset{Name: d.Name, Version: d.Version, PathURI: d.PathURI}
}

// Sink returns the sink dataset, publishing unless disabled.
func (d DatasetConfig) Sink() model.SinkDataset {
	s := model.NewSinkDataset(d.dataset())
	if d.Publish != nil {
		s.Publish = *d.Publish
	}
	return s
}

// Source returns the source dataset, subscribing unless disabled.
func (d DatasetConfig) Source() model.SourceDataset {
	s := model.NewSourceDataset(d.dataset())
	if d.Subscribe != nil {
		s.Subscribe = *d.Subscribe
	}
	return s
}

// LoadFile reads, parses and validates an arc configuration file.
func LoadFile(path string) (*Arc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	arc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return arc, nil
}

// Parse decodes and validates YAML configuration. Unknown fields are
// rejected.
func Parse(data []byte) (*Arc, error) {
	var arc Arc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&arc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parse config: empty document")
		}
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := Validate(&arc); err != nil {
		return nil, err
	}
	return &arc, nil
}

// Unit resolves the configured interval.
func (a *Arc) Unit() (lot.IntervalUnit, error) {
	return lot.ParseUnit(a.Interval)
}

// ArcStore returns the arc state store name.
func (a *Arc) ArcStore() string {
	return a.storeName(a.Stores.Arcs, PurposeArcs)
}

// ManifestStore returns the manifest store name.
func (a *Arc) ManifestStore() string {
	return a.storeName(a.Stores.Manifests, PurposeManifests)
}

// MetadataStore returns the metadata store name.
func (a *Arc) MetadataStore() string {
	return a.storeName(a.Stores.Metadata, PurposeMetadata)
}

func (a *Arc) storeName(override, purpose string) string {
	if override != "" {
		return override
	}
	return a.Placement.StoreName(purpose)
}

// HandlerConfig returns the configuration the arc's handlers run with. The
// role defaults to the arc name.
func (a *Arc) HandlerConfig() handler.Config {
	role := a.Role
	if role == "" {
		role = a.Name
	}
	sinks := make(map[string]model.SinkDataset, len(a.Sinks))
	for r, d := range a.Sinks {
		sinks[r] = d.Sink()
	}
	return handler.Config{
		Placement:     a.Placement,
		Project:       a.Project,
		Arc:           a.Name,
		Role:          role,
		ArcStore:      a.ArcStore(),
		ManifestStore: a.ManifestStore(),
		Sinks:         sinks,
	}
}
