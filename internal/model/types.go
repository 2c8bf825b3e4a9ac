// Package model holds the value types shared by every arclot component:
// deployment coordinates, datasets, manifests, the two state enumerations
// and the payloads exchanged with external triggers.
package model

import (
	"fmt"

	"github.com/roach88/arclot/internal/naming"
)

// Placement is the deployment coordinate a resource is realized under.
// It is supplied by the environment and never constructed by the core.
type Placement struct {
	Provider string `json:"provider" yaml:"provider"`
	Stage    string `json:"stage,omitempty" yaml:"stage,omitempty"`
	Account  string `json:"account" yaml:"account"`
	Region   string `json:"region" yaml:"region"`
}

// StoreName derives the bucket name for a store purpose, e.g.
// "dev-arclot-manifest-123456789012-us-east-1". An empty stage is omitted.
func (p Placement) StoreName(purpose string) string {
	return naming.Of(p.Stage).UpperOnly().
		With(naming.Of("arclot")).
		With(naming.Of(purpose)).
		With(naming.Literal(p.Account)).
		With(naming.Literal(p.Region)).
		LowerHyphen()
}

// Project identifies an owning deployable unit.
type Project struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// String renders "name@version".
func (p Project) String() string {
	return fmt.Sprintf("%s@%s", p.Name, p.Version)
}

// Dataset identifies a named, versioned data location.
type Dataset struct {
	Name      string `json:"name" yaml:"name"`
	Version   string `json:"version" yaml:"version"`
	PathURI   string `json:"pathURI,omitempty" yaml:"pathURI,omitempty"`
	Publish   bool   `json:"publish,omitempty" yaml:"publish,omitempty"`
	Subscribe bool   `json:"subscribe,omitempty" yaml:"subscribe,omitempty"`
}

// String renders "name@version".
func (d Dataset) String() string {
	return fmt.Sprintf("%s@%s", d.Name, d.Version)
}

// SourceDataset is a dataset an arc consumes. Sources are subscribed by
// default so that completion of an upstream lot can trigger this arc.
type SourceDataset struct {
	Dataset `yaml:",inline"`
}

// NewSourceDataset returns a subscribing source for d.
func NewSourceDataset(d Dataset) SourceDataset {
	d.Subscribe = true
	return SourceDataset{Dataset: d}
}

// SinkDataset is a dataset an arc produces. Sinks are published by default so
// downstream arcs are notified once a lot completes.
type SinkDataset struct {
	Dataset `yaml:",inline"`
}

// NewSinkDataset returns a publishing sink for d.
func NewSinkDataset(d Dataset) SinkDataset {
	d.Publish = true
	return SinkDataset{Dataset: d}
}

// URIType describes how the URIs in a manifest address data.
type URIType string

const (
	// URIIdentifier means every URI names a single object.
	URIIdentifier URIType = "identifier"
	// URIPrefix means every URI names a prefix holding many objects.
	URIPrefix URIType = "prefix"
)

// Manifest is the list of object URIs a workload produced for one dataset in
// one lot. Manifests are immutable once written.
type Manifest struct {
	State   ManifestState `json:"state"`
	Comment string        `json:"comment,omitempty"`
	LotID   string        `json:"lotId"`
	URIType URIType       `json:"uriType"`
	Dataset Dataset       `json:"dataset"`
	URIs    []string      `json:"uris"`
}
