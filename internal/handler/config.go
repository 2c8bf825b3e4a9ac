// Package handler implements the start and complete entry points invoked
// once per arc lot.
//
// Handlers hold no state between invocations. Everything they know about a
// lot is read from the object store, and every transition goes through the
// arc state manager so concurrent invocations for the same lot are detected.
package handler

import (
	"sort"

	"github.com/roach88/arclot/internal/arcstate"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/objstore"
	"github.com/roach88/arclot/internal/uri"
)

// Config is the cold-start configuration of an arc's handlers. It reaches a
// function runtime as JSON in the HANDLER_CONFIG environment variable.
type Config struct {
	Placement     model.Placement              `json:"placement"`
	Project       model.Project                `json:"project"`
	Arc           string                       `json:"arc"`
	Role          string                       `json:"role"`
	ArcStore      string                       `json:"arcStore"`
	ManifestStore string                       `json:"manifestStore"`
	Sinks         map[string]model.SinkDataset `json:"sinks,omitempty"`
}

// ArcURI returns the path of the arc's state markers.
func (c Config) ArcURI() uri.ArcStateURI {
	return uri.NewArcStateURI(c.ArcStore, c.Project, c.Arc)
}

// SinkRoles returns the configured sink roles in order.
func (c Config) SinkRoles() []string {
	roles := make([]string, 0, len(c.Sinks))
	for role := range c.Sinks {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// ManifestPaths returns the manifest path of every sink role for lot.
func (c Config) ManifestPaths(lot string) map[string]string {
	paths := make(map[string]string, len(c.Sinks))
	for role, sink := range c.Sinks {
		paths[role] = uri.NewManifestURI(c.ManifestStore, sink.Dataset).WithLot(lot).String()
	}
	return paths
}

func (c Config) manager(store objstore.Store) (*arcstate.Manager, error) {
	return arcstate.NewManager(store, c.ArcURI())
}
