package uri

import (
	"strings"

	"github.com/roach88/arclot/internal/arcerr"
	"github.com/roach88/arclot/internal/naming"
)

// Metadata kinds.
const (
	KindProject = "project"
	KindDataset = "dataset"
)

// MetadataURI addresses project and dataset descriptor documents:
//
//	{store}/{kind}/name={name}/version={version}/{kind}.json
//
// The version is the terminal field: without it the value is a path listing
// every version of a name.
type MetadataURI struct {
	Store   string
	Kind    string
	Name    string
	Version string
}

// NewMetadataURI returns a path for one named project or dataset.
func NewMetadataURI(store, kind, name string) MetadataURI {
	return MetadataURI{Store: store, Kind: kind, Name: name}
}

// WithStore returns a copy of u with the store set.
func (u MetadataURI) WithStore(store string) MetadataURI {
	u.Store = store
	return u
}

// WithVersion returns a copy of u with the version set.
func (u MetadataURI) WithVersion(version string) MetadataURI {
	u.Version = version
	return u
}

// IsPath reports whether the version is unset.
func (u MetadataURI) IsPath() bool {
	return u.Version == ""
}

// IsIdentifier reports whether the version is set.
func (u MetadataURI) IsIdentifier() bool {
	return !u.IsPath()
}

// URI renders the storage reference.
func (u MetadataURI) URI() (Ref, error) {
	required := []struct{ field, value string }{
		{"store", u.Store},
		{"kind", u.Kind},
		{"name", u.Name},
	}
	for _, r := range required {
		if r.value == "" {
			return Ref{}, arcerr.Inconsistent("metadata uri missing required field %q", r.field).
				With("template", u.Template())
		}
	}
	return Ref{Store: u.Store, Key: u.partition(false).Path()}, nil
}

// Template renders the grammar with placeholders for unset fields.
func (u MetadataURI) Template() string {
	return fill(u.Store, "store", true) + "/" + u.partition(true).Path()
}

// String renders the reference, or the template when u is incomplete.
func (u MetadataURI) String() string {
	ref, err := u.URI()
	if err != nil {
		return u.Template()
	}
	return ref.String()
}

func (u MetadataURI) partition(placeholders bool) naming.Partition {
	kind := fill(u.Kind, "kind", placeholders)
	p := keyword(kind).With(naming.NamedKey("name", fill(u.Name, "name", placeholders)))

	if !placeholders && u.IsPath() {
		return p.With(naming.Sep)
	}
	return p.With(naming.NamedKey("version", fill(u.Version, "version", placeholders))).
		With(naming.PartitionOf(naming.Literal(kind))).
		With(naming.PartitionLiteral(".json"))
}

// ParseMetadataURI parses a metadata reference or key. The kind is the
// segment preceding "name=", the store everything before the kind.
func ParseMetadataURI(s string) MetadataURI {
	segs := split(s)
	var u MetadataURI

	start := -1
	for i, seg := range segs {
		if strings.HasPrefix(seg, "name=") {
			start = i
			break
		}
	}
	if start < 0 {
		return u
	}
	if start > 0 {
		u.Kind = clean(segs[start-1])
		u.Store = clean(strings.Join(segs[:start-1], "/"))
	}

	for _, seg := range segs[start:] {
		if v, ok := value(seg, "name"); ok {
			u.Name = v
			continue
		}
		if v, ok := value(seg, "version"); ok {
			u.Version = v
		}
	}
	return u
}
