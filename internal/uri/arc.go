package uri

import (
	"strings"

	"github.com/roach88/arclot/internal/arcerr"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/naming"
)

// ArcsKeyword is the family segment of arc state keys.
const ArcsKeyword = "arcs"

// ArcStateURI addresses arc state markers:
//
//	{store}/arcs/name={project}/version={version}/arc={arc}/lot={lot}/{state}.arc
type ArcStateURI struct {
	Store   string
	Project model.Project
	Arc     string
	Lot     string
	State   model.ArcState
}

// NewArcStateURI returns a path scoped to one arc.
func NewArcStateURI(store string, project model.Project, arc string) ArcStateURI {
	return ArcStateURI{Store: store, Project: project, Arc: arc}
}

// WithStore returns a copy of u with the store set.
func (u ArcStateURI) WithStore(store string) ArcStateURI {
	u.Store = store
	return u
}

// WithLot returns a copy of u with the lot set.
func (u ArcStateURI) WithLot(lot string) ArcStateURI {
	u.Lot = lot
	return u
}

// WithState returns a copy of u with the state set.
func (u ArcStateURI) WithState(state model.ArcState) ArcStateURI {
	u.State = state
	return u
}

// IsPath reports whether the state is unset.
func (u ArcStateURI) IsPath() bool {
	return u.State == ""
}

// IsIdentifier reports whether the state is set.
func (u ArcStateURI) IsIdentifier() bool {
	return !u.IsPath()
}

// ArcID renders the arc identity used in logs and errors, "project@version/arc".
func (u ArcStateURI) ArcID() string {
	return u.Project.String() + "/" + u.Arc
}

// URI renders the storage reference.
func (u ArcStateURI) URI() (Ref, error) {
	required := []struct{ field, value string }{
		{"store", u.Store},
		{"project", u.Project.Name},
		{"version", u.Project.Version},
		{"arc", u.Arc},
	}
	for _, r := range required {
		if r.value == "" {
			return Ref{}, arcerr.Inconsistent("arc state uri missing required field %q", r.field).
				ForArc(u.ArcID()).AtLot(u.Lot).With("template", u.Template())
		}
	}
	if u.IsIdentifier() {
		if !u.State.Valid() {
			return Ref{}, arcerr.Inconsistent("unknown arc state %q", u.State).
				ForArc(u.ArcID()).AtLot(u.Lot)
		}
		if u.Lot == "" {
			return Ref{}, arcerr.Precondition("arc state identifier requires a lot").
				ForArc(u.ArcID()).States("", string(u.State))
		}
	}
	return Ref{Store: u.Store, Key: u.partition(false).Path()}, nil
}

// Template renders the grammar with placeholders for unset fields.
func (u ArcStateURI) Template() string {
	return fill(u.Store, "store", true) + "/" + u.partition(true).Path()
}

// String renders the reference, or the template when u is incomplete.
func (u ArcStateURI) String() string {
	ref, err := u.URI()
	if err != nil {
		return u.Template()
	}
	return ref.String()
}

func (u ArcStateURI) partition(placeholders bool) naming.Partition {
	p := keyword(ArcsKeyword).
		With(naming.NamedKey("name", fill(u.Project.Name, "project", placeholders))).
		With(naming.NamedKey("version", fill(u.Project.Version, "version", placeholders))).
		With(naming.NamedKey("arc", fill(u.Arc, "arc", placeholders)))

	if placeholders {
		p = p.With(naming.NamedKey("lot", fill(u.Lot, "lot", true)))
		if u.IsPath() {
			return p.With(naming.PartitionOf(naming.Literal(placeholder("state")))).
				With(naming.PartitionLiteral(model.ArcMarkerSuffix))
		}
		return p.With(u.State.Segment())
	}

	p = p.With(namedIf("lot", u.Lot))
	if u.IsPath() {
		return p.With(naming.Sep)
	}
	return p.With(u.State.Segment())
}

// ParseArcStateURI parses an arc state reference or key. Unknown or
// placeholder segments leave the corresponding field absent.
func ParseArcStateURI(s string) ArcStateURI {
	store, segs := locate(split(s), ArcsKeyword)
	u := ArcStateURI{Store: store}

	for _, seg := range segs {
		if v, ok := value(seg, "name"); ok {
			u.Project.Name = v
			continue
		}
		if v, ok := value(seg, "version"); ok {
			u.Project.Version = v
			continue
		}
		if v, ok := value(seg, "arc"); ok {
			u.Arc = v
			continue
		}
		if v, ok := value(seg, "lot"); ok {
			u.Lot = v
			continue
		}
		if name, ok := strings.CutSuffix(seg, model.ArcMarkerSuffix); ok {
			if state, known := model.ParseArcState(name); known {
				u.State = state
			}
		}
	}
	return u
}
