package uri

import (
	"strconv"
	"time"

	"github.com/roach88/arclot/internal/arcerr"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/naming"
)

const (
	// DatasetsKeyword is the family segment of manifest keys.
	DatasetsKeyword = "datasets"

	// ManifestFile terminates every manifest identifier.
	ManifestFile = "manifest.json"
)

// ManifestURI addresses manifest documents:
//
//	{store}/datasets/name={dataset}/version={version}/lot={lot}/{state}[/attempt={attempt}]/manifest.json
type ManifestURI struct {
	Store   string
	Dataset string
	Version string
	Lot     string
	State   model.ManifestState
	Attempt string
}

// NewManifestURI returns a path scoped to one dataset.
func NewManifestURI(store string, dataset model.Dataset) ManifestURI {
	return ManifestURI{Store: store, Dataset: dataset.Name, Version: dataset.Version}
}

// WithStore returns a copy of u with the store set.
func (u ManifestURI) WithStore(store string) ManifestURI {
	u.Store = store
	return u
}

// WithLot returns a copy of u with the lot set.
func (u ManifestURI) WithLot(lot string) ManifestURI {
	u.Lot = lot
	return u
}

// WithState returns a copy of u with the state set. The attempt is left
// untouched; see EnsureAttempt.
func (u ManifestURI) WithState(state model.ManifestState) ManifestURI {
	u.State = state
	return u
}

// WithAttempt returns a copy of u with an explicit attempt id.
func (u ManifestURI) WithAttempt(attempt string) ManifestURI {
	u.Attempt = attempt
	return u
}

// EnsureAttempt returns u with an attempt id derived from now when the state
// supports attempts and no attempt is set yet. Explicit attempts are kept.
func (u ManifestURI) EnsureAttempt(now time.Time) ManifestURI {
	if u.Attempt != "" || !u.State.SupportsAttempts() {
		return u
	}
	u.Attempt = AttemptID(now)
	return u
}

// AttemptID formats an attempt id, milliseconds since the Unix epoch.
func AttemptID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// IsPath reports whether the state is unset.
func (u ManifestURI) IsPath() bool {
	return u.State == ""
}

// IsIdentifier reports whether the state is set.
func (u ManifestURI) IsIdentifier() bool {
	return !u.IsPath()
}

// DatasetID renders the dataset identity used in logs and errors.
func (u ManifestURI) DatasetID() string {
	return u.Dataset + "@" + u.Version
}

// URI renders the storage reference. An attempt-capable identifier without an
// attempt gets one from the wall clock; callers that need a stable reference
// use EnsureAttempt first.
func (u ManifestURI) URI() (Ref, error) {
	required := []struct{ field, value string }{
		{"store", u.Store},
		{"dataset", u.Dataset},
		{"version", u.Version},
	}
	for _, r := range required {
		if r.value == "" {
			return Ref{}, arcerr.Inconsistent("manifest uri missing required field %q", r.field).
				ForDataset(u.DatasetID()).AtLot(u.Lot).With("template", u.Template())
		}
	}
	if u.IsIdentifier() {
		if !u.State.Valid() {
			return Ref{}, arcerr.Inconsistent("unknown manifest state %q", u.State).
				ForDataset(u.DatasetID()).AtLot(u.Lot)
		}
		if u.Lot == "" {
			return Ref{}, arcerr.Precondition("manifest identifier requires a lot").
				ForDataset(u.DatasetID()).States("", string(u.State))
		}
		if u.Attempt != "" && !u.State.SupportsAttempts() {
			return Ref{}, arcerr.Precondition("manifest state %q does not support attempts", u.State).
				ForDataset(u.DatasetID()).AtLot(u.Lot).With("attempt", u.Attempt)
		}
		u = u.EnsureAttempt(time.Now())
	}
	return Ref{Store: u.Store, Key: u.partition(false).Path()}, nil
}

// Template renders the grammar with placeholders for unset fields.
func (u ManifestURI) Template() string {
	return fill(u.Store, "store", true) + "/" + u.partition(true).Path()
}

// String renders the reference, or the template when u is incomplete.
func (u ManifestURI) String() string {
	ref, err := u.URI()
	if err != nil {
		return u.Template()
	}
	return ref.String()
}

func (u ManifestURI) partition(placeholders bool) naming.Partition {
	p := keyword(DatasetsKeyword).
		With(naming.NamedKey("name", fill(u.Dataset, "dataset", placeholders))).
		With(naming.NamedKey("version", fill(u.Version, "version", placeholders)))

	if !placeholders {
		p = p.With(namedIf("lot", u.Lot))
		if u.IsPath() {
			return p.With(naming.Sep)
		}
		return p.With(u.State.Segment()).
			With(namedIf("attempt", u.Attempt)).
			WithLabel(naming.Literal(ManifestFile))
	}

	p = p.With(naming.NamedKey("lot", fill(u.Lot, "lot", true)))
	if u.IsPath() {
		p = p.With(naming.PartitionOf(naming.Literal(placeholder("state"))))
	} else {
		p = p.With(u.State.Segment())
	}
	if u.IsPath() || u.State.SupportsAttempts() {
		p = p.With(naming.NamedKey("attempt", fill(u.Attempt, "attempt", true)))
	}
	return p.WithLabel(naming.Literal(ManifestFile))
}

// ParseManifestURI parses a manifest reference or key. Unknown or placeholder
// segments leave the corresponding field absent.
func ParseManifestURI(s string) ManifestURI {
	store, segs := locate(split(s), DatasetsKeyword)
	u := ManifestURI{Store: store}

	for _, seg := range segs {
		if v, ok := value(seg, "name"); ok {
			u.Dataset = v
			continue
		}
		if v, ok := value(seg, "version"); ok {
			u.Version = v
			continue
		}
		if v, ok := value(seg, "lot"); ok {
			u.Lot = v
			continue
		}
		if v, ok := value(seg, "attempt"); ok {
			u.Attempt = v
			continue
		}
		if state, known := model.ParseManifestState(seg); known {
			u.State = state
		}
	}
	return u
}
