package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arclot/internal/config"
	"github.com/roach88/arclot/internal/uri"
)

// URI families accepted by the uri commands.
const (
	FamilyArc      = "arc"
	FamilyManifest = "manifest"
	FamilyMetadata = "metadata"
)

// NewURICommand creates the uri command and its subcommands.
func NewURICommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uri",
		Short: "Render and parse state URIs",
		Long: `Render URI templates and parse state URIs into their fields.

With --config the arc template carries the arc's store, project and name,
and the manifest and metadata templates carry their store.

Example:
  arclot uri template manifest
  arclot uri template metadata -c arc.yaml
  arclot uri parse bucket/arcs/name=orders/version=1/arc=ingest/lot=20230101T0005/running.arc`,
	}

	template := &cobra.Command{
		Use:       "template <arc|manifest|metadata>",
		Short:     "Print the template of a URI family",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{FamilyArc, FamilyManifest, FamilyMetadata},
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			var arc *config.Arc
			if rootOpts.Config != "" {
				a, err := loadArc(rootOpts)
				if err != nil {
					return f.Fail(CodeConfig, "failed to load config", err)
				}
				arc = a
			}
			t, err := templateFor(args[0], arc)
			if err != nil {
				return f.Fail(CodeCommand, "unknown URI family", err)
			}
			return f.Success(t)
		},
	}

	parse := &cobra.Command{
		Use:   "parse <uri>",
		Short: "Parse a state URI into its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			parsed, err := parseURI(args[0])
			if err != nil {
				return f.Fail(CodeCommand, "cannot parse URI", err)
			}
			return f.Success(parsed)
		},
	}

	cmd.AddCommand(template, parse)
	return cmd
}

// templateFor renders the template of a family, filled from arc when set.
func templateFor(family string, arc *config.Arc) (string, error) {
	switch family {
	case FamilyArc:
		u := uri.ArcStateURI{}
		if arc != nil {
			u = uri.NewArcStateURI(arc.ArcStore(), arc.Project, arc.Name)
		}
		return u.Template(), nil
	case FamilyManifest:
		u := uri.ManifestURI{}
		if arc != nil {
			u.Store = arc.ManifestStore()
		}
		return u.Template(), nil
	case FamilyMetadata:
		u := uri.MetadataURI{}
		if arc != nil {
			u.Store = arc.MetadataStore()
		}
		return u.Template(), nil
	}
	return "", fmt.Errorf("%q", family)
}

// ParsedURI is the output of uri parse.
type ParsedURI struct {
	Family     string            `json:"family"`
	Identifier bool              `json:"identifier"`
	Fields     map[string]string `json:"fields"`
}

func (p ParsedURI) String() string {
	kind := "path"
	if p.Identifier {
		kind = "identifier"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", p.Family, kind)
	for _, k := range sortedKeys(p.Fields) {
		fmt.Fprintf(&b, "\n  %s: %s", k, p.Fields[k])
	}
	return b.String()
}

// parseURI picks the family from the keyword segment of s.
func parseURI(s string) (ParsedURI, error) {
	segs := strings.Split(strings.Trim(s, "/"), "/")
	for _, seg := range segs {
		switch seg {
		case uri.ArcsKeyword:
			u := uri.ParseArcStateURI(s)
			return ParsedURI{Family: FamilyArc, Identifier: u.IsIdentifier(), Fields: nonEmpty(map[string]string{
				"store":   u.Store,
				"project": u.Project.Name,
				"version": u.Project.Version,
				"arc":     u.Arc,
				"lot":     u.Lot,
				"state":   string(u.State),
			})}, nil
		case uri.DatasetsKeyword:
			u := uri.ParseManifestURI(s)
			return ParsedURI{Family: FamilyManifest, Identifier: u.IsIdentifier(), Fields: nonEmpty(map[string]string{
				"store":   u.Store,
				"dataset": u.Dataset,
				"version": u.Version,
				"lot":     u.Lot,
				"state":   string(u.State),
				"attempt": u.Attempt,
			})}, nil
		case uri.KindProject, uri.KindDataset:
			u := uri.ParseMetadataURI(s)
			return ParsedURI{Family: FamilyMetadata, Identifier: u.IsIdentifier(), Fields: nonEmpty(map[string]string{
				"store":   u.Store,
				"kind":    u.Kind,
				"name":    u.Name,
				"version": u.Version,
			})}, nil
		}
	}
	return ParsedURI{}, fmt.Errorf("%q has no %s, %s or metadata keyword", s, uri.ArcsKeyword, uri.DatasetsKeyword)
}

func nonEmpty(fields map[string]string) map[string]string {
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}
	return fields
}
