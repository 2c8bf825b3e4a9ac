package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arclot/internal/lot"
	"github.com/roach88/arclot/internal/manifest"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/uri"
)

// ManifestOptions holds flags for the manifest commands.
type ManifestOptions struct {
	*RootOptions
	Role    string
	Lot     string
	State   string
	URIs    []string
	URIType string
	Comment string

	// Clock stamps attempt ids (for testing).
	Clock lot.Clock
}

// NewManifestCommand creates the manifest command and its subcommands.
func NewManifestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ManifestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Write and read sink manifests",
		Long: `Write and read the manifests a workload reports its output with.

Example:
  arclot manifest write -c arc.yaml --role events --lot 20230101T0005 --state complete --uri s3://data/events/part-0
  arclot manifest show manifests/datasets/name=events/version=1/lot=20230101T0005/complete/manifest.json`,
	}

	write := &cobra.Command{
		Use:   "write",
		Short: "Write the manifest of a sink role for a lot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifestWrite(cmd, opts)
		},
	}
	write.Flags().StringVar(&opts.Role, "role", "", "sink role (required)")
	write.Flags().StringVar(&opts.Lot, "lot", "", "lot (required)")
	write.Flags().StringVar(&opts.State, "state", string(model.ManifestComplete), "manifest state")
	write.Flags().StringArrayVar(&opts.URIs, "uri", nil, "object URI (repeatable)")
	write.Flags().StringVar(&opts.URIType, "uri-type", string(model.URIIdentifier), "identifier|prefix")
	write.Flags().StringVar(&opts.Comment, "comment", "", "free-form comment")
	_ = write.MarkFlagRequired("role")
	_ = write.MarkFlagRequired("lot")

	show := &cobra.Command{
		Use:   "show <uri>",
		Short: "Print a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifestShow(cmd, opts, args[0])
		},
	}

	cmd.AddCommand(write, show)
	return cmd
}

func runManifestWrite(cmd *cobra.Command, opts *ManifestOptions) error {
	f := opts.formatter(cmd)

	cfg, err := loadHandlerConfig(opts.RootOptions)
	if err != nil {
		return f.Fail(CodeConfig, "failed to load config", err)
	}
	sink, ok := cfg.Sinks[opts.Role]
	if !ok {
		return f.Fail(CodeCommand, "unknown sink role", fmt.Errorf("%q not in %v", opts.Role, cfg.SinkRoles()))
	}
	state, ok := model.ParseManifestState(opts.State)
	if !ok {
		return f.Fail(CodeCommand, "unknown manifest state", fmt.Errorf("%q", opts.State))
	}
	uriType := model.URIType(opts.URIType)
	if uriType != model.URIIdentifier && uriType != model.URIPrefix {
		return f.Fail(CodeCommand, "unknown uri type", fmt.Errorf("%q", opts.URIType))
	}

	b, err := openBackend(cmd.Context(), opts.RootOptions)
	if err != nil {
		return f.Fail(CodeStore, "failed to open store", err)
	}
	defer b.close()

	docs := manifest.NewStore(b.objects)
	if opts.Clock != nil {
		docs.Clock = opts.Clock
	}
	target := uri.NewManifestURI(cfg.ManifestStore, sink.Dataset).WithLot(opts.Lot).WithState(state)
	written, err := docs.Write(cmd.Context(), target, model.Manifest{
		Comment: opts.Comment,
		URIType: uriType,
		Dataset: sink.Dataset,
		URIs:    opts.URIs,
	})
	if err != nil {
		return f.Fail(CodeStore, "failed to write manifest", err)
	}
	return f.Success(written.String())
}

func runManifestShow(cmd *cobra.Command, opts *ManifestOptions, raw string) error {
	f := opts.formatter(cmd)

	b, err := openBackend(cmd.Context(), opts.RootOptions)
	if err != nil {
		return f.Fail(CodeStore, "failed to open store", err)
	}
	defer b.close()

	m, err := manifest.NewStore(b.objects).Read(cmd.Context(), uri.ParseManifestURI(raw))
	if err != nil {
		return f.Fail(CodeStore, "failed to read manifest", err)
	}
	return f.Success(manifestView(m))
}

type manifestView model.Manifest

func (m manifestView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s lot %s: %s (%d %s URIs)", m.Dataset, m.LotID, m.State, len(m.URIs), m.URIType)
	if m.Comment != "" {
		fmt.Fprintf(&b, "\n  # %s", m.Comment)
	}
	for _, u := range m.URIs {
		fmt.Fprintf(&b, "\n  %s", u)
	}
	return b.String()
}
