package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arclot/internal/handler"
	"github.com/roach88/arclot/internal/manifest"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/notify"
	"github.com/roach88/arclot/internal/objstore"
	"github.com/roach88/arclot/internal/uri"
)

// CompleteOptions holds flags for the complete command.
type CompleteOptions struct {
	*RootOptions
	Lot       string
	Input     string
	State     string
	Manifests []string
	Errors    []string
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Complete a running arc lot",
		Long: `Run the complete handler for one lot of an arc.

The manifests of every sink decide the next state: complete, partial or
missing. Complete lots notify downstream arcs once per published sink.

The state context is read from --input (JSON, "-" for stdin) or built from
flags. Sinks without a --manifest are looked up in the manifest store,
latest attempt first. An --error leaves the lot missing unless manifests were
written, in which case the manifests decide.

Example:
  arclot complete -c arc.yaml --lot 20230101T0005
  arclot complete -c arc.yaml --lot 20230101T0005 --error events="timeout"
  arclot complete --input state.json --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Lot, "lot", "", "lot to complete (required without --input)")
	cmd.Flags().StringVar(&opts.Input, "input", "", "read the state context from a JSON file")
	cmd.Flags().StringVar(&opts.State, "state", "", "state the lot is expected in (default running)")
	cmd.Flags().StringArrayVar(&opts.Manifests, "manifest", nil, "role=uri of a written manifest (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Errors, "error", nil, "role=message of a workload error (repeatable)")

	return cmd
}

func runComplete(cmd *cobra.Command, opts *CompleteOptions) error {
	f := opts.formatter(cmd)

	cfg, err := loadHandlerConfig(opts.RootOptions)
	if err != nil {
		return f.Fail(CodeConfig, "failed to load config", err)
	}

	b, err := openBackend(cmd.Context(), opts.RootOptions)
	if err != nil {
		return f.Fail(CodeStore, "failed to open store", err)
	}
	defer b.close()

	in, err := completeInput(cmd, opts, cfg, b.objects)
	if err != nil {
		return f.Fail(CodeCommand, "failed to build state context", err)
	}

	var published []model.ArcNotifyEvent
	publisher := notify.PublisherFunc(func(ctx context.Context, event model.ArcNotifyEvent) error {
		if err := b.publisher.Publish(ctx, event); err != nil {
			return err
		}
		published = append(published, event)
		return nil
	})

	h, err := handler.NewComplete(cfg, b.objects, publisher)
	if err != nil {
		return f.Fail(CodeConfig, "invalid handler config", err)
	}

	slog.Debug("completing lot", "arc", cfg.Arc, "lot", in.LotID(), "manifests", len(in.SinkManifestURIs))
	out, err := h.Handle(cmd.Context(), in)
	if err != nil {
		return f.Fail(CodeStore, "complete failed", err)
	}
	return f.Success(completeResult{State: out, Published: published})
}

func completeInput(cmd *cobra.Command, opts *CompleteOptions, cfg handler.Config, objects objstore.Store) (model.ArcStateContext, error) {
	var in model.ArcStateContext
	if opts.Input != "" {
		err := readJSON(opts.Input, cmd.InOrStdin(), &in)
		return in, err
	}
	if opts.Lot == "" {
		return in, fmt.Errorf("--lot is required without --input")
	}

	manifests, err := parsePairs("manifest", opts.Manifests)
	if err != nil {
		return in, err
	}
	errs, err := parsePairs("error", opts.Errors)
	if err != nil {
		return in, err
	}
	if state := model.ArcState(opts.State); state != "" && !state.Valid() {
		return in, fmt.Errorf("--state %q is not an arc state", opts.State)
	}

	if manifests == nil {
		manifests = make(map[string]string)
	}
	if err := findManifests(cmd.Context(), objects, cfg, opts.Lot, manifests); err != nil {
		return in, err
	}

	return model.ArcStateContext{
		CurrentState:     model.ArcState(opts.State),
		Role:             cfg.Role,
		ArcNotifyEvent:   model.ArcNotifyEvent{LotID: opts.Lot, Placement: cfg.Placement},
		SinkManifestURIs: manifests,
		WorkloadErrors:   errs,
	}, nil
}

// findManifests fills in the current manifest of every sink role not
// already given.
func findManifests(ctx context.Context, objects objstore.Store, cfg handler.Config, lotID string, into map[string]string) error {
	docs := manifest.NewStore(objects)
	paths := cfg.ManifestPaths(lotID)
	for _, role := range sortedKeys(paths) {
		if _, ok := into[role]; ok {
			continue
		}
		current, found, err := docs.Find(ctx, uri.ParseManifestURI(paths[role]))
		if err != nil {
			return fmt.Errorf("find manifest for %s: %w", role, err)
		}
		if !found {
			slog.Debug("no manifest written", "role", role, "lot", lotID)
			continue
		}
		into[role] = current.String()
	}
	return nil
}

type completeResult struct {
	State     model.ArcStateContext  `json:"state"`
	Published []model.ArcNotifyEvent `json:"published,omitempty"`
}

func (r completeResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "lot %s: %s", r.State.LotID(), r.State.CurrentState)
	if r.State.PreviousState != "" {
		fmt.Fprintf(&b, " (was %s)", r.State.PreviousState)
	}
	for _, event := range r.Published {
		fmt.Fprintf(&b, "\n  notified %s: %s", event.Role, event.Dataset)
	}
	return b.String()
}
