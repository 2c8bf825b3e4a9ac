package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arclot/internal/config"
	"github.com/roach88/arclot/internal/handler"
	"github.com/roach88/arclot/internal/lot"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/notify"
)

// StartOptions holds flags for the start command.
type StartOptions struct {
	*RootOptions
	Lot   string
	Event string

	// IDs generates trigger ids (for testing). Defaults to UUIDv7Generator.
	IDs notify.IDGenerator
	// Clock resolves the current lot (for testing). Defaults to the system
	// clock.
	Clock lot.Clock
}

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StartOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start an arc lot",
		Long: `Run the start handler for one lot of an arc.

The lot moves to running unless it is already running or complete, in which
case nothing is written and the current state is reported. The printed
execution context lists the manifest path of every sink.

The trigger is read from --event (a JSON notify event, "-" for stdin) or
built from --lot. Without --lot the current lot of the arc interval is used.

Example:
  arclot start -c arc.yaml --lot 20230101T0005
  arclot start --event trigger.json --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Lot, "lot", "", "lot to start (defaults to the current lot)")
	cmd.Flags().StringVar(&opts.Event, "event", "", "read the trigger event from a JSON file")

	return cmd
}

func runStart(cmd *cobra.Command, opts *StartOptions) error {
	f := opts.formatter(cmd)

	cfg, err := loadHandlerConfig(opts.RootOptions)
	if err != nil {
		return f.Fail(CodeConfig, "failed to load config", err)
	}

	event, err := startEvent(cmd, opts, cfg)
	if err != nil {
		return f.Fail(CodeCommand, "failed to build trigger", err)
	}

	b, err := openBackend(cmd.Context(), opts.RootOptions)
	if err != nil {
		return f.Fail(CodeStore, "failed to open store", err)
	}
	defer b.close()

	h, err := handler.NewStart(cfg, b.objects)
	if err != nil {
		return f.Fail(CodeConfig, "invalid handler config", err)
	}

	slog.Debug("starting lot", "arc", cfg.Arc, "lot", event.LotID, "event", event.ID)
	exec, err := h.Handle(cmd.Context(), event)
	if err != nil {
		return f.Fail(CodeStore, "start failed", err)
	}
	return f.Success(execResult(exec))
}

func startEvent(cmd *cobra.Command, opts *StartOptions, cfg handler.Config) (model.ArcNotifyEvent, error) {
	var event model.ArcNotifyEvent
	if opts.Event != "" {
		err := readJSON(opts.Event, cmd.InOrStdin(), &event)
		return event, err
	}

	ids := opts.IDs
	if ids == nil {
		ids = notify.UUIDv7Generator{}
	}

	lotID := opts.Lot
	var dataset model.Dataset
	if opts.Config != "" {
		arc, err := config.LoadFile(opts.Config)
		if err != nil {
			return event, err
		}
		if lotID == "" {
			unit, err := arc.Unit()
			if err != nil {
				return event, err
			}
			p := lot.NewPartitioner(unit)
			p.Clock = opts.Clock
			lotID = p.Current()
		}
		if roles := sortedKeys(arc.Sources); len(roles) > 0 {
			dataset = arc.Sources[roles[0]].Source().Dataset
		}
	}
	if lotID == "" {
		return event, fmt.Errorf("--lot is required without --config")
	}
	return notify.Trigger(ids, lotID, dataset, cfg.Placement), nil
}

type execResult model.ArcExecContext

func (r execResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "lot %s: %s", r.ArcNotifyEvent.LotID, r.CurrentState)
	if r.PreviousState != "" && r.PreviousState != r.CurrentState {
		fmt.Fprintf(&b, " (was %s)", r.PreviousState)
	}
	for _, role := range sortedKeys(r.SinkManifestURIs) {
		fmt.Fprintf(&b, "\n  %s: %s", role, r.SinkManifestURIs[role])
	}
	return b.String()
}
