package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arclot/internal/model"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Lot string
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List published notifications",
		Long: `List the notifications recorded in the SQLite event log, oldest first.

The log is the sqlite backend itself or the file named by --events.

Example:
  arclot events --backend sqlite --root arclot.db --lot 20230101T0005`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Lot, "lot", "", "only events for this lot")

	return cmd
}

type eventList []model.ArcNotifyEvent

func (l eventList) String() string {
	if len(l) == 0 {
		return "no events"
	}
	lines := make([]string, len(l))
	for i, e := range l {
		lines[i] = fmt.Sprintf("%s %s %s %s", e.LotID, e.Role, e.Dataset, e.Manifest)
	}
	return strings.Join(lines, "\n")
}

func runEvents(cmd *cobra.Command, opts *EventsOptions) error {
	f := opts.formatter(cmd)

	b, err := openBackend(cmd.Context(), opts.RootOptions)
	if err != nil {
		return f.Fail(CodeStore, "failed to open store", err)
	}
	defer b.close()

	if b.events == nil {
		return f.Fail(CodeCommand, "no event log", errors.New("use --backend sqlite or --events"))
	}
	events, err := b.events.ReadEvents(cmd.Context(), opts.Lot)
	if err != nil {
		return f.Fail(CodeStore, "failed to read events", err)
	}
	return f.Success(eventList(events))
}
