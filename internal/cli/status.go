package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/arclot/internal/arcstate"
	"github.com/roach88/arclot/internal/lot"
)

// StateAbsent reports a lot without a marker.
const StateAbsent = "absent"

// MaxDefaultLots bounds the range reported when --from is not given.
const MaxDefaultLots = 1000

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	From string
	To   string

	// Clock resolves the current lot (for testing).
	Clock lot.Clock
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report the state of every lot in a range",
		Long: `Report the state of every lot of an arc between two lots (inclusive).

The range defaults to the earliest lot with a marker through the current lot,
cut to the last 1000 lots. Lots without a marker are reported as absent and
counted as gaps. Lots with more than one marker are listed with all of them.
Markers whose lot id does not fit the interval are listed as stray.

Example:
  arclot status -c arc.yaml
  arclot status -c arc.yaml --from 20230101T0000 --to 20230101T0100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "first lot (defaults to the earliest marked lot)")
	cmd.Flags().StringVar(&opts.To, "to", "", "last lot (defaults to the current lot)")

	return cmd
}

// LotStatus is one row of a status report.
type LotStatus struct {
	Lot   string `json:"lot"`
	State string `json:"state"`
}

// StatusReport is the output of the status command.
type StatusReport struct {
	Arc       string         `json:"arc"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Truncated bool           `json:"truncated,omitempty"`
	Lots      []LotStatus    `json:"lots"`
	Counts    map[string]int `json:"counts"`
	Settled   int            `json:"settled"`
	Gaps      int            `json:"gaps"`
	Stray     []string       `json:"stray,omitempty"`
}

func runStatus(cmd *cobra.Command, opts *StatusOptions) error {
	f := opts.formatter(cmd)

	arc, err := loadArc(opts.RootOptions)
	if err != nil {
		return f.Fail(CodeConfig, "failed to load config", err)
	}
	unit, err := arc.Unit()
	if err != nil {
		return f.Fail(CodeConfig, "invalid interval", err)
	}

	b, err := openBackend(cmd.Context(), opts.RootOptions)
	if err != nil {
		return f.Fail(CodeStore, "failed to open store", err)
	}
	defer b.close()

	cfg := arc.HandlerConfig()
	manager, err := arcstate.NewManager(b.objects, cfg.ArcURI())
	if err != nil {
		return f.Fail(CodeConfig, "invalid arc", err)
	}
	marked, err := manager.Lots(cmd.Context())
	if err != nil {
		return f.Fail(CodeStore, "failed to list lots", err)
	}

	p := lot.NewPartitioner(unit)
	p.Clock = opts.Clock
	report, err := buildStatus(unit, marked, opts.From, opts.To, p.Current())
	if err != nil {
		return f.Fail(CodeCommand, "invalid lot range", err)
	}
	report.Arc = manager.Arc().ArcID()
	return f.Success(report)
}

func buildStatus(unit lot.IntervalUnit, marked []arcstate.LotState, from, to, current string) (StatusReport, error) {
	var report StatusReport
	byLot := make(map[string]arcstate.LotState, len(marked))
	for _, m := range marked {
		if _, err := unit.Parse(m.Lot); err != nil {
			report.Stray = append(report.Stray, m.Lot)
			continue
		}
		byLot[m.Lot] = m
	}

	if to == "" {
		to = current
	}
	if from == "" {
		end, err := unit.Parse(to)
		if err != nil {
			return StatusReport{}, err
		}
		from = to
		for _, m := range marked {
			if _, ok := byLot[m.Lot]; ok && m.Lot < from {
				from = m.Lot
				break
			}
		}
		if n, _ := unit.Gap(from, to); n >= MaxDefaultLots {
			from = unit.Lot(end.Add(-time.Duration(MaxDefaultLots-1) * unit.Width()))
			report.Truncated = true
		}
	}

	lots, err := unit.Range(from, to)
	if err != nil {
		return StatusReport{}, err
	}

	report.From = from
	report.To = to
	report.Lots = make([]LotStatus, 0, len(lots))
	report.Counts = make(map[string]int)
	for _, l := range lots {
		row := LotStatus{Lot: l, State: StateAbsent}
		m, ok := byLot[l]
		switch state, single := m.State(); {
		case !ok:
			report.Gaps++
		case single:
			row.State = string(state)
			if state.IsTerminal() {
				report.Settled++
			}
		default:
			states := make([]string, len(m.States))
			for i, s := range m.States {
				states[i] = string(s)
			}
			row.State = strings.Join(states, ",")
		}
		report.Counts[row.State]++
		report.Lots = append(report.Lots, row)
	}
	return report, nil
}

func (r StatusReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s..%s", r.Arc, r.From, r.To)
	if r.Truncated {
		b.WriteString(" (truncated)")
	}
	b.WriteString("\n")
	for _, row := range r.Lots {
		fmt.Fprintf(&b, "  %-14s %s\n", row.Lot, row.State)
	}
	parts := make([]string, 0, len(r.Counts))
	for _, state := range sortedKeys(r.Counts) {
		parts = append(parts, fmt.Sprintf("%s=%d", state, r.Counts[state]))
	}
	fmt.Fprintf(&b, "%d lots, %d settled, %d gaps (%s)", len(r.Lots), r.Settled, r.Gaps, strings.Join(parts, " "))
	if len(r.Stray) > 0 {
		fmt.Fprintf(&b, "\nstray: %s", strings.Join(r.Stray, ", "))
	}
	return b.String()
}
