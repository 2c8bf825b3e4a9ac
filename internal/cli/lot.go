package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/arclot/internal/lot"
)

// LotOptions holds flags for the lot commands.
type LotOptions struct {
	*RootOptions
	Interval string
	At       string

	// Clock resolves the current lot (for testing).
	Clock lot.Clock
}

// NewLotCommand creates the lot command and its subcommands.
func NewLotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lot",
		Short: "Compute lot ids",
		Long: `Compute lot ids for an interval unit.

The unit is --interval (a name such as twelfths or hours, or a duration such
as 10m) or the interval of the arc in --config.

Example:
  arclot lot current --interval hours
  arclot lot gap 20230101T0000 20230101T0300 -c arc.yaml
  arclot lot units`,
	}

	cmd.PersistentFlags().StringVar(&opts.Interval, "interval", "", "interval unit name or duration")

	current := &cobra.Command{
		Use:   "current",
		Short: "Print the lot containing now (or --at)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLot(cmd, opts, func(unit lot.IntervalUnit, p lot.Partitioner) (any, error) {
				if opts.At == "" {
					return p.Current(), nil
				}
				at, err := time.Parse(time.RFC3339, opts.At)
				if err != nil {
					return nil, fmt.Errorf("--at: %w", err)
				}
				return p.At(at), nil
			})
		},
	}
	current.Flags().StringVar(&opts.At, "at", "", "RFC 3339 instant instead of now")

	previous := &cobra.Command{
		Use:   "previous",
		Short: "Print the lot before the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLot(cmd, opts, func(unit lot.IntervalUnit, p lot.Partitioner) (any, error) {
				return p.Previous(), nil
			})
		},
	}

	next := &cobra.Command{
		Use:   "next <lot>",
		Short: "Print the lot after a lot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLot(cmd, opts, func(unit lot.IntervalUnit, _ lot.Partitioner) (any, error) {
				return unit.Next(args[0])
			})
		},
	}

	gap := &cobra.Command{
		Use:   "gap <from> <to>",
		Short: "Print the number of intervals between two lots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLot(cmd, opts, func(unit lot.IntervalUnit, _ lot.Partitioner) (any, error) {
				return unit.Gap(args[0], args[1])
			})
		},
	}

	rng := &cobra.Command{
		Use:   "range <from> <to>",
		Short: "Print every lot between two lots, inclusive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLot(cmd, opts, func(unit lot.IntervalUnit, _ lot.Partitioner) (any, error) {
				lots, err := unit.Range(args[0], args[1])
				return lotList(lots), err
			})
		},
	}

	units := &cobra.Command{
		Use:   "units",
		Short: "List the built-in interval units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list unitList
			for _, u := range lot.Units() {
				list = append(list, unitInfo{Name: u.Name(), Width: u.Width().String(), Layout: u.Layout()})
			}
			return opts.formatter(cmd).Success(list)
		},
	}

	cmd.AddCommand(current, previous, next, gap, rng, units)
	return cmd
}

func runLot(cmd *cobra.Command, opts *LotOptions, fn func(lot.IntervalUnit, lot.Partitioner) (any, error)) error {
	f := opts.formatter(cmd)

	unit, err := opts.unit()
	if err != nil {
		return f.Fail(CodeConfig, "no interval unit", err)
	}
	p := lot.NewPartitioner(unit)
	p.Clock = opts.Clock

	out, err := fn(unit, p)
	if err != nil {
		return f.Fail(CodeCommand, "lot computation failed", err)
	}
	return f.Success(out)
}

func (o *LotOptions) unit() (lot.IntervalUnit, error) {
	if o.Interval != "" {
		return lot.ParseUnit(o.Interval)
	}
	if o.Config == "" {
		return lot.IntervalUnit{}, errors.New("--interval or --config is required")
	}
	arc, err := loadArc(o.RootOptions)
	if err != nil {
		return lot.IntervalUnit{}, err
	}
	return arc.Unit()
}

type lotList []string

func (l lotList) String() string { return strings.Join(l, "\n") }

type unitInfo struct {
	Name   string `json:"name"`
	Width  string `json:"width"`
	Layout string `json:"layout"`
}

type unitList []unitInfo

func (l unitList) String() string {
	lines := make([]string, len(l))
	for i, u := range l {
		lines[i] = fmt.Sprintf("%-9s %-6s %s", u.Name, u.Width, u.Layout)
	}
	return strings.Join(lines, "\n")
}
