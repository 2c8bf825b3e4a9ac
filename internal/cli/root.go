// Package cli implements the arclot operator commands.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Backend string // "dir" | "sqlite" | "gcs"
	Root    string // directory for dir, database file for sqlite
	Events  string // optional SQLite event log for dir and gcs backends
	Config  string // arc configuration file
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidBackends defines the allowed object store backends.
var ValidBackends = []string{BackendDir, BackendSQLite, BackendGCS}

// NewRootCommand creates the root command for the arclot CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "arclot",
		Short: "arclot - lot-indexed arc state over object storage",
		Long: `Drive arcs through their lot lifecycle.

An arc is a recurring unit of work. Each lot (a fixed-width time interval)
of an arc moves through running, partial, missing and complete, recorded as
a single marker object in the arc store. Completion aggregates the manifests
the workload wrote and notifies downstream arcs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if !slices.Contains(ValidBackends, opts.Backend) {
				return fmt.Errorf("invalid backend %q: must be one of %v", opts.Backend, ValidBackends)
			}

			logLevel := slog.LevelInfo
			if opts.Verbose {
				logLevel = slog.LevelDebug
			}
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: logLevel,
			})
			slog.SetDefault(slog.New(handler))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Backend, "backend", BackendDir, "object store backend (dir|sqlite|gcs)")
	flags.StringVar(&opts.Root, "root", "", "store root: directory for dir, database file for sqlite")
	flags.StringVar(&opts.Events, "events", "", "SQLite file recording published notifications (dir and gcs backends)")
	flags.StringVarP(&opts.Config, "config", "c", "", "arc configuration file (YAML)")

	cmd.AddCommand(NewStartCommand(opts))
	cmd.AddCommand(NewCompleteCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewManifestCommand(opts))
	cmd.AddCommand(NewLotCommand(opts))
	cmd.AddCommand(NewURICommand(opts))
	cmd.AddCommand(NewEnvCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
