package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arclot/internal/config"
)

// EnvOptions holds flags for the env command.
type EnvOptions struct {
	*RootOptions
	Export bool
}

// NewEnvCommand creates the env command.
func NewEnvCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EnvOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the environment a handler runtime starts with",
		Long: `Print the handler configuration of an arc as the environment variable
function runtimes read at cold start.

Example:
  arclot env -c arc.yaml
  eval "$(arclot env -c arc.yaml --export)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnv(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Export, "export", false, "print a shell export statement")

	return cmd
}

// EnvVar is one environment variable.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func runEnv(cmd *cobra.Command, opts *EnvOptions) error {
	f := opts.formatter(cmd)

	arc, err := loadArc(opts.RootOptions)
	if err != nil {
		return f.Fail(CodeConfig, "failed to load config", err)
	}
	name, value, err := config.ToEnv(arc.HandlerConfig())
	if err != nil {
		return f.Fail(CodeConfig, "failed to encode config", err)
	}

	if f.Format == "json" {
		return f.Success(EnvVar{Name: name, Value: value})
	}
	if opts.Export {
		return f.Success(fmt.Sprintf("export %s=%s", name, shellQuote(value)))
	}
	return f.Success(name + "=" + value)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
