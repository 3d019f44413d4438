package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hszqf/SCP-sub000/internal/persistence/gamedata"
	"github.com/hszqf/SCP-sub000/internal/sim/catalogs"
	"github.com/hszqf/SCP-sub000/internal/sim/tuning"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Tuning  string
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "scp-admin",
		Short: "Content and effect tooling",
		Long:  "Validate, inspect and pack content documents, apply effects to state files and talk to a running server.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "print loader diagnostics to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Tuning, "tuning", "", "tuning yaml supplying balance fallbacks (optional)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewPackCommand(opts))
	cmd.AddCommand(NewReloadCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewDBCommand(opts))
	cmd.AddCommand(NewArchivesCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

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

// logger sends loader diagnostics to stderr in verbose mode and drops them
// otherwise.
func (o *RootOptions) logger(cmd *cobra.Command) *log.Logger {
	if o.Verbose {
		return log.New(cmd.ErrOrStderr(), "", 0)
	}
	return log.New(io.Discard, "", 0)
}

// loadRegistry opens src and builds a registry from it.
func (o *RootOptions) loadRegistry(ctx context.Context, cmd *cobra.Command, src string) (*catalogs.Registry, []byte, error) {
	raw, err := gamedata.Open(ctx, src)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open content", err)
	}
	opts := catalogs.Options{Logger: o.logger(cmd)}
	if o.Tuning != "" {
		tu, err := tuning.Load(o.Tuning)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "load tuning", err)
		}
		opts.Tuning = &tu
	}
	reg, err := catalogs.Load(raw, opts)
	if err != nil {
		return nil, raw, err
	}
	return reg, raw, nil
}
