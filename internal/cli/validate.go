package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hszqf/SCP-sub000/internal/protocol"
	"github.com/hszqf/SCP-sub000/internal/sim/catalogs"
)

type ValidateResult struct {
	Valid      bool                 `json:"valid"`
	Summary    *catalogs.Summary    `json:"summary,omitempty"`
	Violations []catalogs.Violation `json:"violations,omitempty"`
	Lint       []catalogs.Violation `json:"lint,omitempty"`
}

func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <content>",
		Short: "Load a content document and report violations",
		Long: `Load a content document (file, .zst file or http(s) URL) the way the
server does and report primary key violations. Lint findings are printed
as warnings; --strict turns them into failures.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0], strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on lint findings")
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command, src string, strict bool) error {
	f := opts.formatter(cmd)
	reg, _, err := opts.loadRegistry(cmd.Context(), cmd, src)
	if err != nil {
		var ve *catalogs.ValidationError
		switch {
		case errors.As(err, &ve):
			res := ValidateResult{Valid: false, Violations: ve.Violations}
			if f.JSON() {
				_ = f.Success(res, nil)
			} else {
				fmt.Fprintf(f.Writer, "%s %s: %d violation(s)\n", fail("FAIL"), src, len(ve.Violations))
				for _, v := range ve.Violations {
					fmt.Fprintf(f.Writer, "  - %s\n", v)
				}
			}
			return NewExitError(ExitFailure, "validation failed")
		case GetExitCode(err) == ExitCommandError:
			_ = f.Error(protocol.ErrBadRequest, err.Error(), nil)
			return err
		default:
			_ = f.Error(protocol.ErrContentInvalid, err.Error(), nil)
			return WrapExitError(ExitFailure, "content invalid", err)
		}
	}

	sum := reg.Summary()
	lint := catalogs.Lint(reg)
	res := ValidateResult{Valid: !(strict && len(lint) > 0), Summary: &sum, Lint: lint}
	_ = f.Success(res, func(w io.Writer) {
		status := pass("PASS")
		if !res.Valid {
			status = fail("FAIL")
		} else if len(lint) > 0 {
			status = warn("PASS")
		}
		fmt.Fprintf(w, "%s %s (schema=%s data=%s events=%d effects=%d ops=%d)\n",
			status, src, sum.SchemaVersion, sum.DataVersion, sum.Events, sum.Effects, sum.Operations)
		for _, v := range lint {
			fmt.Fprintf(w, "  %s %s\n", warn("lint"), v)
		}
	})
	if !res.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d lint finding(s)", len(lint)))
	}
	return nil
}
