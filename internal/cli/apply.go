package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hszqf/SCP-sub000/internal/persistence/snapshot"
	"github.com/hszqf/SCP-sub000/internal/protocol"
	"github.com/hszqf/SCP-sub000/internal/sim/catalogs"
	"github.com/hszqf/SCP-sub000/internal/sim/effects"
	"github.com/hszqf/SCP-sub000/internal/sim/state"
)

type applyFlags struct {
	effectID string
	state    string
	out      string
	nodeID   string
	taskID   string
	eventID  string
	optionID string
	scopes   []string
}

type ApplyResult struct {
	EffectID  string             `json:"effect_id"`
	Applied   int                `json:"applied"`
	Mutations []effects.Mutation `json:"mutations"`
	Out       string             `json:"out,omitempty"`
	State     *state.Game        `json:"state,omitempty"`
}

func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	fl := &applyFlags{}
	cmd := &cobra.Command{
		Use:   "apply <content>",
		Short: "Apply one effect to a state file",
		Long: `Apply one effect to a game state read from --state (JSON, or zstd when
the name ends in .zst). Without --state the state is seeded from the
content's node definitions. The result is written to --out when set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(rootOpts, cmd, args[0], fl)
		},
	}
	cmd.Flags().StringVar(&fl.effectID, "effect", "", "effect id (required)")
	cmd.Flags().StringVar(&fl.state, "state", "", "state file")
	cmd.Flags().StringVar(&fl.out, "out", "", "write the mutated state here")
	cmd.Flags().StringVar(&fl.nodeID, "node", "", "context node id")
	cmd.Flags().StringVar(&fl.taskID, "task", "", "origin task id")
	cmd.Flags().StringVar(&fl.eventID, "event", "", "event definition id (recorded only)")
	cmd.Flags().StringVar(&fl.optionID, "option", "", "event option id (recorded only)")
	cmd.Flags().StringSliceVar(&fl.scopes, "scope", nil, "only run operations with these scopes (repeatable)")
	_ = cmd.MarkFlagRequired("effect")
	return cmd
}

func runApply(opts *RootOptions, cmd *cobra.Command, src string, fl *applyFlags) error {
	f := opts.formatter(cmd)
	reg, _, err := opts.loadRegistry(cmd.Context(), cmd, src)
	if err != nil {
		_ = f.Error(protocol.ErrContentInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "load", err)
	}
	if _, ok := reg.Effect(fl.effectID); !ok && len(reg.Operations(fl.effectID)) == 0 {
		_ = f.Error(protocol.ErrUnknownEffect, "unknown effect "+fl.effectID, nil)
		return NewExitError(ExitCommandError, "unknown effect "+fl.effectID)
	}

	allowed := make([]catalogs.AffectScope, 0, len(fl.scopes))
	for _, s := range fl.scopes {
		sc, err := catalogs.ParseAffectScope(s)
		if err != nil {
			_ = f.Error(protocol.ErrBadRequest, err.Error(), nil)
			return WrapExitError(ExitCommandError, "scope", err)
		}
		allowed = append(allowed, sc)
	}

	hdr := snapshot.Header{Generation: reg.Generation, DataVersion: reg.Meta.DataVersion}
	var g *state.Game
	if fl.state != "" {
		st, err := snapshot.ReadState(fl.state)
		if err != nil {
			_ = f.Error(protocol.ErrBadRequest, err.Error(), nil)
			return WrapExitError(ExitCommandError, "read state", err)
		}
		g = st.State
	} else {
		g = state.NewGame(reg)
	}

	ctx, err := effects.ResolveContext(g, fl.nodeID, fl.taskID)
	if err != nil {
		var ut *effects.ErrUnknownTarget
		code := protocol.ErrInternal
		if errors.As(err, &ut) {
			code = protocol.ErrUnknownTarget
		}
		_ = f.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "context", err)
	}
	ctx.EventDefID = fl.eventID
	ctx.OptionID = fl.optionID

	in := effects.New(reg, opts.logger(cmd))
	muts := in.Trace(fl.effectID, ctx, allowed...)
	res := ApplyResult{EffectID: fl.effectID, Applied: len(muts), Mutations: muts}

	if fl.out != "" {
		if err := snapshot.WriteState(fl.out, hdr, g); err != nil {
			_ = f.Error(protocol.ErrInternal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "write state", err)
		}
		res.Out = fl.out
	} else if f.JSON() {
		res.State = g
	}

	return f.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s applied=%d\n", pass("OK"), fl.effectID, res.Applied)
		for _, m := range muts {
			fmt.Fprintf(w, "  %-22s %-12s %-18s %v -> %v\n", m.Scope, m.Target, m.StatKey, m.Before, m.After)
		}
		if res.Out != "" {
			fmt.Fprintf(w, "wrote %s\n", res.Out)
		}
	})
}
