package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hszqf/SCP-sub000/internal/protocol"
)

type BalanceResult struct {
	Key     string    `json:"key"`
	Present bool      `json:"present"`
	Ints    []int     `json:"ints"`
	Floats  []float64 `json:"floats"`
	Strings []string  `json:"strings"`
	Int     int       `json:"int"`
	Float   float64   `json:"float"`
}

func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "balance <content> [key]",
		Short: "Resolve a Balance key, or list every key with --all",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 2 {
				key = args[1]
			}
			if key == "" && !all {
				return NewExitError(ExitCommandError, "missing key (or --all)")
			}
			return runBalance(rootOpts, cmd, args[0], key)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every Balance key")
	return cmd
}

func runBalance(opts *RootOptions, cmd *cobra.Command, src, key string) error {
	f := opts.formatter(cmd)
	reg, _, err := opts.loadRegistry(cmd.Context(), cmd, src)
	if err != nil {
		_ = f.Error(protocol.ErrContentInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "load", err)
	}

	keys := []string{key}
	if key == "" {
		keys = reg.BalanceKeys()
	}
	out := make([]BalanceResult, 0, len(keys))
	for _, k := range keys {
		ints := reg.BalanceInts(k)
		floats := reg.BalanceFloats(k)
		strs := reg.BalanceStrings(k)
		present := len(ints)+len(floats)+len(strs) > 0
		r := BalanceResult{Key: k, Present: present, Ints: ints, Floats: floats, Strings: strs}
		if present {
			r.Int = reg.BalanceInt(k, 0)
			r.Float = reg.BalanceFloat(k, 0)
		}
		out = append(out, r)
	}

	var data any = out
	if key != "" {
		data = out[0]
	}
	if err := f.Success(data, func(w io.Writer) {
		for _, r := range out {
			if !r.Present {
				fmt.Fprintf(w, "%s %s: no value\n", warn("?"), r.Key)
				continue
			}
			fmt.Fprintf(w, "%s int=%d float=%v p1=%v p2=%v p3=%q\n", r.Key, r.Int, r.Float, r.Ints, r.Floats, r.Strings)
		}
	}); err != nil {
		return err
	}
	if key != "" && !out[0].Present {
		return NewExitError(ExitFailure, "no value for "+key)
	}
	return nil
}
