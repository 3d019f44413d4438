package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	persistlog "github.com/hszqf/SCP-sub000/internal/persistence/log"
)

type ReplayEffect struct {
	EffectID  string `json:"effect_id"`
	Count     int    `json:"count"`
	Mutations int    `json:"mutations"`
	Missing   bool   `json:"missing,omitempty"`
}

type ReplayResult struct {
	Records int            `json:"records"`
	Effects []ReplayEffect `json:"effects"`
	Missing []string       `json:"missing,omitempty"`
}

// NewReplayCommand reads the server's apply log back. With a content
// argument it also reports logged effects the document no longer defines.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dataDir string
		effect  string
	)
	cmd := &cobra.Command{
		Use:   "replay [content]",
		Short: "Summarise the apply log, optionally checking it against a content document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			recs, err := persistlog.ReadApplies(dataDir)
			if err != nil {
				return WrapExitError(ExitCommandError, "read apply log", err)
			}

			byID := map[string]*ReplayEffect{}
			res := ReplayResult{Effects: []ReplayEffect{}}
			for _, r := range recs {
				if effect != "" && r.EffectID != effect {
					continue
				}
				res.Records++
				e := byID[r.EffectID]
				if e == nil {
					e = &ReplayEffect{EffectID: r.EffectID}
					byID[r.EffectID] = e
				}
				e.Count++
				e.Mutations += r.Applied
			}

			if len(args) == 1 {
				reg, _, err := rootOpts.loadRegistry(cmd.Context(), cmd, args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "load content", err)
				}
				for id, e := range byID {
					if _, ok := reg.Effect(id); !ok {
						e.Missing = true
						res.Missing = append(res.Missing, id)
					}
				}
				sort.Strings(res.Missing)
			}
			for _, e := range byID {
				res.Effects = append(res.Effects, *e)
			}
			sort.Slice(res.Effects, func(i, j int) bool { return res.Effects[i].EffectID < res.Effects[j].EffectID })

			if err := f.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "records=%d effects=%d\n", res.Records, len(res.Effects))
				for _, e := range res.Effects {
					mark := ""
					if e.Missing {
						mark = "  " + fail("missing")
					}
					fmt.Fprintf(w, "  %s count=%d mutations=%d%s\n", e.EffectID, e.Count, e.Mutations, mark)
				}
			}); err != nil {
				return err
			}
			if len(res.Missing) > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d logged effect(s) missing from content", len(res.Missing)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data", "./data", "runtime data directory")
	cmd.Flags().StringVar(&effect, "effect", "", "only count this effect_id")
	return cmd
}
