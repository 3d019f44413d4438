package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hszqf/SCP-sub000/internal/persistence/gamedata"
	"github.com/hszqf/SCP-sub000/internal/protocol"
)

type PackResult struct {
	In      string `json:"in"`
	Out     string `json:"out"`
	RawSize int    `json:"raw_size"`
	Size    int    `json:"size"`
	Digest  string `json:"digest"`
}

func NewPackCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pack <content> <out.zst>",
		Short: "Validate a content document and write it zstd-compressed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(rootOpts, cmd, args[0], args[1])
		},
	}
}

func runPack(opts *RootOptions, cmd *cobra.Command, src, out string) error {
	f := opts.formatter(cmd)
	reg, raw, err := opts.loadRegistry(cmd.Context(), cmd, src)
	if err != nil {
		_ = f.Error(protocol.ErrContentInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "refusing to pack invalid content", err)
	}
	packed, err := gamedata.Compress(raw)
	if err != nil {
		return WrapExitError(ExitCommandError, "compress", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return WrapExitError(ExitCommandError, "mkdir", err)
	}
	if err := os.WriteFile(out, packed, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "write", err)
	}
	res := PackResult{In: src, Out: out, RawSize: len(raw), Size: len(packed), Digest: reg.Digest}
	return f.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s -> %s (%s -> %s)\n", pass("OK"), src, out,
			humanize.Bytes(uint64(res.RawSize)), humanize.Bytes(uint64(res.Size)))
	})
}
