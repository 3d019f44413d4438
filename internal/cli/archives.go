package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hszqf/SCP-sub000/internal/persistence/archive"
)

func NewArchivesCommand(rootOpts *RootOptions) *cobra.Command {
	var dataDir string
	cmd := &cobra.Command{
		Use:   "archives",
		Short: "List content documents the server has archived",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			metas, err := archive.List(dataDir)
			if err != nil {
				return WrapExitError(ExitCommandError, "list archives", err)
			}
			if metas == nil {
				metas = []archive.ContentMeta{}
			}
			return f.Success(metas, func(w io.Writer) {
				if len(metas) == 0 {
					fmt.Fprintf(w, "no archives under %s\n", archive.Dir(dataDir))
					return
				}
				for _, m := range metas {
					fmt.Fprintf(w, "%s  data=%s schema=%s  %s  gen=%s\n",
						m.ArchivedAt, m.DataVersion, m.SchemaVersion, humanize.Bytes(uint64(m.Size)), m.Generation)
				}
			})
		},
	}
	cmd.Flags().StringVar(&dataDir, "data", "./data", "runtime data directory")
	return cmd
}
