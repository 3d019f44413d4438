package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hszqf/SCP-sub000/internal/protocol"
	"github.com/hszqf/SCP-sub000/internal/sim/catalogs/tables"
)

type InspectResult struct {
	Source string      `json:"source"`
	Size   int         `json:"size"`
	Digest string      `json:"digest"`
	Tables []TableInfo `json:"tables,omitempty"`
	Table  *TableDump  `json:"table,omitempty"`
}

type TableInfo struct {
	Name    string `json:"name"`
	IDField string `json:"id_field"`
	Columns int    `json:"columns"`
	Rows    int    `json:"rows"`
}

type TableDump struct {
	Name    string        `json:"name"`
	IDField string        `json:"id_field"`
	Columns []string      `json:"columns"`
	Rows    []*tables.Row `json:"rows"`
}

func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "inspect <content>",
		Short: "List tables, or dump one table's rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, cmd, args[0], table)
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "dump the rows of this table")
	return cmd
}

func runInspect(opts *RootOptions, cmd *cobra.Command, src, table string) error {
	f := opts.formatter(cmd)
	reg, raw, err := opts.loadRegistry(cmd.Context(), cmd, src)
	if err != nil {
		_ = f.Error(protocol.ErrContentInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "load", err)
	}
	store := reg.Tables()
	res := InspectResult{Source: src, Size: len(raw), Digest: reg.Digest}

	if table != "" {
		t, ok := store.Table(table)
		if !ok {
			_ = f.Error(protocol.ErrBadRequest, fmt.Sprintf("unknown table %s", table), store.TableNames())
			return NewExitError(ExitCommandError, "unknown table "+table)
		}
		res.Table = &TableDump{Name: t.Name, IDField: t.IDField, Columns: t.ColumnNames(), Rows: t.Rows}
		return f.Success(res, func(w io.Writer) {
			fmt.Fprintf(w, "%s (idField=%s, %d rows)\n", t.Name, t.IDField, len(t.Rows))
			for i, row := range t.Rows {
				if row == nil {
					fmt.Fprintf(w, "  %d: <null>\n", i+1)
					continue
				}
				b, _ := row.MarshalJSON()
				fmt.Fprintf(w, "  %d: %s\n", i+1, b)
			}
		})
	}

	for _, name := range store.TableNames() {
		t, _ := store.Table(name)
		res.Tables = append(res.Tables, TableInfo{Name: name, IDField: t.IDField, Columns: len(t.Columns), Rows: len(t.Rows)})
	}
	sort.Slice(res.Tables, func(i, j int) bool { return res.Tables[i].Name < res.Tables[j].Name })
	return f.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "%s  %s  sha256:%s\n", src, humanize.Bytes(uint64(len(raw))), reg.Digest)
		for _, ti := range res.Tables {
			fmt.Fprintf(w, "  %-16s idField=%-12s columns=%-3d rows=%d\n", ti.Name, ti.IDField, ti.Columns, ti.Rows)
		}
	})
}
