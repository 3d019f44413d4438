package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func NewDBCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dataDir string
		dbPath  string
		limit   int
		effect  string
	)
	cmd := &cobra.Command{
		Use:   "db [loads|applies]",
		Short: "Query the server's sqlite index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := "loads"
			if len(args) == 1 {
				q = args[0]
			}
			path := dbPath
			if path == "" {
				path = filepath.Join(dataDir, "index", "content.sqlite")
			}
			return runDB(rootOpts, cmd, path, q, limit, effect)
		},
	}
	cmd.Flags().StringVar(&dataDir, "data", "./data", "runtime data directory")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite db path (overrides --data)")
	cmd.Flags().IntVar(&limit, "limit", 20, "result limit")
	cmd.Flags().StringVar(&effect, "effect", "", "effect_id filter (applies)")
	return cmd
}

func runDB(opts *RootOptions, cmd *cobra.Command, path, q string, limit int, effect string) error {
	f := opts.formatter(cmd)
	if limit <= 0 {
		limit = 20
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return WrapExitError(ExitCommandError, "open", err)
	}
	defer db.Close()

	var out []map[string]any
	switch q {
	case "loads":
		rows, err := db.QueryContext(cmd.Context(),
			`SELECT id,generation,digest,schema_version,data_version,ok,COALESCE(error,''),loaded_at FROM loads ORDER BY id DESC LIMIT ?`, limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id                                        int64
				gen, digest, schemaV, dataV, errMsg, when string
				ok                                        int
			)
			if err := rows.Scan(&id, &gen, &digest, &schemaV, &dataV, &ok, &errMsg, &when); err != nil {
				return WrapExitError(ExitCommandError, "scan", err)
			}
			out = append(out, map[string]any{
				"id": id, "generation": gen, "digest": digest, "schema_version": schemaV,
				"data_version": dataV, "ok": ok != 0, "error": errMsg, "loaded_at": when,
			})
		}
		if err := rows.Err(); err != nil {
			return WrapExitError(ExitCommandError, "rows", err)
		}

	case "applies":
		rows, err := db.QueryContext(cmd.Context(),
			`SELECT raw_json FROM applies WHERE (?='' OR effect_id=?) ORDER BY id DESC LIMIT ?`, effect, effect, limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				return WrapExitError(ExitCommandError, "scan", err)
			}
			var m map[string]any
			if err := json.Unmarshal([]byte(raw), &m); err != nil {
				return WrapExitError(ExitCommandError, "decode", err)
			}
			out = append(out, m)
		}
		if err := rows.Err(); err != nil {
			return WrapExitError(ExitCommandError, "rows", err)
		}

	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown query %q (loads|applies)", q))
	}

	return f.Success(out, func(w io.Writer) {
		for _, r := range out {
			b, _ := json.Marshal(r)
			fmt.Fprintln(w, string(b))
		}
	})
}
