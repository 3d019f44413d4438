package catalogs

import (
	"github.com/hszqf/SCP-sub000/internal/sim/catalogs/cell"
	"github.com/hszqf/SCP-sub000/internal/sim/catalogs/tables"
)

// fieldReader extracts typed fields from the rows of one table. A column the
// table does not declare is reported as missing, a declared column whose cell
// is blank or unparsable as empty; each once per table and column for the
// life of the registry.
type fieldReader struct {
	reg   *Registry
	table *tables.Table
}

func (r *Registry) fields(t *tables.Table) fieldReader {
	return fieldReader{reg: r, table: t}
}

// declared treats a table without any column declarations as declaring
// whatever its rows carry.
func (f fieldReader) declared(row *tables.Row, col string) bool {
	if len(f.table.Columns) == 0 {
		_, ok := row.Get(col)
		return ok
	}
	return f.table.HasColumn(col)
}

func (f fieldReader) warnOnce(kind, col string, def any) {
	key := kind + "|" + f.table.Name + "|" + col
	if _, ok := f.reg.warned[key]; ok {
		return
	}
	f.reg.warned[key] = struct{}{}
	f.reg.logger.Printf("[Tables] %s field %s.%s, defaulting to %#v", kind, f.table.Name, col, def)
}

// lookup returns the row's cell for col when the column is declared and the
// cell carries a value, warning otherwise.
func (f fieldReader) lookup(row *tables.Row, col string, def any) (any, bool) {
	if !f.declared(row, col) {
		f.warnOnce("missing", col, def)
		return nil, false
	}
	raw, ok := row.Get(col)
	if !ok || cell.IsEmpty(raw) {
		f.warnOnce("empty", col, def)
		return nil, false
	}
	return raw, true
}

func (f fieldReader) str(row *tables.Row, col, def string) string {
	raw, ok := f.lookup(row, col, def)
	if !ok {
		return def
	}
	if s, ok := cell.String(raw); ok {
		return s
	}
	f.warnOnce("empty", col, def)
	return def
}

func (f fieldReader) integer(row *tables.Row, col string, def int) int {
	raw, ok := f.lookup(row, col, def)
	if !ok {
		return def
	}
	if n, ok := cell.Int(raw); ok {
		return n
	}
	f.warnOnce("empty", col, def)
	return def
}

func (f fieldReader) float(row *tables.Row, col string, def float32) float32 {
	raw, ok := f.lookup(row, col, def)
	if !ok {
		return def
	}
	if v, ok := cell.Float32(raw); ok {
		return v
	}
	f.warnOnce("empty", col, def)
	return def
}

func (f fieldReader) boolean(row *tables.Row, col string, def bool) bool {
	raw, ok := f.lookup(row, col, def)
	if !ok {
		return def
	}
	if b, ok := cell.Bool(raw); ok {
		return b
	}
	f.warnOnce("empty", col, def)
	return def
}

// list defaults to an empty list. An authored empty list is a value, not a
// blank cell.
func (f fieldReader) list(row *tables.Row, col string) []string {
	if !f.declared(row, col) {
		f.warnOnce("missing", col, []string{})
		return []string{}
	}
	raw, ok := row.Get(col)
	if !ok || raw == nil {
		f.warnOnce("empty", col, []string{})
		return []string{}
	}
	out := cell.Strings(raw)
	if out == nil {
		return []string{}
	}
	return out
}

// has reports whether the row carries a non-blank value for col without
// warning; used for optional fields.
func (f fieldReader) has(row *tables.Row, col string) bool {
	raw, ok := row.Get(col)
	return ok && !cell.IsEmpty(raw)
}

// The opt readers cover nullable fields. Absence is normal and not logged.
func (f fieldReader) optStr(row *tables.Row, col string) string {
	raw, ok := row.Get(col)
	if !ok {
		return ""
	}
	s, _ := cell.String(raw)
	return s
}

func (f fieldReader) optInt(row *tables.Row, col string) *int {
	raw, ok := row.Get(col)
	if !ok {
		return nil
	}
	n, ok := cell.Int(raw)
	if !ok {
		return nil
	}
	return &n
}

func (f fieldReader) optFloat(row *tables.Row, col string) *float32 {
	raw, ok := row.Get(col)
	if !ok {
		return nil
	}
	v, ok := cell.Float32(raw)
	if !ok {
		return nil
	}
	return &v
}

func (f fieldReader) optBool(row *tables.Row, col string) *bool {
	raw, ok := row.Get(col)
	if !ok {
		return nil
	}
	b, ok := cell.Bool(raw)
	if !ok {
		return nil
	}
	return &b
}

func (f fieldReader) optList(row *tables.Row, col string) []string {
	raw, ok := row.Get(col)
	if !ok {
		return nil
	}
	return cell.Strings(raw)
}
