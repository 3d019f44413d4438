// Package tables holds the raw, dynamically shaped content tables and a
// per-table primary key index. Typing is left to the definition builders.
package tables

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hszqf/SCP-sub000/internal/sim/catalogs/cell"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Table struct {
	Name    string   `json:"-"`
	Mode    string   `json:"mode,omitempty"`
	IDField string   `json:"idField,omitempty"`
	Columns []Column `json:"columns"`
	Rows    []*Row   `json:"rows"`
}

// HasColumn reports whether the declared schema lists name.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (t *Table) ColumnNames() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name != "" {
			out = append(out, c.Name)
		}
	}
	return out
}

// Row is a column to cell mapping that remembers the order columns were
// authored in. Numbers decode as json.Number.
type Row struct {
	keys []string
	vals map[string]any
}

// RowOf builds a row from alternating column/value pairs.
func RowOf(kv ...any) *Row {
	r := &Row{}
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		r.Set(k, kv[i+1])
	}
	return r
}

func (r *Row) Get(column string) (any, bool) {
	if r == nil || r.vals == nil {
		return nil, false
	}
	v, ok := r.vals[column]
	return v, ok
}

// Set overwrites an existing column in place or appends a new one.
func (r *Row) Set(column string, v any) {
	if r.vals == nil {
		r.vals = make(map[string]any)
	}
	if _, ok := r.vals[column]; !ok {
		r.keys = append(r.keys, column)
	}
	r.vals[column] = v
}

func (r *Row) Columns() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.keys...)
}

func (r *Row) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

func (r *Row) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row: expected object, got %v", tok)
	}
	r.keys = nil
	r.vals = make(map[string]any)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("row: expected key, got %v", kt)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("row %q: %w", key, err)
		}
		r.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func (r *Row) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Store is the read side of all raw tables. It is immutable after New.
type Store struct {
	tables map[string]*Table
	index  map[string]map[string]*Row
	names  []string
}

// New indexes every table by the string form of its idField. Rows with an
// empty key are left out of the index and a later duplicate key replaces an
// earlier one; uniqueness is checked elsewhere.
func New(in map[string]*Table) *Store {
	s := &Store{
		tables: make(map[string]*Table, len(in)),
		index:  make(map[string]map[string]*Row, len(in)),
	}
	for name, t := range in {
		if t == nil {
			t = &Table{}
		}
		t.Name = name
		s.tables[name] = t
		s.names = append(s.names, name)

		idx := make(map[string]*Row)
		s.index[name] = idx
		if t.IDField == "" {
			continue
		}
		for _, row := range t.Rows {
			key, ok := RowKey(row, t.IDField)
			if !ok {
				continue
			}
			idx[key] = row
		}
	}
	sort.Strings(s.names)
	return s
}

// RowKey returns the coerced, non-empty primary key of row.
func RowKey(row *Row, idField string) (string, bool) {
	raw, ok := row.Get(idField)
	if !ok {
		return "", false
	}
	key, ok := cell.String(raw)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func (s *Store) Table(name string) (*Table, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.tables[name]
	return t, ok
}

// Rows returns the table's rows in source order, or nil when the table is absent.
func (s *Store) Rows(name string) []*Row {
	t, ok := s.Table(name)
	if !ok {
		return nil
	}
	return t.Rows
}

func (s *Store) Row(table, id string) (*Row, bool) {
	if s == nil || table == "" || id == "" {
		return nil, false
	}
	idx, ok := s.index[table]
	if !ok {
		return nil, false
	}
	row, ok := idx[id]
	return row, ok
}

// Value returns the raw cell at table[id].column.
func (s *Store) Value(table, id, column string) (any, bool) {
	row, ok := s.Row(table, id)
	if !ok {
		return nil, false
	}
	return row.Get(column)
}

func (s *Store) Int(table, id, column string, fallback int) int {
	raw, ok := s.Value(table, id, column)
	if !ok {
		return fallback
	}
	if n, ok := cell.Int(raw); ok {
		return n
	}
	return fallback
}

func (s *Store) Float(table, id, column string, fallback float64) float64 {
	raw, ok := s.Value(table, id, column)
	if !ok {
		return fallback
	}
	if f, ok := cell.Float(raw); ok {
		return f
	}
	return fallback
}

func (s *Store) String(table, id, column, fallback string) string {
	raw, ok := s.Value(table, id, column)
	if !ok {
		return fallback
	}
	if v, ok := cell.String(raw); ok {
		return v
	}
	return fallback
}

func (s *Store) Bool(table, id, column string, fallback bool) bool {
	raw, ok := s.Value(table, id, column)
	if !ok {
		return fallback
	}
	if b, ok := cell.Bool(raw); ok {
		return b
	}
	return fallback
}

func (s *Store) StringList(table, id, column string) []string {
	raw, _ := s.Value(table, id, column)
	return nonNil(cell.Strings(raw))
}

func (s *Store) IntList(table, id, column string) []int {
	raw, _ := s.Value(table, id, column)
	if out := cell.Ints(raw); out != nil {
		return out
	}
	return []int{}
}

func (s *Store) FloatList(table, id, column string) []float64 {
	raw, _ := s.Value(table, id, column)
	if out := cell.Floats(raw); out != nil {
		return out
	}
	return []float64{}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// Hit locates one cell found by FindFirst.
type Hit struct {
	Table string
	RowID string
	Value any
}

// FindFirst scans tables in name order and rows in source order for the
// first row carrying column. Diagnostic only.
func (s *Store) FindFirst(column string) (Hit, bool) {
	if s == nil || column == "" {
		return Hit{}, false
	}
	for _, name := range s.names {
		t := s.tables[name]
		for _, row := range t.Rows {
			raw, ok := row.Get(column)
			if !ok {
				continue
			}
			id, _ := RowKey(row, t.IDField)
			return Hit{Table: name, RowID: id, Value: raw}, true
		}
	}
	return Hit{}, false
}

// TableNames lists table names in sorted order.
func (s *Store) TableNames() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

func (s *Store) TableCount() int {
	if s == nil {
		return 0
	}
	return len(s.tables)
}
