package tables

import (
	"encoding/json"
	"reflect"
	"testing"
)

const sampleTables = `{
  "Nodes": {
    "mode": "rows",
    "idField": "nodeId",
    "columns": [{"name":"nodeId","type":"string"},{"name":"startPopulation","type":"int"},{"name":"tags","type":"string[]"}],
    "rows": [
      {"nodeId":"N1","startPopulation":10,"tags":"city, coast"},
      {"nodeId":"N2","startPopulation":"20","tags":["rural"]},
      {"nodeId":"N1","startPopulation":99,"tags":""},
      {"nodeId":"","startPopulation":5}
    ]
  },
  "Balance": {
    "idField": "key",
    "columns": [{"name":"key","type":"string"},{"name":"p1","type":"int[]"},{"name":"p2","type":"float[]"},{"name":"p3","type":"string[]"}],
    "rows": [
      {"key":"ClampMoneyMin","p1":[0],"p2":"1.5;2.5","test":"yes"},
      {"key":7,"p3":"seven"}
    ]
  },
  "Notes": {
    "columns": [{"name":"text","type":"string"}],
    "rows": [{"text":"hello"}]
  }
}`

func loadSample(t *testing.T) *Store {
	t.Helper()
	var in map[string]*Table
	if err := json.Unmarshal([]byte(sampleTables), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return New(in)
}

func TestStore_LastWriteWins(t *testing.T) {
	s := loadSample(t)
	row, ok := s.Row("Nodes", "N1")
	if !ok {
		t.Fatalf("expected N1")
	}
	if got := s.Int("Nodes", "N1", "startPopulation", -1); got != 99 {
		t.Fatalf("startPopulation=%d want 99 (later row)", got)
	}
	if v, _ := row.Get("tags"); v != "" {
		t.Fatalf("expected later row tags, got %#v", v)
	}
	if got := len(s.Rows("Nodes")); got != 4 {
		t.Fatalf("rows=%d want 4 (duplicates and blanks kept in source)", got)
	}
	if _, ok := s.Row("Nodes", ""); ok {
		t.Fatalf("empty key must not be indexed")
	}
}

func TestStore_NumericKeysIndexByString(t *testing.T) {
	s := loadSample(t)
	if got := s.String("Balance", "7", "p3", ""); got != "seven" {
		t.Fatalf("p3=%q", got)
	}
}

func TestStore_TypedGettersFallback(t *testing.T) {
	s := loadSample(t)
	if got := s.Int("Nodes", "N2", "startPopulation", -1); got != 20 {
		t.Fatalf("string int cell: %d", got)
	}
	if got := s.Int("Nodes", "missing", "startPopulation", -1); got != -1 {
		t.Fatalf("missing row should fall back, got %d", got)
	}
	if got := s.Int("Nodes", "N2", "nope", -1); got != -1 {
		t.Fatalf("missing column should fall back, got %d", got)
	}
	if got := s.Int("Absent", "N2", "x", -1); got != -1 {
		t.Fatalf("missing table should fall back, got %d", got)
	}
	if got := s.Float("Nodes", "N2", "tags", 0.5); got != 0.5 {
		t.Fatalf("unparsable cell should fall back, got %v", got)
	}
	if !s.Bool("Balance", "ClampMoneyMin", "test", false) {
		t.Fatalf("yes should read as true")
	}
}

func TestStore_Lists(t *testing.T) {
	s := loadSample(t)
	if got := s.StringList("Nodes", "N2", "tags"); !reflect.DeepEqual(got, []string{"rural"}) {
		t.Fatalf("array tags: %v", got)
	}
	if got := s.FloatList("Balance", "ClampMoneyMin", "p2"); !reflect.DeepEqual(got, []float64{1.5, 2.5}) {
		t.Fatalf("p2: %v", got)
	}
	if got := s.IntList("Balance", "ClampMoneyMin", "p1"); !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("p1: %v", got)
	}
	if got := s.IntList("Balance", "7", "p1"); got == nil || len(got) != 0 {
		t.Fatalf("absent column should give empty list, got %#v", got)
	}
}

func TestStore_RowsOfAbsentTable(t *testing.T) {
	s := loadSample(t)
	if rows := s.Rows("Absent"); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
	if _, ok := s.Row("Notes", "hello"); ok {
		t.Fatalf("table without idField has no index")
	}
}

func TestStore_FindFirst(t *testing.T) {
	s := loadSample(t)
	hit, ok := s.FindFirst("test")
	if !ok {
		t.Fatalf("expected hit")
	}
	if hit.Table != "Balance" || hit.RowID != "ClampMoneyMin" || hit.Value != "yes" {
		t.Fatalf("hit=%+v", hit)
	}
	if _, ok := s.FindFirst("nowhere"); ok {
		t.Fatalf("unexpected hit")
	}
	if got := s.TableNames(); !reflect.DeepEqual(got, []string{"Balance", "Nodes", "Notes"}) {
		t.Fatalf("names=%v", got)
	}
	if s.TableCount() != 3 {
		t.Fatalf("count=%d", s.TableCount())
	}
}

func TestRow_PreservesColumnOrder(t *testing.T) {
	var r Row
	if err := json.Unmarshal([]byte(`{"z":1,"a":"x","m":[1,2]}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := r.Columns(); !reflect.DeepEqual(got, []string{"z", "a", "m"}) {
		t.Fatalf("columns=%v", got)
	}
	if v, _ := r.Get("z"); v != json.Number("1") {
		t.Fatalf("numbers should decode as json.Number, got %#v", v)
	}
	b, err := json.Marshal(&r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"z":1,"a":"x","m":[1,2]}` {
		t.Fatalf("marshal=%s", b)
	}
	if err := json.Unmarshal([]byte(`[1]`), &r); err == nil {
		t.Fatalf("expected error for non-object row")
	}
}

func TestTable_HasColumn(t *testing.T) {
	s := loadSample(t)
	tbl, ok := s.Table("Nodes")
	if !ok {
		t.Fatalf("expected Nodes")
	}
	if !tbl.HasColumn("tags") || tbl.HasColumn("name") {
		t.Fatalf("HasColumn mismatch")
	}
	if tbl.Name != "Nodes" {
		t.Fatalf("name=%q", tbl.Name)
	}
}
