package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hszqf/SCP-sub000/internal/sim/effects"
)

func TestReadApplies_AcrossReopenedSegment(t *testing.T) {
	dir := t.TempDir()
	l := NewApplyLogger(dir)
	for _, id := range []string{"EF_A", "EF_B"} {
		if err := l.WriteApply(effects.Record{EffectID: id, Applied: 1}); err != nil {
			t.Fatalf("WriteApply: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := l.WriteApply(effects.Record{EffectID: "EF_C"}); err != nil {
		t.Fatalf("WriteApply: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	recs, err := ReadApplies(dir)
	if err != nil {
		t.Fatalf("ReadApplies: %v", err)
	}
	if len(recs) != 3 || recs[0].EffectID != "EF_A" || recs[2].EffectID != "EF_C" {
		t.Fatalf("recs=%+v", recs)
	}
}

func TestSegments_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"applies-2026-10-17-09.jsonl.zst", "applies-2026-10-17-08.jsonl.zst", "loads-2026-10-17-08.jsonl.zst", "applies.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got, err := Segments(dir, "applies")
	if err != nil {
		t.Fatalf("Segments: %v", err)
	}
	if len(got) != 2 || filepath.Base(got[0]) != "applies-2026-10-17-08.jsonl.zst" {
		t.Fatalf("got=%v", got)
	}
}

func TestReadApplies_MissingDir(t *testing.T) {
	recs, err := ReadApplies(filepath.Join(t.TempDir(), "nope"))
	if err != nil || recs != nil {
		t.Fatalf("recs=%v err=%v", recs, err)
	}
}
