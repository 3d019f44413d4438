package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("random_event_base_prob: 0.3\ntasks:\n  agent_slots_max: 6\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.RandomEventBaseProb != 0.3 {
		t.Fatalf("prob=%v", got.RandomEventBaseProb)
	}
	if got.Tasks.AgentSlotsMax != 6 || got.Tasks.AgentSlotsMin != 1 {
		t.Fatalf("tasks=%+v", got.Tasks)
	}
	if got.LocalPanicHighThreshold != 6 || got.DefaultIgnoreApplyMode != "ApplyDailyKeep" {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("random_event_base_prob: 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
