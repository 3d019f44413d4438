package tasks

import (
	"encoding/json"
	"testing"
)

func TestParseType_CaseInsensitive(t *testing.T) {
	for _, raw := range []string{"Investigate", "investigate", " INVESTIGATE "} {
		got, err := ParseType(raw)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", raw, err)
		}
		if got != Investigate {
			t.Fatalf("ParseType(%q)=%v want Investigate", raw, got)
		}
	}
	if _, err := ParseType("Manage"); err != nil {
		t.Fatalf("ParseType(Manage): %v", err)
	}
	if _, err := ParseType(""); err == nil {
		t.Fatalf("expected error for empty task type")
	}
	if _, err := ParseType("Patrol"); err == nil {
		t.Fatalf("expected error for unknown task type")
	}
}

func TestType_JSON(t *testing.T) {
	b, err := json.Marshal(Task{ID: "T1", Type: Contain, State: StateActive, Progress: 0.5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Task
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != Contain || !got.Active() || got.Progress != 0.5 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
