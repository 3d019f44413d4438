package catalogs

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/hszqf/SCP-sub000/internal/sim/tuning"
)

const dupEffects = `{"tables":{"Effects":{"idField":"effectId","columns":[{"name":"effectId","type":"string"}],"rows":[{"effectId":"X"},{"effectId":"X"}]}}}`

func quiet() Options { return Options{Logger: log.New(&bytes.Buffer{}, "", 0)} }

func TestLoad_RejectsBadJSON(t *testing.T) {
	for _, raw := range []string{``, `{`, `[1,2]`, `{"tables":[]}`, `{"tables":{"T":{"rows":[1]}}}`, `{"meta":"x","tables":{}}`} {
		if r, err := Load([]byte(raw), quiet()); err == nil || r != nil {
			t.Fatalf("Load(%q) should fail", raw)
		} else if !strings.HasPrefix(err.Error(), "game_data: ") {
			t.Fatalf("Load(%q) error not wrapped: %v", raw, err)
		}
	}
}

func TestHolder_ReloadKeepsPreviousOnFailure(t *testing.T) {
	var h Holder
	if _, err := h.Current(); !errors.Is(err, ErrNoRegistry) {
		t.Fatalf("expected ErrNoRegistry, got %v", err)
	}

	first, err := h.Reload([]byte(`{"meta":{"dataVersion":"v1"},"tables":{}}`), quiet())
	if err != nil {
		t.Fatalf("Reload v1: %v", err)
	}
	if _, err := h.Reload([]byte(dupEffects), quiet()); err == nil {
		t.Fatalf("expected validation error")
	}
	cur, err := h.Current()
	if err != nil || cur != first {
		t.Fatalf("failed reload must keep the previous registry, got %v %v", cur, err)
	}

	second, err := h.Reload([]byte(`{"meta":{"dataVersion":"v2"},"tables":{}}`), quiet())
	if err != nil {
		t.Fatalf("Reload v2: %v", err)
	}
	cur, _ = h.Current()
	if cur != second || cur.Meta.DataVersion != "v2" || cur.Generation == first.Generation {
		t.Fatalf("current=%+v", cur.Meta)
	}
	if first.Meta.DataVersion != "v1" {
		t.Fatalf("earlier registry must stay intact")
	}
}

func TestLoad_FieldWarningsDedupePerColumn(t *testing.T) {
	raw := []byte(`{"tables":{"Nodes":{"idField":"nodeId",
	  "columns":[{"name":"nodeId","type":"string"},{"name":"startPopulation","type":"int"}],
	  "rows":[{"nodeId":"A","startPopulation":""},{"nodeId":"B"},{"nodeId":"C","startPopulation":"many"}]}}}`)
	var buf bytes.Buffer
	r, err := Load(raw, Options{Logger: log.New(&buf, "", 0)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out := buf.String()
	if n := strings.Count(out, "missing field Nodes.name"); n != 1 {
		t.Fatalf("missing name warnings=%d\n%s", n, out)
	}
	if n := strings.Count(out, "empty field Nodes.startPopulation"); n != 1 {
		t.Fatalf("empty startPopulation warnings=%d\n%s", n, out)
	}
	if len(r.Nodes()) != 3 {
		t.Fatalf("nodes=%d", len(r.Nodes()))
	}
	if c, _ := r.Node("C"); c.StartPopulation != 0 || c.Name != "C" {
		t.Fatalf("C=%+v", c)
	}
}

func TestLoad_UsesTuningFallbacks(t *testing.T) {
	tu := tuning.Defaults()
	tu.LocalPanicHighThreshold = 11
	tu.DefaultIgnoreApplyMode = "NeverAuto"
	opts := quiet()
	opts.Tuning = &tu
	r, err := Load([]byte(`{"tables":{}}`), opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s := r.Settings(); s.LocalPanicHighThreshold != 11 || s.DefaultIgnoreApplyMode != IgnoreNeverAuto {
		t.Fatalf("settings=%+v", s)
	}
}

func TestProcessRegistry(t *testing.T) {
	r, err := Reload([]byte(`{"meta":{"dataVersion":"proc"},"tables":{}}`), quiet())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	cur, err := Current()
	if err != nil || cur != r {
		t.Fatalf("Current=%v,%v", cur, err)
	}
}
