package catalogs

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hszqf/SCP-sub000/internal/sim/tasks"
)

func loadFixture(t *testing.T, name string) (*Registry, *bytes.Buffer) {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	var buf bytes.Buffer
	r, err := Load(raw, Options{Logger: log.New(&buf, "", 0)})
	if err != nil {
		t.Fatalf("Load %s: %v\n%s", name, err, buf.String())
	}
	return r, &buf
}

func TestLoad_Minimal(t *testing.T) {
	r, logs := loadFixture(t, "minimal.json")

	n, ok := r.Node("N1")
	if !ok {
		t.Fatalf("expected node N1")
	}
	if n.Name != "Harbor" || n.StartLocalPanic != 2 || n.StartPopulation != 10 {
		t.Fatalf("node=%+v", n)
	}
	if !reflect.DeepEqual(n.Tags, []string{"city", "coast"}) || !reflect.DeepEqual(n.StartAnomalyIDs, []string{"AN_001"}) {
		t.Fatalf("node lists=%+v", n)
	}
	if a, ok := r.Anomaly("AN_001"); !ok || a.Class != "Euclid" || a.BaseThreat != 3 {
		t.Fatalf("anomaly=%+v ok=%v", a, ok)
	}
	ops := r.Operations("EF_FUNDING")
	if len(ops) != 1 || ops[0].Scope != GlobalScope() || ops[0].Op != OpAdd || ops[0].Value != 50 || ops[0].StatKey != "Money" {
		t.Fatalf("ops=%+v", ops)
	}
	if ops[0].Min != nil || ops[0].Max != nil {
		t.Fatalf("min/max should be unset: %+v", ops[0])
	}
	if v, ok := r.BalanceValue("StartMoney"); !ok || v.Value != "100" || v.Type != "int" {
		t.Fatalf("balance value=%+v ok=%v", v, ok)
	}
	if r.Digest == "" || r.Generation == "" || r.LoadedAt.IsZero() {
		t.Fatalf("load metadata not set: %q %q %v", r.Digest, r.Generation, r.LoadedAt)
	}
	if !strings.Contains(logs.String(), "[catalogs] validation passed.") {
		t.Fatalf("expected validation summary, logs:\n%s", logs)
	}
	if !strings.Contains(logs.String(), "[Tables] missing table Events") {
		t.Fatalf("expected missing table warning, logs:\n%s", logs)
	}
	if !strings.Contains(logs.String(), "[Data] schema=1 dataVersion=minimal") {
		t.Fatalf("expected data summary, logs:\n%s", logs)
	}
}

func TestRegistry_RowLevelDegradation(t *testing.T) {
	r, _ := loadFixture(t, "full.json")

	if _, ok := r.TaskDefByID("TD_BAD"); ok {
		t.Fatalf("task def with bad taskType should be dropped")
	}
	if _, ok := r.Event("EV_BAD"); ok {
		t.Fatalf("event with bad causeType should be dropped")
	}
	if len(r.Events()) != 2 {
		t.Fatalf("events=%d want 2", len(r.Events()))
	}
	if got := r.Triggers("EV_RIOT"); len(got) != 1 || got[0].RowID != "TR_2" {
		t.Fatalf("triggers=%+v", got)
	}
	boost := r.Operations("EF_BOOST")
	if len(boost) != 1 || boost[0].Scope != TaskTypeScope(tasks.Investigate) {
		t.Fatalf("EF_BOOST ops=%+v", boost)
	}
	n2, _ := r.Node("N2")
	if n2.Name != "N2" || n2.StartLocalPanic != 0 || n2.StartPopulation != 3 {
		t.Fatalf("N2=%+v", n2)
	}
}

func TestRegistry_TaskDefs(t *testing.T) {
	r, _ := loadFixture(t, "full.json")

	d, ok := r.TaskDef(tasks.Investigate)
	if !ok || d.ID != "TD_INV" {
		t.Fatalf("investigate def=%+v ok=%v", d, ok)
	}
	if lo, hi := r.AgentSlotRange(tasks.Investigate, 1, 4); lo != 2 || hi != 2 {
		t.Fatalf("investigate slots=%d..%d want 2..2", lo, hi)
	}
	if lo, hi := r.AgentSlotRange(tasks.Contain, 1, 4); lo != 1 || hi != 5 {
		t.Fatalf("contain slots=%d..%d want 1..5", lo, hi)
	}
	if lo, hi := r.AgentSlotRange(tasks.Manage, 3, 2); lo != 3 || hi != 3 {
		t.Fatalf("manage slots=%d..%d want 3..3", lo, hi)
	}
	if got := r.TaskBaseDays(tasks.Investigate, 9); got != 4 {
		t.Fatalf("base days=%d", got)
	}
	if got := r.TaskBaseDays(tasks.Contain, 9); got != 9 {
		t.Fatalf("zero base days should fall back, got %d", got)
	}
	if got := r.TaskProgressPerDay(tasks.Investigate, 0.5); got != 0.25 {
		t.Fatalf("progress per day=%v", got)
	}
	con, _ := r.TaskDefByID("TD_CON")
	if !con.HasYieldKey || con.YieldKey != "Money" || !con.HasYieldPerDay || con.YieldPerDay != 2 {
		t.Fatalf("contain yield=%+v", con)
	}
	if d.HasYieldKey || d.HasYieldPerDay {
		t.Fatalf("investigate should have no yield: %+v", d)
	}
}

func TestRegistry_EventsAndOptions(t *testing.T) {
	r, _ := loadFixture(t, "full.json")

	leak, ok := r.Event("EV_LEAK")
	if !ok {
		t.Fatalf("expected EV_LEAK")
	}
	if leak.BlockPolicy != BlockOriginTask || leak.CauseType != CauseTaskInvestigate || leak.Source != SourceRandomDaily {
		t.Fatalf("leak enums=%+v", leak)
	}
	if !reflect.DeepEqual(leak.DefaultAffects, []AffectScope{OriginTaskScope(), NodeScope()}) {
		t.Fatalf("leak affects=%v", leak.DefaultAffects)
	}
	if r.IgnoreApplyMode(leak) != IgnoreApplyOnceThenRemove || r.AutoResolveAfterDays(leak) != 2 {
		t.Fatalf("leak overrides not honoured")
	}

	riot, _ := r.Event("EV_RIOT")
	if r.IgnoreApplyMode(riot) != IgnoreNeverAuto {
		t.Fatalf("unparsable mode should fall back to registry default, got %v", r.IgnoreApplyMode(riot))
	}
	if r.AutoResolveAfterDays(riot) != 4 {
		t.Fatalf("unset auto resolve should fall back to 4, got %d", r.AutoResolveAfterDays(riot))
	}
	if !reflect.DeepEqual(riot.DefaultAffects, []AffectScope{NodeScope(), TaskTypeScope(tasks.Contain)}) {
		t.Fatalf("riot affects=%v", riot.DefaultAffects)
	}

	opts := r.Options("EV_LEAK")
	if len(opts) != 3 || opts[0].OptionID != "A" || opts[1].OptionID != "B" || opts[2].Text != "Seal it again" {
		t.Fatalf("options=%+v", opts)
	}
	if o, ok := r.Option("EV_LEAK", "A"); !ok || o.Text != "Seal it again" {
		t.Fatalf("option lookup should see the later row, got %+v", o)
	}
	if _, ok := r.Option("EV_NONE", "A"); ok {
		t.Fatalf("unexpected option")
	}
}

func TestRegistry_TriggersNewsMediaFacts(t *testing.T) {
	r, _ := loadFixture(t, "full.json")

	trs := r.Triggers("EV_LEAK")
	if len(trs) != 1 {
		t.Fatalf("triggers=%+v", trs)
	}
	tr := trs[0]
	if tr.MinDay == nil || *tr.MinDay != 2 || tr.MaxDay != nil {
		t.Fatalf("days=%v %v", tr.MinDay, tr.MaxDay)
	}
	if tr.TaskType == nil || *tr.TaskType != tasks.Investigate {
		t.Fatalf("task type=%v", tr.TaskType)
	}
	if tr.RequiresSecured == nil || *tr.RequiresSecured || tr.OnlyAffectOriginTask == nil || !*tr.OnlyAffectOriginTask {
		t.Fatalf("bools=%v %v", tr.RequiresSecured, tr.OnlyAffectOriginTask)
	}
	if !reflect.DeepEqual(tr.RequiresNodeTagsAny, []string{"city", "coast"}) {
		t.Fatalf("tags=%v", tr.RequiresNodeTagsAny)
	}

	if n, ok := r.News("NW_BOOT"); !ok || n.Source != SourceBootstrap || n.Weight != 2 {
		t.Fatalf("news=%+v ok=%v", n, ok)
	}
	profiles := r.MediaProfiles()
	if len(profiles) != 3 || profiles[0].ID != "FORMAL" || profiles[2].ID != "INVESTIGATIVE" {
		t.Fatalf("default media profiles=%+v", profiles)
	}
	if got := r.FactTemplates("AnomalySpawned"); len(got) != 2 || got[0].MediaProfileID != "FORMAL" {
		t.Fatalf("fact templates=%+v", got)
	}
}

func TestRegistry_Settings(t *testing.T) {
	r, _ := loadFixture(t, "full.json")
	s := r.Settings()
	if s.LocalPanicHighThreshold != 9 || s.RandomEventBaseProb != 0.25 || s.DefaultAutoResolveAfterDays != 4 || s.DefaultIgnoreApplyMode != IgnoreNeverAuto {
		t.Fatalf("settings=%+v", s)
	}
	if v, ok := r.BalanceValue("LocalPanicHighThreshold"); !ok || v.Value != "8" {
		t.Fatalf("document balance section should be independent, got %+v", v)
	}

	m, _ := loadFixture(t, "minimal.json")
	if got := m.Settings(); got.LocalPanicHighThreshold != 6 || got.RandomEventBaseProb != 0.15 || got.DefaultIgnoreApplyMode != IgnoreApplyDailyKeep {
		t.Fatalf("tuning fallbacks not used: %+v", got)
	}
}

func TestRegistry_AnomalyWarnGetters(t *testing.T) {
	r, logs := loadFixture(t, "full.json")
	logs.Reset()
	if got := r.AnomalyFloat("AN_001", "containRate", 0); got != 0.4 {
		t.Fatalf("containRate=%v", got)
	}
	if got := r.AnomalyInt("AN_001", "nope", 7); got != 7 {
		t.Fatalf("missing column should fall back, got %d", got)
	}
	if got := r.AnomalyInt("AN_001", "name", 5); got != 5 {
		t.Fatalf("non-numeric cell should fall back, got %d", got)
	}
	out := logs.String()
	if !strings.Contains(out, "[WARN] Missing table value: Anomalies.AN_001.nope") || !strings.Contains(out, "[WARN] Invalid int table value") {
		t.Fatalf("logs:\n%s", out)
	}
}

func TestRegistry_Summary(t *testing.T) {
	r, logs := loadFixture(t, "full.json")
	s := r.Summary()
	if s.Events != 2 || s.Options != 4 || s.Effects != 4 || s.Triggers != 2 || s.News != 1 {
		t.Fatalf("summary=%+v", s)
	}
	// EF_CALM 1, EF_PANIC 2 (fan-out), EF_RESUME 1, EF_BOOST 1.
	if s.Operations != 5 {
		t.Fatalf("operations=%d want 5", s.Operations)
	}
	if s.TableRows[TableEffectOps] != 7 || s.SchemaVersion != "2" {
		t.Fatalf("summary=%+v", s)
	}
	if !strings.Contains(logs.String(), "[Tables] sanity Balance[SanityRow].test=ok") {
		t.Fatalf("expected sanity line, logs:\n%s", logs)
	}
}
