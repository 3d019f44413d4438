package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/hszqf/SCP-sub000/internal/sim/catalogs/cell"
	"github.com/hszqf/SCP-sub000/internal/sim/catalogs/tables"
	"github.com/hszqf/SCP-sub000/internal/sim/tasks"
	"github.com/hszqf/SCP-sub000/internal/sim/tuning"
)

// Document is the decoded content file.
type Document struct {
	Meta    Meta                     `json:"meta"`
	Balance map[string]BalanceValue  `json:"balance"`
	Tables  map[string]*tables.Table `json:"tables"`
}

type Meta struct {
	SchemaVersion string `json:"schemaVersion"`
	DataVersion   string `json:"dataVersion"`
	Comment       string `json:"comment,omitempty"`
}

// UnmarshalJSON accepts scalar values of any JSON type and keeps their text.
func (b *BalanceValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value   any `json:"value"`
		Type    any `json:"type"`
		Comment any `json:"comment"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	b.Value, _ = cell.String(raw.Value)
	b.Type, _ = cell.String(raw.Type)
	b.Comment, _ = cell.String(raw.Comment)
	return nil
}

// Settings are registry-wide values read from the Balance table, falling back
// to tuning defaults.
type Settings struct {
	LocalPanicHighThreshold     int             `json:"local_panic_high_threshold"`
	RandomEventBaseProb         float64         `json:"random_event_base_prob"`
	DefaultAutoResolveAfterDays int             `json:"default_auto_resolve_after_days"`
	DefaultIgnoreApplyMode      IgnoreApplyMode `json:"default_ignore_apply_mode"`
}

// Registry is the immutable, query-ready result of loading one document.
// Replace it wholesale; never mutate it after build.
type Registry struct {
	Generation string
	Digest     string
	Meta       Meta
	LoadedAt   time.Time

	logger   *log.Logger
	tuning   tuning.Tuning
	warned   map[string]struct{}
	store    *tables.Store
	balance  map[string]BalanceValue
	settings Settings

	nodes     []NodeDef
	nodesByID map[string]int

	anomalies     []AnomalyDef
	anomaliesByID map[string]int

	taskDefsByType map[tasks.Type]TaskDef
	taskDefsByID   map[string]TaskDef

	events     []EventDef
	eventsByID map[string]int

	optionsByEvent      map[string][]EventOptionDef
	optionsByEventAndID map[string]map[string]EventOptionDef

	effects     []EffectDef
	effectsByID map[string]int
	opsByEffect map[string][]EffectOperation

	triggersByEvent map[string][]EventTrigger

	news     []NewsDef
	newsByID map[string]int

	mediaProfiles       []MediaProfileDef
	factTemplatesByType map[string][]FactTemplateDef
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (r *Registry) Tables() *tables.Store { return r.store }

func (r *Registry) Settings() Settings { return r.settings }

func (r *Registry) Node(id string) (NodeDef, bool) {
	i, ok := r.nodesByID[id]
	if !ok {
		return NodeDef{}, false
	}
	return r.nodes[i], true
}

// Nodes returns node definitions in source order.
func (r *Registry) Nodes() []NodeDef { return r.nodes }

func (r *Registry) Anomaly(id string) (AnomalyDef, bool) {
	i, ok := r.anomaliesByID[id]
	if !ok {
		return AnomalyDef{}, false
	}
	return r.anomalies[i], true
}

func (r *Registry) Anomalies() []AnomalyDef { return r.anomalies }

func (r *Registry) TaskDef(t tasks.Type) (TaskDef, bool) {
	d, ok := r.taskDefsByType[t]
	return d, ok
}

func (r *Registry) TaskDefByID(id string) (TaskDef, bool) {
	d, ok := r.taskDefsByID[id]
	return d, ok
}

// AgentSlotRange uses the task definition's own bounds when positive and the
// fallbacks otherwise. The returned max is never below min.
func (r *Registry) AgentSlotRange(t tasks.Type, fbMin, fbMax int) (int, int) {
	lo, hi := fbMin, fbMax
	if d, ok := r.TaskDef(t); ok {
		if d.AgentSlotsMin > 0 {
			lo = d.AgentSlotsMin
		}
		if d.AgentSlotsMax > 0 {
			hi = d.AgentSlotsMax
		}
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func (r *Registry) TaskBaseDays(t tasks.Type, fallback int) int {
	if d, ok := r.TaskDef(t); ok && d.BaseDays > 0 {
		return d.BaseDays
	}
	return fallback
}

func (r *Registry) TaskProgressPerDay(t tasks.Type, fallback float32) float32 {
	if d, ok := r.TaskDef(t); ok && d.ProgressPerDay > 0 {
		return d.ProgressPerDay
	}
	return fallback
}

func (r *Registry) Event(id string) (EventDef, bool) {
	i, ok := r.eventsByID[id]
	if !ok {
		return EventDef{}, false
	}
	return r.events[i], true
}

func (r *Registry) Events() []EventDef { return r.events }

// Options returns an event's options in source order.
func (r *Registry) Options(eventDefID string) []EventOptionDef {
	return r.optionsByEvent[eventDefID]
}

func (r *Registry) Option(eventDefID, optionID string) (EventOptionDef, bool) {
	byID, ok := r.optionsByEventAndID[eventDefID]
	if !ok {
		return EventOptionDef{}, false
	}
	o, ok := byID[optionID]
	return o, ok
}

func (r *Registry) Effect(id string) (EffectDef, bool) {
	i, ok := r.effectsByID[id]
	if !ok {
		return EffectDef{}, false
	}
	return r.effects[i], true
}

func (r *Registry) Effects() []EffectDef { return r.effects }

// Operations returns the operations of an effect in source order, fanned out
// per scope.
func (r *Registry) Operations(effectID string) []EffectOperation {
	return r.opsByEffect[effectID]
}

func (r *Registry) Triggers(eventDefID string) []EventTrigger {
	return r.triggersByEvent[eventDefID]
}

func (r *Registry) News(id string) (NewsDef, bool) {
	i, ok := r.newsByID[id]
	if !ok {
		return NewsDef{}, false
	}
	return r.news[i], true
}

func (r *Registry) NewsDefs() []NewsDef { return r.news }

// MediaProfiles falls back to the built-in FORMAL/SENSATIONAL/INVESTIGATIVE
// set when the document defines none.
func (r *Registry) MediaProfiles() []MediaProfileDef {
	if len(r.mediaProfiles) > 0 {
		return r.mediaProfiles
	}
	return defaultMediaProfiles
}

func (r *Registry) FactTemplates(factType string) []FactTemplateDef {
	return r.factTemplatesByType[factType]
}

// IgnoreApplyMode resolves an event's authored mode, falling back to the
// registry default when unset or unparsable.
func (r *Registry) IgnoreApplyMode(def EventDef) IgnoreApplyMode {
	if m, err := ParseIgnoreApplyMode(def.IgnoreApplyMode); err == nil {
		return m
	}
	return r.settings.DefaultIgnoreApplyMode
}

func (r *Registry) AutoResolveAfterDays(def EventDef) int {
	if def.AutoResolveAfterDays > 0 {
		return def.AutoResolveAfterDays
	}
	return r.settings.DefaultAutoResolveAfterDays
}

// AnomalyInt reads an arbitrary Anomalies column, warning on every miss.
func (r *Registry) AnomalyInt(anomalyID, column string, fallback int) int {
	raw, ok := r.store.Value(TableAnomalies, anomalyID, column)
	if !ok {
		r.logger.Printf("[WARN] Missing table value: %s.%s.%s. Using fallback=%d.", TableAnomalies, anomalyID, column, fallback)
		return fallback
	}
	if n, ok := cell.Int(raw); ok {
		return n
	}
	r.logger.Printf("[WARN] Invalid int table value: %s.%s.%s=%v. Using fallback=%d.", TableAnomalies, anomalyID, column, raw, fallback)
	return fallback
}

func (r *Registry) AnomalyFloat(anomalyID, column string, fallback float64) float64 {
	raw, ok := r.store.Value(TableAnomalies, anomalyID, column)
	if !ok {
		r.logger.Printf("[WARN] Missing table value: %s.%s.%s. Using fallback=%v.", TableAnomalies, anomalyID, column, fallback)
		return fallback
	}
	if f, ok := cell.Float(raw); ok {
		return f
	}
	r.logger.Printf("[WARN] Invalid float table value: %s.%s.%s=%v. Using fallback=%v.", TableAnomalies, anomalyID, column, raw, fallback)
	return fallback
}

// Summary counts what a registry holds. Row counts are raw table rows;
// definition counts are what survived row-level checks.
type Summary struct {
	Generation    string         `json:"generation"`
	Digest        string         `json:"digest"`
	SchemaVersion string         `json:"schema_version"`
	DataVersion   string         `json:"data_version"`
	LoadedAt      time.Time      `json:"loaded_at"`
	Nodes         int            `json:"nodes"`
	Anomalies     int            `json:"anomalies"`
	TaskDefs      int            `json:"task_defs"`
	Events        int            `json:"events"`
	Options       int            `json:"options"`
	Effects       int            `json:"effects"`
	Operations    int            `json:"operations"`
	Triggers      int            `json:"triggers"`
	News          int            `json:"news"`
	TableRows     map[string]int `json:"table_rows"`
}

func (r *Registry) Summary() Summary {
	s := Summary{
		Generation:    r.Generation,
		Digest:        r.Digest,
		SchemaVersion: orUnknown(r.Meta.SchemaVersion),
		DataVersion:   orUnknown(r.Meta.DataVersion),
		LoadedAt:      r.LoadedAt,
		Nodes:         len(r.nodes),
		Anomalies:     len(r.anomalies),
		TaskDefs:      len(r.taskDefsByID),
		Events:        len(r.events),
		Effects:       len(r.effects),
		News:          len(r.news),
		TableRows:     map[string]int{},
	}
	for _, opts := range r.optionsByEvent {
		s.Options += len(opts)
	}
	for _, ops := range r.opsByEffect {
		s.Operations += len(ops)
	}
	for _, trs := range r.triggersByEvent {
		s.Triggers += len(trs)
	}
	for _, name := range r.store.TableNames() {
		s.TableRows[name] = len(r.store.Rows(name))
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
