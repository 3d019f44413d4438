package catalogs

import (
	"github.com/hszqf/SCP-sub000/internal/sim/catalogs/cell"
	"github.com/hszqf/SCP-sub000/internal/sim/tasks"
)

// Table names the registry builds from.
const (
	TableBalance       = "Balance"
	TableNodes         = "Nodes"
	TableAnomalies     = "Anomalies"
	TableTaskDefs      = "TaskDefs"
	TableEvents        = "Events"
	TableEventOptions  = "EventOptions"
	TableEffects       = "Effects"
	TableEffectOps     = "EffectOps"
	TableEventTriggers = "EventTriggers"
	TableNewsDefs      = "NewsDefs"
	TableMediaProfiles = "MediaProfiles"
	TableFactTemplates = "FactTemplates"
)

type NodeDef struct {
	ID              string   `json:"node_id"`
	Name            string   `json:"name"`
	Tags            []string `json:"tags,omitempty"`
	StartLocalPanic int      `json:"start_local_panic"`
	StartPopulation int      `json:"start_population"`
	StartAnomalyIDs []string `json:"start_anomaly_ids,omitempty"`
}

type AnomalyDef struct {
	ID                    string   `json:"anomaly_id"`
	Name                  string   `json:"name"`
	Class                 string   `json:"class"`
	Tags                  []string `json:"tags,omitempty"`
	BaseThreat            int      `json:"base_threat"`
	InvestigateDifficulty int      `json:"investigate_difficulty"`
	ContainDifficulty     int      `json:"contain_difficulty"`
	ManageRisk            int      `json:"manage_risk"`
}

type TaskDef struct {
	ID             string     `json:"task_def_id"`
	Type           tasks.Type `json:"task_type"`
	Name           string     `json:"name"`
	BaseDays       int        `json:"base_days"`
	ProgressPerDay float32    `json:"progress_per_day"`
	AgentSlotsMin  int        `json:"agent_slots_min"`
	AgentSlotsMax  int        `json:"agent_slots_max"`
	YieldKey       string     `json:"yield_key,omitempty"`
	YieldPerDay    float32    `json:"yield_per_day,omitempty"`
	HasYieldKey    bool       `json:"has_yield_key"`
	HasYieldPerDay bool       `json:"has_yield_per_day"`
}

// EventDef keeps IgnoreApplyMode as authored; Registry.IgnoreApplyMode resolves
// it against the registry default.
type EventDef struct {
	ID                   string        `json:"event_def_id"`
	Source               EventSource   `json:"source"`
	CauseType            CauseType     `json:"cause_type"`
	Weight               int           `json:"weight"`
	Title                string        `json:"title"`
	Desc                 string        `json:"desc"`
	BlockPolicy          BlockPolicy   `json:"block_policy"`
	DefaultAffects       []AffectScope `json:"default_affects,omitempty"`
	AutoResolveAfterDays int           `json:"auto_resolve_after_days"`
	IgnoreApplyMode      string        `json:"ignore_apply_mode,omitempty"`
	IgnoreEffectID       string        `json:"ignore_effect_id,omitempty"`
}

type EventOptionDef struct {
	EventDefID string        `json:"event_def_id"`
	OptionID   string        `json:"option_id"`
	Text       string        `json:"text"`
	ResultText string        `json:"result_text,omitempty"`
	Affects    []AffectScope `json:"affects,omitempty"`
	EffectID   string        `json:"effect_id,omitempty"`
}

type NewsDef struct {
	ID     string      `json:"news_def_id"`
	Source EventSource `json:"source"`
	MinDay int         `json:"min_day"`
	Weight int         `json:"weight"`
	Title  string      `json:"title"`
	Desc   string      `json:"desc"`
	Tags   []string    `json:"tags,omitempty"`
}

type MediaProfileDef struct {
	ID     string `json:"profile_id"`
	Name   string `json:"name"`
	Tone   string `json:"tone"`
	Weight int    `json:"weight"`
}

type FactTemplateDef struct {
	ID             string `json:"template_id"`
	FactType       string `json:"fact_type"`
	MediaProfileID string `json:"media_profile_id,omitempty"`
	Title          string `json:"title"`
	Desc           string `json:"desc"`
	Weight         int    `json:"weight"`
}

type EffectDef struct {
	ID      string `json:"effect_id"`
	Comment string `json:"comment,omitempty"`
}

// EffectOperation is one typed mutation. An authored row listing several
// scopes produces one operation per scope.
type EffectOperation struct {
	EffectID string       `json:"effect_id"`
	Scope    AffectScope  `json:"scope"`
	StatKey  string       `json:"stat_key"`
	Op       EffectOpType `json:"op"`
	Value    float32      `json:"value"`
	Min      *float32     `json:"min,omitempty"`
	Max      *float32     `json:"max,omitempty"`
	Comment  string       `json:"comment,omitempty"`
}

// EventTrigger gates when an event may fire. Nil fields are unconstrained.
type EventTrigger struct {
	RowID                  string      `json:"row_id"`
	EventDefID             string      `json:"event_def_id"`
	MinDay                 *int        `json:"min_day,omitempty"`
	MaxDay                 *int        `json:"max_day,omitempty"`
	RequiresNodeTagsAny    []string    `json:"requires_node_tags_any,omitempty"`
	RequiresNodeTagsAll    []string    `json:"requires_node_tags_all,omitempty"`
	RequiresAnomalyTagsAny []string    `json:"requires_anomaly_tags_any,omitempty"`
	RequiresSecured        *bool       `json:"requires_secured,omitempty"`
	MinLocalPanic          *int        `json:"min_local_panic,omitempty"`
	TaskType               *tasks.Type `json:"task_type,omitempty"`
	OnlyAffectOriginTask   *bool       `json:"only_affect_origin_task,omitempty"`
}

// BalanceValue is one entry of the document-level balance section.
type BalanceValue struct {
	Value   string `json:"value"`
	Type    string `json:"type,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// Int reads the value as an integer cell.
func (b BalanceValue) Int() (int, bool) { return cell.Int(b.Value) }

func (b BalanceValue) Float() (float64, bool) { return cell.Float(b.Value) }

var defaultMediaProfiles = []MediaProfileDef{
	{ID: "FORMAL", Name: "正式报道", Tone: "neutral", Weight: 1},
	{ID: "SENSATIONAL", Name: "耸人听闻", Tone: "alarmist", Weight: 1},
	{ID: "INVESTIGATIVE", Name: "调查报道", Tone: "analytical", Weight: 1},
}
