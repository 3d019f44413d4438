package catalogs

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// parseEnum matches raw against names case-insensitively and returns the
// index of the match. label names the enum in error messages.
func parseEnum[T ~int](label string, names []string, raw string) (T, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s empty", label)
	}
	fold := cases.Fold()
	want := fold.String(raw)
	for i, n := range names {
		if fold.String(n) == want {
			return T(i), nil
		}
	}
	return 0, fmt.Errorf("invalid %s: %s", label, raw)
}

func enumName(label string, names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("%s(%d)", label, i)
	}
	return names[i]
}

type BlockPolicy int

const (
	BlockNone BlockPolicy = iota
	BlockOriginTask
	BlockAllTasksOnNode
)

var blockPolicyNames = []string{"None", "BlockOriginTask", "BlockAllTasksOnNode"}

func ParseBlockPolicy(raw string) (BlockPolicy, error) {
	return parseEnum[BlockPolicy]("BlockPolicy", blockPolicyNames, raw)
}

func (p BlockPolicy) String() string { return enumName("BlockPolicy", blockPolicyNames, int(p)) }

func (p BlockPolicy) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

type IgnoreApplyMode int

const (
	IgnoreApplyOnceThenRemove IgnoreApplyMode = iota
	IgnoreApplyDailyKeep
	IgnoreNeverAuto
)

var ignoreApplyModeNames = []string{"ApplyOnceThenRemove", "ApplyDailyKeep", "NeverAuto"}

func ParseIgnoreApplyMode(raw string) (IgnoreApplyMode, error) {
	return parseEnum[IgnoreApplyMode]("IgnoreApplyMode", ignoreApplyModeNames, raw)
}

func (m IgnoreApplyMode) String() string {
	return enumName("IgnoreApplyMode", ignoreApplyModeNames, int(m))
}

func (m IgnoreApplyMode) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

type EffectOpType int

const (
	OpAdd EffectOpType = iota
	OpMul
	OpSet
	// OpClampAdd adds then clamps to the operation's own bounds.
	OpClampAdd
)

var effectOpTypeNames = []string{"Add", "Mul", "Set", "ClampAdd"}

func ParseEffectOpType(raw string) (EffectOpType, error) {
	return parseEnum[EffectOpType]("EffectOpType", effectOpTypeNames, raw)
}

func (o EffectOpType) String() string { return enumName("EffectOpType", effectOpTypeNames, int(o)) }

func (o EffectOpType) MarshalJSON() ([]byte, error) { return json.Marshal(o.String()) }

type AffectScopeKind int

const (
	ScopeOriginTask AffectScopeKind = iota
	ScopeNode
	ScopeGlobal
	ScopeTaskType
)

var affectScopeKindNames = []string{"OriginTask", "Node", "Global", "TaskType"}

func ParseAffectScopeKind(raw string) (AffectScopeKind, error) {
	return parseEnum[AffectScopeKind]("AffectScope", affectScopeKindNames, raw)
}

func (k AffectScopeKind) String() string {
	return enumName("AffectScopeKind", affectScopeKindNames, int(k))
}

type CauseType int

const (
	CauseTaskInvestigate CauseType = iota
	CauseTaskContain
	CauseTaskManage
	CauseAnomaly
	CauseLocalPanic
	CauseFixed
	CauseRandom
)

var causeTypeNames = []string{
	"TaskInvestigate", "TaskContain", "TaskManage", "Anomaly", "LocalPanic", "Fixed", "Random",
}

func ParseCauseType(raw string) (CauseType, error) {
	return parseEnum[CauseType]("CauseType", causeTypeNames, raw)
}

func (c CauseType) String() string { return enumName("CauseType", causeTypeNames, int(c)) }

func (c CauseType) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

type EventSource int

const (
	SourceRandom EventSource = iota
	SourceRandomDaily
	SourceBootstrap
)

var eventSourceNames = []string{"Random", "RandomDaily", "Bootstrap"}

func ParseEventSource(raw string) (EventSource, error) {
	return parseEnum[EventSource]("EventSource", eventSourceNames, raw)
}

func (s EventSource) String() string { return enumName("EventSource", eventSourceNames, int(s)) }

func (s EventSource) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }
