package catalogs

import (
	"fmt"
	"strings"

	"github.com/hszqf/SCP-sub000/internal/sim/catalogs/cell"
	"github.com/hszqf/SCP-sub000/internal/sim/catalogs/tables"
	"github.com/hszqf/SCP-sub000/internal/sim/tasks"
)

// Violation pins one structural problem to a cell. Row is 1-based; for
// findings spanning several rows it lists them comma-separated.
type Violation struct {
	Table    string `json:"table"`
	Row      string `json:"row"`
	Column   string `json:"column"`
	Value    string `json:"value"`
	Expected string `json:"expected"`
}

func (v Violation) String() string {
	value := v.Value
	if value == "" {
		value = "<empty>"
	}
	return fmt.Sprintf("sheet=%s row=%s col=%s value=%s expected=%s", v.Table, v.Row, v.Column, value, v.Expected)
}

// ValidationError carries every violation found in one pass.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "validation failed (%d):", len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n - ")
		b.WriteString(v.String())
	}
	return b.String()
}

// Validate checks that every table declaring an idField has a non-empty,
// unique key on each row. All violations are reported together.
func Validate(r *Registry) error {
	var out []Violation
	for _, name := range r.store.TableNames() {
		t, _ := r.store.Table(name)
		out = append(out, primaryKeyViolations(t)...)
	}
	if len(out) > 0 {
		return &ValidationError{Violations: out}
	}
	r.logger.Printf("[catalogs] validation passed. events=%d options=%d news=%d effects=%d ops=%d",
		len(r.store.Rows(TableEvents)),
		len(r.store.Rows(TableEventOptions)),
		len(r.store.Rows(TableNewsDefs)),
		len(r.store.Rows(TableEffects)),
		len(r.store.Rows(TableEffectOps)),
	)
	return nil
}

func primaryKeyViolations(t *tables.Table) []Violation {
	if t == nil || t.IDField == "" {
		return nil
	}
	var out []Violation
	seen := map[string]bool{}
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		raw, _ := row.Get(t.IDField)
		id, _ := cell.String(raw)
		if id == "" {
			out = append(out, violation(t.Name, i, t.IDField, "", "non-empty idField"))
			continue
		}
		if seen[id] {
			out = append(out, violation(t.Name, i, t.IDField, id, "unique idField"))
			continue
		}
		seen[id] = true
	}
	return out
}

func violation(table string, i int, col, value, expected string) Violation {
	return Violation{Table: table, Row: fmt.Sprint(i + 1), Column: col, Value: value, Expected: expected}
}

func rowString(row *tables.Row, col string) string {
	raw, ok := row.Get(col)
	if !ok {
		return ""
	}
	s, _ := cell.String(raw)
	return s
}

// Lint runs the advisory content checks: enum cells, cross-table references,
// duplicate event options and BlockOriginTask wiring. Findings never block a
// load.
func Lint(r *Registry) []Violation {
	var out []Violation
	out = append(out, lintEnums(r)...)
	out = append(out, lintReferences(r)...)
	out = append(out, lintBlockOriginTask(r)...)
	return out
}

func lintEnums(r *Registry) []Violation {
	var out []Violation
	for i, row := range r.store.Rows(TableEvents) {
		if row == nil {
			continue
		}
		if s := rowString(row, "source"); s != "" {
			if _, err := ParseEventSource(s); err != nil {
				out = append(out, violation(TableEvents, i, "source", s, err.Error()))
			}
		}
		if s := rowString(row, "causeType"); s != "" {
			if _, err := ParseCauseType(s); err != nil {
				out = append(out, violation(TableEvents, i, "causeType", s, err.Error()))
			}
		}
		if s := rowString(row, "blockPolicy"); s != "" {
			if _, err := ParseBlockPolicy(s); err != nil {
				out = append(out, violation(TableEvents, i, "blockPolicy", s, err.Error()))
			}
		}
		if s := rowString(row, "ignoreApplyMode"); s != "" {
			if _, err := ParseIgnoreApplyMode(s); err != nil {
				out = append(out, violation(TableEvents, i, "ignoreApplyMode", s, err.Error()))
			}
		}
		raw, _ := row.Get("defaultAffects")
		if affects := cell.Strings(raw); len(affects) > 0 {
			if _, err := ParseAffectScopes(affects); err != nil {
				out = append(out, violation(TableEvents, i, "defaultAffects", strings.Join(affects, ";"), err.Error()))
			}
		}
	}
	for i, row := range r.store.Rows(TableEventOptions) {
		if row == nil {
			continue
		}
		raw, _ := row.Get("affects")
		if affects := cell.Strings(raw); len(affects) > 0 {
			if _, err := ParseAffectScopes(affects); err != nil {
				out = append(out, violation(TableEventOptions, i, "affects", strings.Join(affects, ";"), err.Error()))
			}
		}
	}
	for i, row := range r.store.Rows(TableNewsDefs) {
		if row == nil {
			continue
		}
		if s := rowString(row, "source"); s != "" {
			if _, err := ParseEventSource(s); err != nil {
				out = append(out, violation(TableNewsDefs, i, "source", s, err.Error()))
			}
		}
	}
	for i, row := range r.store.Rows(TableEffectOps) {
		if row == nil {
			continue
		}
		raw, _ := row.Get("scope")
		if _, err := ParseAffectScopes(raw); err != nil {
			s, _ := cell.String(raw)
			out = append(out, violation(TableEffectOps, i, "scope", s, err.Error()))
		}
		op := rowString(row, "op")
		if _, err := ParseEffectOpType(op); err != nil {
			out = append(out, violation(TableEffectOps, i, "op", op, err.Error()))
		}
	}
	for i, row := range r.store.Rows(TableEventTriggers) {
		if row == nil {
			continue
		}
		if s := rowString(row, "taskType"); s != "" {
			if _, err := tasks.ParseType(s); err != nil {
				out = append(out, violation(TableEventTriggers, i, "taskType", s, err.Error()))
			}
		}
	}
	return out
}

func lintReferences(r *Registry) []Violation {
	var out []Violation
	type optionKey struct{ event, option string }
	optionRows := map[optionKey][]string{}
	var optionOrder []optionKey

	for i, row := range r.store.Rows(TableEventOptions) {
		if row == nil {
			continue
		}
		eventID := rowString(row, "eventDefId")
		if _, ok := r.eventsByID[eventID]; !ok {
			out = append(out, violation(TableEventOptions, i, "eventDefId", eventID, "existing Events.eventDefId"))
		}
		if effectID := rowString(row, "effectId"); effectID != "" {
			if _, ok := r.effectsByID[effectID]; !ok {
				out = append(out, violation(TableEventOptions, i, "effectId", effectID, "existing Effects.effectId"))
			}
		}
		k := optionKey{eventID, rowString(row, "optionId")}
		if _, ok := optionRows[k]; !ok {
			optionOrder = append(optionOrder, k)
		}
		optionRows[k] = append(optionRows[k], fmt.Sprint(i+1))
	}
	for _, k := range optionOrder {
		rows := optionRows[k]
		if len(rows) < 2 {
			continue
		}
		out = append(out, Violation{
			Table:    TableEventOptions,
			Row:      strings.Join(rows, ","),
			Column:   "eventDefId+optionId",
			Value:    k.event + "/" + k.option,
			Expected: "unique combination",
		})
	}

	for i, row := range r.store.Rows(TableEvents) {
		if row == nil {
			continue
		}
		if effectID := rowString(row, "ignoreEffectId"); effectID != "" {
			if _, ok := r.effectsByID[effectID]; !ok {
				out = append(out, violation(TableEvents, i, "ignoreEffectId", effectID, "existing Effects.effectId"))
			}
		}
	}
	for i, row := range r.store.Rows(TableEffectOps) {
		if row == nil {
			continue
		}
		effectID := rowString(row, "effectId")
		if _, ok := r.effectsByID[effectID]; !ok {
			out = append(out, violation(TableEffectOps, i, "effectId", effectID, "existing Effects.effectId"))
		}
	}
	return out
}

// lintBlockOriginTask requires every BlockOriginTask event to reach an
// OriginTask TaskProgressDelta Add operation through its ignore effect or
// one of its options.
func lintBlockOriginTask(r *Registry) []Violation {
	var out []Violation
	for i, row := range r.store.Rows(TableEvents) {
		if row == nil {
			continue
		}
		eventID := rowString(row, "eventDefId")
		bp := rowString(row, "blockPolicy")
		if eventID == "" {
			continue
		}
		if p, err := ParseBlockPolicy(bp); err != nil || p != BlockOriginTask {
			continue
		}
		var effectIDs []string
		if id := rowString(row, "ignoreEffectId"); id != "" {
			effectIDs = append(effectIDs, id)
		}
		for _, o := range r.Options(eventID) {
			if o.EffectID != "" {
				effectIDs = append(effectIDs, o.EffectID)
			}
		}
		if !anyOriginTaskProgressAdd(r, effectIDs) {
			out = append(out, violation(TableEvents, i, "blockPolicy", bp, "BlockOriginTask with OriginTask TaskProgressDelta Add op"))
		}
	}
	return out
}

func anyOriginTaskProgressAdd(r *Registry, effectIDs []string) bool {
	for _, id := range effectIDs {
		for _, op := range r.Operations(id) {
			if op.Scope.Kind == ScopeOriginTask && op.Op == OpAdd && strings.EqualFold(op.StatKey, "TaskProgressDelta") {
				return true
			}
		}
	}
	return false
}
