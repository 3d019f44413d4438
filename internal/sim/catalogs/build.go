package catalogs

import (
	"fmt"
	"log"
	"strings"

	"github.com/hszqf/SCP-sub000/internal/sim/catalogs/cell"
	"github.com/hszqf/SCP-sub000/internal/sim/catalogs/tables"
	"github.com/hszqf/SCP-sub000/internal/sim/tasks"
	"github.com/hszqf/SCP-sub000/internal/sim/tuning"
)

// build turns a decoded document into a registry. Bad rows are skipped with a
// warning; build itself never fails.
func build(doc *Document, logger *log.Logger, tu tuning.Tuning) *Registry {
	r := &Registry{
		Meta:    doc.Meta,
		logger:  logger,
		tuning:  tu,
		warned:  map[string]struct{}{},
		store:   tables.New(doc.Tables),
		balance: doc.Balance,
	}
	if r.balance == nil {
		r.balance = map[string]BalanceValue{}
	}
	r.logger.Printf("[Tables] loaded %d tables", r.store.TableCount())

	r.buildNodes()
	r.buildAnomalies()
	r.buildTaskDefs()
	r.buildEvents()
	r.buildEventOptions()
	r.buildEffects()
	r.buildEffectOps()
	r.buildEventTriggers()
	r.buildNews()
	r.buildMediaProfiles()
	r.buildFactTemplates()

	r.logTablesSanity()
	r.buildSettings()
	return r
}

func (r *Registry) table(name string) (*tables.Table, bool) {
	t, ok := r.store.Table(name)
	if !ok {
		r.logger.Printf("[Tables] missing table %s", name)
	}
	return t, ok
}

func (r *Registry) skipRow(t *tables.Table, i int, err error) {
	r.logger.Printf("[Tables] skip %s row %d: %v", t.Name, i+1, err)
}

// upsert appends d, or replaces the earlier entry with the same id in place.
func upsert[T any](list *[]T, index map[string]int, id string, d T) {
	if i, ok := index[id]; ok {
		(*list)[i] = d
		return
	}
	index[id] = len(*list)
	*list = append(*list, d)
}

func rowID(row *tables.Row, col string) (string, error) {
	id, ok := tables.RowKey(row, col)
	if !ok {
		return "", fmt.Errorf("empty %s", col)
	}
	return id, nil
}

// enumField parses an enum column. A missing or blank cell yields def; an
// authored value that does not parse is an error.
func enumField[T fmt.Stringer](f fieldReader, row *tables.Row, col string, def T, parse func(string) (T, error)) (T, error) {
	raw, ok := f.lookup(row, col, def.String())
	if !ok {
		return def, nil
	}
	s, ok := cell.String(raw)
	if !ok {
		return def, fmt.Errorf("invalid %s: %v", col, raw)
	}
	return parse(s)
}

// scopesField parses an optional scope list column; blank means none.
func scopesField(f fieldReader, row *tables.Row, col string) ([]AffectScope, error) {
	list := f.list(row, col)
	if len(list) == 0 {
		return nil, nil
	}
	return ParseAffectScopes(list)
}

func (r *Registry) buildNodes() {
	r.nodesByID = map[string]int{}
	t, ok := r.table(TableNodes)
	if !ok {
		return
	}
	f := r.fields(t)
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		id, err := rowID(row, "nodeId")
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		upsert(&r.nodes, r.nodesByID, id, NodeDef{
			ID:              id,
			Name:            f.str(row, "name", id),
			Tags:            f.list(row, "tags"),
			StartLocalPanic: f.integer(row, "startLocalPanic", 0),
			StartPopulation: f.integer(row, "startPopulation", 0),
			StartAnomalyIDs: f.list(row, "startAnomalyIds"),
		})
	}
}

func (r *Registry) buildAnomalies() {
	r.anomaliesByID = map[string]int{}
	t, ok := r.table(TableAnomalies)
	if !ok {
		return
	}
	f := r.fields(t)
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		id, err := rowID(row, "anomalyId")
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		upsert(&r.anomalies, r.anomaliesByID, id, AnomalyDef{
			ID:                    id,
			Name:                  f.str(row, "name", id),
			Class:                 f.str(row, "class", ""),
			Tags:                  f.list(row, "tags"),
			BaseThreat:            f.integer(row, "baseThreat", 0),
			InvestigateDifficulty: f.integer(row, "investigateDifficulty", 0),
			ContainDifficulty:     f.integer(row, "containDifficulty", 0),
			ManageRisk:            f.integer(row, "manageRisk", 0),
		})
	}
}

func (r *Registry) buildTaskDefs() {
	r.taskDefsByType = map[tasks.Type]TaskDef{}
	r.taskDefsByID = map[string]TaskDef{}
	t, ok := r.table(TableTaskDefs)
	if !ok {
		return
	}
	f := r.fields(t)
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		id, err := rowID(row, "taskDefId")
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		typ, err := tasks.ParseType(f.str(row, "taskType", ""))
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		d := TaskDef{
			ID:             id,
			Type:           typ,
			Name:           f.str(row, "name", id),
			BaseDays:       f.integer(row, "baseDays", 0),
			ProgressPerDay: f.float(row, "progressPerDay", 0),
			AgentSlotsMin:  f.integer(row, "agentSlotsMin", 0),
			AgentSlotsMax:  f.integer(row, "agentSlotsMax", 0),
			YieldKey:       f.optStr(row, "yieldKey"),
			HasYieldKey:    f.has(row, "yieldKey"),
			HasYieldPerDay: f.has(row, "yieldPerDay"),
		}
		if v := f.optFloat(row, "yieldPerDay"); v != nil {
			d.YieldPerDay = *v
		}
		r.taskDefsByType[typ] = d
		r.taskDefsByID[id] = d
	}
}

func (r *Registry) buildEvents() {
	r.eventsByID = map[string]int{}
	t, ok := r.table(TableEvents)
	if !ok {
		return
	}
	f := r.fields(t)
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		id, err := rowID(row, "eventDefId")
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		d := EventDef{
			ID:                   id,
			Weight:               f.integer(row, "weight", 0),
			Title:                f.str(row, "title", ""),
			Desc:                 f.str(row, "desc", ""),
			AutoResolveAfterDays: f.integer(row, "autoResolveAfterDays", 0),
			IgnoreApplyMode:      f.optStr(row, "ignoreApplyMode"),
			IgnoreEffectID:       f.optStr(row, "ignoreEffectId"),
		}
		if d.Source, err = enumField(f, row, "source", SourceRandomDaily, ParseEventSource); err != nil {
			r.skipRow(t, i, err)
			continue
		}
		if d.CauseType, err = enumField(f, row, "causeType", CauseRandom, ParseCauseType); err != nil {
			r.skipRow(t, i, err)
			continue
		}
		if d.BlockPolicy, err = enumField(f, row, "blockPolicy", BlockNone, ParseBlockPolicy); err != nil {
			r.skipRow(t, i, err)
			continue
		}
		if d.DefaultAffects, err = scopesField(f, row, "defaultAffects"); err != nil {
			r.skipRow(t, i, err)
			continue
		}
		upsert(&r.events, r.eventsByID, id, d)
	}
}

func (r *Registry) buildEventOptions() {
	r.optionsByEvent = map[string][]EventOptionDef{}
	r.optionsByEventAndID = map[string]map[string]EventOptionDef{}
	t, ok := r.table(TableEventOptions)
	if !ok {
		return
	}
	f := r.fields(t)
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		eventID, err := rowID(row, "eventDefId")
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		optionID, err := rowID(row, "optionId")
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		affects, err := scopesField(f, row, "affects")
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		o := EventOptionDef{
			EventDefID: eventID,
			OptionID:   optionID,
			Text:       f.str(row, "text", ""),
			ResultText: f.optStr(row, "resultText"),
			Affects:    affects,
			EffectID:   f.optStr(row, "effectId"),
		}
		r.optionsByEvent[eventID] = append(r.optionsByEvent[eventID], o)
		byID, ok := r.optionsByEventAndID[eventID]
		if !ok {
			byID = map[string]EventOptionDef{}
			r.optionsByEventAndID[eventID] = byID
		}
		byID[optionID] = o
	}
}

func (r *Registry) buildEffects() {
	r.effectsByID = map[string]int{}
	t, ok := r.table(TableEffects)
	if !ok {
		return
	}
	f := r.fields(t)
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		id, err := rowID(row, "effectId")
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		upsert(&r.effects, r.effectsByID, id, EffectDef{ID: id, Comment: f.optStr(row, "comment")})
	}
}

func (r *Registry) buildEffectOps() {
	r.opsByEffect = map[string][]EffectOperation{}
	t, ok := r.table(TableEffectOps)
	if !ok {
		return
	}
	f := r.fields(t)
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		ops, err := r.effectOps(f, row)
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		id := ops[0].EffectID
		r.opsByEffect[id] = append(r.opsByEffect[id], ops...)
	}
}

// effectOps fans one EffectOps row out into one operation per listed scope.
func (r *Registry) effectOps(f fieldReader, row *tables.Row) ([]EffectOperation, error) {
	effectID, err := rowID(row, "effectId")
	if err != nil {
		return nil, err
	}
	op, err := enumField(f, row, "op", OpAdd, ParseEffectOpType)
	if err != nil {
		return nil, err
	}
	raw, ok := f.lookup(row, "scope", "")
	if !ok {
		return nil, fmt.Errorf("AffectScope empty")
	}
	scopes, err := ParseAffectScopes(raw)
	if err != nil {
		return nil, err
	}

	base := EffectOperation{
		EffectID: effectID,
		StatKey:  strings.TrimSpace(f.str(row, "statKey", "")),
		Op:       op,
		Value:    f.float(row, "value", 0),
		Min:      f.optFloat(row, "min"),
		Max:      f.optFloat(row, "max"),
		Comment:  f.optStr(row, "comment"),
	}
	out := make([]EffectOperation, 0, len(scopes))
	for _, s := range scopes {
		o := base
		o.Scope = s
		out = append(out, o)
	}
	return out, nil
}

func (r *Registry) buildEventTriggers() {
	r.triggersByEvent = map[string][]EventTrigger{}
	t, ok := r.table(TableEventTriggers)
	if !ok {
		return
	}
	f := r.fields(t)
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		eventID, err := rowID(row, "eventDefId")
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		tr := EventTrigger{
			RowID:                  f.optStr(row, "rowId"),
			EventDefID:             eventID,
			MinDay:                 f.optInt(row, "minDay"),
			MaxDay:                 f.optInt(row, "maxDay"),
			RequiresNodeTagsAny:    f.optList(row, "requiresNodeTagsAny"),
			RequiresNodeTagsAll:    f.optList(row, "requiresNodeTagsAll"),
			RequiresAnomalyTagsAny: f.optList(row, "requiresAnomalyTagsAny"),
			RequiresSecured:        f.optBool(row, "requiresSecured"),
			MinLocalPanic:          f.optInt(row, "minLocalPanic"),
			OnlyAffectOriginTask:   f.optBool(row, "onlyAffectOriginTask"),
		}
		if f.has(row, "taskType") {
			typ, err := tasks.ParseType(f.optStr(row, "taskType"))
			if err != nil {
				r.skipRow(t, i, err)
				continue
			}
			tr.TaskType = &typ
		}
		r.triggersByEvent[eventID] = append(r.triggersByEvent[eventID], tr)
	}
}

func (r *Registry) buildNews() {
	r.newsByID = map[string]int{}
	t, ok := r.table(TableNewsDefs)
	if !ok {
		return
	}
	f := r.fields(t)
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		id, err := rowID(row, "newsDefId")
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		source, err := enumField(f, row, "source", SourceRandomDaily, ParseEventSource)
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		upsert(&r.news, r.newsByID, id, NewsDef{
			ID:     id,
			Source: source,
			MinDay: f.integer(row, "minDay", 0),
			Weight: f.integer(row, "weight", 1),
			Title:  f.str(row, "title", ""),
			Desc:   f.str(row, "desc", ""),
			Tags:   f.optList(row, "tags"),
		})
	}
}

func (r *Registry) buildMediaProfiles() {
	t, ok := r.table(TableMediaProfiles)
	if !ok {
		return
	}
	f := r.fields(t)
	seen := map[string]int{}
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		id, err := rowID(row, "profileId")
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		upsert(&r.mediaProfiles, seen, id, MediaProfileDef{
			ID:     id,
			Name:   f.str(row, "name", id),
			Tone:   f.str(row, "tone", ""),
			Weight: f.integer(row, "weight", 1),
		})
	}
}

func (r *Registry) buildFactTemplates() {
	r.factTemplatesByType = map[string][]FactTemplateDef{}
	t, ok := r.table(TableFactTemplates)
	if !ok {
		return
	}
	f := r.fields(t)
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		id, err := rowID(row, "templateId")
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		factType, err := rowID(row, "factType")
		if err != nil {
			r.skipRow(t, i, err)
			continue
		}
		r.factTemplatesByType[factType] = append(r.factTemplatesByType[factType], FactTemplateDef{
			ID:             id,
			FactType:       factType,
			MediaProfileID: f.optStr(row, "mediaProfileId"),
			Title:          f.str(row, "title", ""),
			Desc:           f.str(row, "desc", ""),
			Weight:         f.integer(row, "weight", 1),
		})
	}
}

func (r *Registry) buildSettings() {
	tu := r.tuning
	mode, err := ParseIgnoreApplyMode(tu.DefaultIgnoreApplyMode)
	if err != nil {
		mode = IgnoreApplyDailyKeep
	}
	s := Settings{
		LocalPanicHighThreshold:     r.BalanceInt("LocalPanicHighThreshold", tu.LocalPanicHighThreshold),
		RandomEventBaseProb:         r.BalanceFloat("RandomEventBaseProb", tu.RandomEventBaseProb),
		DefaultAutoResolveAfterDays: r.BalanceInt("DefaultAutoResolveAfterDays", tu.DefaultAutoResolveAfterDays),
		DefaultIgnoreApplyMode:      mode,
	}
	if m, err := ParseIgnoreApplyMode(r.BalanceString("DefaultIgnoreApplyMode", mode.String())); err == nil {
		s.DefaultIgnoreApplyMode = m
	}
	r.settings = s
}

var balanceColumns = []string{balanceKeyColumn, balanceIntColumn, balanceFloatColumn, balanceStringColumn}

func (r *Registry) logTablesSanity() {
	if t, ok := r.table(TableBalance); ok {
		var missing []string
		for _, c := range balanceColumns {
			if !t.HasColumn(c) {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			cols := strings.Join(t.ColumnNames(), ", ")
			if cols == "" {
				cols = "none"
			}
			r.logger.Printf("[Tables] Balance missing columns: %s. columns=[%s]", strings.Join(missing, ", "), cols)
		}
	}
	if hit, ok := r.store.FindFirst("test"); ok {
		v, _ := cell.String(hit.Value)
		r.logger.Printf("[Tables] sanity %s[%s].test=%s", hit.Table, hit.RowID, v)
	}
}
