package effects

import "time"

// Record describes one Apply call for audit logs and the index.
type Record struct {
	Time       time.Time  `json:"time"`
	Generation string     `json:"generation"`
	EffectID   string     `json:"effect_id"`
	EventDefID string     `json:"event_def_id,omitempty"`
	OptionID   string     `json:"option_id,omitempty"`
	NodeID     string     `json:"node_id,omitempty"`
	TaskID     string     `json:"task_id,omitempty"`
	Applied    int        `json:"applied"`
	Mutations  []Mutation `json:"mutations,omitempty"`
}

// NewRecord summarises a traced application of effectID under ctx.
func NewRecord(generation, effectID string, ctx Context, muts []Mutation) Record {
	r := Record{
		Time:       time.Now().UTC(),
		Generation: generation,
		EffectID:   effectID,
		EventDefID: ctx.EventDefID,
		OptionID:   ctx.OptionID,
		Applied:    len(muts),
		Mutations:  muts,
	}
	if ctx.Node != nil {
		r.NodeID = ctx.Node.ID
	}
	if ctx.OriginTask != nil {
		r.TaskID = ctx.OriginTask.ID
	}
	return r
}
