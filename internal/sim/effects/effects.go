// Package effects applies authored effect operations to simulation state.
package effects

import (
	"log"
	"math"
	"strings"

	"github.com/hszqf/SCP-sub000/internal/sim/catalogs"
	"github.com/hszqf/SCP-sub000/internal/sim/state"
	"github.com/hszqf/SCP-sub000/internal/sim/tasks"
)

// Stat keys understood per scope.
const (
	StatLocalPanic        = "LocalPanic"
	StatPopulation        = "Population"
	StatTaskProgressDelta = "TaskProgressDelta"
	StatWorldPanic        = "WorldPanic"
	StatPanic             = "Panic"
	StatMoney             = "Money"
	StatNegEntropy        = "NegEntropy"
)

// Balance keys holding the global floors.
const (
	BalanceClampWorldPanicMin = "ClampWorldPanicMin"
	BalanceClampMoneyMin      = "ClampMoneyMin"
)

// Catalog is the part of a registry the interpreter reads.
type Catalog interface {
	Operations(effectID string) []catalogs.EffectOperation
	BalanceFloat(key string, fallback float64) float64
	BalanceInt(key string, fallback int) int
}

type Context struct {
	State      *state.Game
	Node       *state.Node
	OriginTask *tasks.Task
	EventDefID string
	OptionID   string
}

// Mutation records one target changed by an operation.
type Mutation struct {
	Scope   string  `json:"scope"`
	Target  string  `json:"target"`
	StatKey string  `json:"stat_key"`
	Before  float64 `json:"before"`
	After   float64 `json:"after"`
}

type Interpreter struct {
	cat    Catalog
	logger *log.Logger
}

func New(cat Catalog, logger *log.Logger) *Interpreter {
	if logger == nil {
		logger = log.Default()
	}
	return &Interpreter{cat: cat, logger: logger}
}

// Apply runs every operation of effectID against ctx and returns the number
// of targets mutated. When allowed is non-empty only operations whose scope
// is listed run.
func (in *Interpreter) Apply(effectID string, ctx Context, allowed ...catalogs.AffectScope) int {
	return len(in.Trace(effectID, ctx, allowed...))
}

// Trace is Apply, returning each mutation in application order.
func (in *Interpreter) Trace(effectID string, ctx Context, allowed ...catalogs.AffectScope) []Mutation {
	if ctx.State == nil || effectID == "" {
		return nil
	}
	ops := in.cat.Operations(effectID)
	if len(ops) == 0 {
		in.logger.Printf("[effects] effectId=%s has no ops", effectID)
		return nil
	}
	filter := catalogs.ScopeSet(allowed)

	var out []Mutation
	for _, op := range ops {
		if filter != nil {
			if _, ok := filter[op.Scope.String()]; !ok {
				continue
			}
		}
		out = in.applyOp(out, op, ctx)
	}
	return out
}

func (in *Interpreter) applyOp(out []Mutation, op catalogs.EffectOperation, ctx Context) []Mutation {
	switch op.Scope.Kind {
	case catalogs.ScopeNode:
		return in.applyNode(out, op, ctx.Node)
	case catalogs.ScopeOriginTask:
		if ctx.OriginTask == nil {
			in.logger.Printf("[effects] effectId=%s %s op without origin task, skipped", op.EffectID, op.Scope)
			return out
		}
		return in.applyTask(out, op, ctx.OriginTask)
	case catalogs.ScopeGlobal:
		return in.applyGlobal(out, op, ctx.State)
	case catalogs.ScopeTaskType:
		for _, t := range ctx.State.ActiveTasks(op.Scope.TaskType) {
			out = in.applyTask(out, op, t)
		}
		return out
	default:
		in.logger.Printf("[effects] unsupported scope %s", op.Scope)
		return out
	}
}

func (in *Interpreter) applyNode(out []Mutation, op catalogs.EffectOperation, n *state.Node) []Mutation {
	if n == nil {
		in.logger.Printf("[effects] effectId=%s Node op without node, skipped", op.EffectID)
		return out
	}
	var target *int
	switch {
	case statIs(op.StatKey, StatLocalPanic):
		target = &n.LocalPanic
	case statIs(op.StatKey, StatPopulation):
		target = &n.Population
	default:
		in.logger.Printf("[WARN] [effects] unknown node statKey=%s", op.StatKey)
		return out
	}
	before := *target
	*target = max(0, roundInt(Transform(float32(before), op)))
	return append(out, mutation(op, n.ID, float64(before), float64(*target)))
}

func (in *Interpreter) applyTask(out []Mutation, op catalogs.EffectOperation, t *tasks.Task) []Mutation {
	if !statIs(op.StatKey, StatTaskProgressDelta) {
		in.logger.Printf("[WARN] [effects] unknown task statKey=%s", op.StatKey)
		return out
	}
	before := t.Progress
	t.Progress = clamp01(Transform(before, op))
	return append(out, mutation(op, t.ID, float64(before), float64(t.Progress)))
}

func (in *Interpreter) applyGlobal(out []Mutation, op catalogs.EffectOperation, g *state.Game) []Mutation {
	switch {
	case statIs(op.StatKey, StatWorldPanic), statIs(op.StatKey, StatPanic):
		before := g.WorldPanic
		floor := float32(in.cat.BalanceFloat(BalanceClampWorldPanicMin, 0))
		g.WorldPanic = max(floor, Transform(before, op))
		return append(out, mutation(op, StatWorldPanic, float64(before), float64(g.WorldPanic)))
	case statIs(op.StatKey, StatMoney):
		before := g.Money
		floor := in.cat.BalanceInt(BalanceClampMoneyMin, 0)
		g.Money = max(floor, roundInt(Transform(float32(before), op)))
		return append(out, mutation(op, StatMoney, float64(before), float64(g.Money)))
	case statIs(op.StatKey, StatNegEntropy):
		before := g.NegEntropy
		g.NegEntropy = max(0, roundInt(Transform(float32(before), op)))
		return append(out, mutation(op, StatNegEntropy, float64(before), float64(g.NegEntropy)))
	default:
		in.logger.Printf("[WARN] [effects] unknown global statKey=%s", op.StatKey)
		return out
	}
}

// Transform computes the next value of a stat. Add, Mul and Set clamp the
// result to the operation's bounds afterwards; ClampAdd clamps the sum itself
// and is not clamped again.
func Transform(current float32, op catalogs.EffectOperation) float32 {
	next := current
	switch op.Op {
	case catalogs.OpAdd:
		next = current + op.Value
	case catalogs.OpMul:
		next = current * op.Value
	case catalogs.OpSet:
		next = op.Value
	case catalogs.OpClampAdd:
		return bound(current+op.Value, op.Min, op.Max)
	}
	return bound(next, op.Min, op.Max)
}

func bound(v float32, lo, hi *float32) float32 {
	if lo != nil {
		v = max(*lo, v)
	}
	if hi != nil {
		v = min(*hi, v)
	}
	return v
}

func clamp01(v float32) float32 { return min(1, max(0, v)) }

// roundInt rounds half to even.
func roundInt(v float32) int { return int(math.RoundToEven(float64(v))) }

func statIs(key, want string) bool { return strings.EqualFold(strings.TrimSpace(key), want) }

func mutation(op catalogs.EffectOperation, target string, before, after float64) Mutation {
	return Mutation{Scope: op.Scope.String(), Target: target, StatKey: op.StatKey, Before: before, After: after}
}
