package effects

import (
	"fmt"

	"github.com/hszqf/SCP-sub000/internal/sim/state"
)

// ErrUnknownTarget reports a node or task id that is not in the state.
type ErrUnknownTarget struct {
	Kind string
	ID   string
}

func (e *ErrUnknownTarget) Error() string { return fmt.Sprintf("unknown %s %q", e.Kind, e.ID) }

// ResolveContext looks up the node and origin task named by id. Empty ids
// leave the field unset. When only a task is named its node becomes the
// context node.
func ResolveContext(g *state.Game, nodeID, taskID string) (Context, error) {
	ctx := Context{State: g}
	if nodeID != "" {
		ctx.Node = g.Node(nodeID)
		if ctx.Node == nil {
			return ctx, &ErrUnknownTarget{Kind: "node", ID: nodeID}
		}
	}
	if taskID != "" {
		ctx.OriginTask = g.Task(taskID)
		if ctx.OriginTask == nil {
			return ctx, &ErrUnknownTarget{Kind: "task", ID: taskID}
		}
		if ctx.Node == nil {
			ctx.Node = g.Node(ctx.OriginTask.NodeID)
		}
	}
	return ctx, nil
}
