// Package state holds the simulation state that effects mutate. The caller
// owns it; nothing here is safe for concurrent use.
package state

import (
	"github.com/hszqf/SCP-sub000/internal/sim/catalogs"
	"github.com/hszqf/SCP-sub000/internal/sim/tasks"
)

type Game struct {
	Day        int     `json:"day"`
	WorldPanic float32 `json:"world_panic"`
	Money      int     `json:"money"`
	NegEntropy int     `json:"neg_entropy"`
	Nodes      []*Node `json:"nodes"`
}

type Node struct {
	ID         string        `json:"id"`
	Name       string        `json:"name,omitempty"`
	Tags       []string      `json:"tags,omitempty"`
	LocalPanic int           `json:"local_panic"`
	Population int           `json:"population"`
	AnomalyIDs []string      `json:"anomaly_ids,omitempty"`
	Tasks      []*tasks.Task `json:"tasks,omitempty"`
}

// NewGame seeds one node per node definition, in source order, from the
// definitions' start values. Money starts at the StartMoney balance entry when
// it parses as an integer.
func NewGame(reg *catalogs.Registry) *Game {
	g := &Game{Day: 1}
	if reg == nil {
		return g
	}
	if v, ok := reg.BalanceValue("StartMoney"); ok {
		if n, ok := v.Int(); ok {
			g.Money = n
		}
	}
	for _, def := range reg.Nodes() {
		g.Nodes = append(g.Nodes, &Node{
			ID:         def.ID,
			Name:       def.Name,
			Tags:       append([]string(nil), def.Tags...),
			LocalPanic: def.StartLocalPanic,
			Population: def.StartPopulation,
			AnomalyIDs: append([]string(nil), def.StartAnomalyIDs...),
		})
	}
	return g
}

func (g *Game) Node(id string) *Node {
	if g == nil {
		return nil
	}
	for _, n := range g.Nodes {
		if n != nil && n.ID == id {
			return n
		}
	}
	return nil
}

// Task finds a task by id across all nodes.
func (g *Game) Task(id string) *tasks.Task {
	if g == nil {
		return nil
	}
	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		for _, t := range n.Tasks {
			if t != nil && t.ID == id {
				return t
			}
		}
	}
	return nil
}

// ActiveTasks lists active tasks of type tt, node by node.
func (g *Game) ActiveTasks(tt tasks.Type) []*tasks.Task {
	if g == nil {
		return nil
	}
	var out []*tasks.Task
	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		for _, t := range n.Tasks {
			if t.Active() && t.Type == tt {
				out = append(out, t)
			}
		}
	}
	return out
}

func (n *Node) AddTask(t *tasks.Task) {
	if t.NodeID == "" {
		t.NodeID = n.ID
	}
	n.Tasks = append(n.Tasks, t)
}
