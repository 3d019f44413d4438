package state

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/hszqf/SCP-sub000/internal/sim/catalogs"
	"github.com/hszqf/SCP-sub000/internal/sim/tasks"
)

func TestNewGame_SeedsNodesFromDefinitions(t *testing.T) {
	raw, err := os.ReadFile("../catalogs/testdata/minimal.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	reg, err := catalogs.Load(raw, catalogs.Options{Logger: log.New(&bytes.Buffer{}, "", 0)})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	g := NewGame(reg)
	if g.Money != 100 || g.Day != 1 {
		t.Fatalf("game=%+v", g)
	}
	if len(g.Nodes) != 1 {
		t.Fatalf("nodes=%d", len(g.Nodes))
	}
	n := g.Node("N1")
	if n == nil || n.Name != "Harbor" || n.LocalPanic != 2 || n.Population != 10 {
		t.Fatalf("node=%+v", n)
	}
	if len(n.Tags) != 2 || n.Tags[1] != "coast" || len(n.AnomalyIDs) != 1 {
		t.Fatalf("tags=%v anomalies=%v", n.Tags, n.AnomalyIDs)
	}

	// Seeded slices are copies.
	n.Tags[0] = "ruin"
	if def, _ := reg.Node("N1"); def.Tags[0] != "city" {
		t.Fatalf("definition mutated through state: %v", def.Tags)
	}
}

func TestNewGame_NilRegistry(t *testing.T) {
	g := NewGame(nil)
	if g == nil || len(g.Nodes) != 0 {
		t.Fatalf("game=%+v", g)
	}
}

func TestGame_TaskLookups(t *testing.T) {
	g := &Game{Nodes: []*Node{{ID: "A"}, nil, {ID: "B"}}}
	g.Nodes[0].AddTask(&tasks.Task{ID: "t1", Type: tasks.Investigate, State: tasks.StateActive})
	g.Nodes[0].AddTask(&tasks.Task{ID: "t2", Type: tasks.Contain, State: tasks.StateActive})
	g.Nodes[2].AddTask(&tasks.Task{ID: "t3", Type: tasks.Investigate, State: tasks.StateCompleted})
	g.Nodes[2].AddTask(&tasks.Task{ID: "t4", Type: tasks.Investigate, State: tasks.StateActive})

	if got := g.Task("t4"); got == nil || got.NodeID != "B" {
		t.Fatalf("Task(t4)=%+v", got)
	}
	if g.Task("nope") != nil {
		t.Fatalf("expected nil for unknown task")
	}
	active := g.ActiveTasks(tasks.Investigate)
	if len(active) != 2 || active[0].ID != "t1" || active[1].ID != "t4" {
		t.Fatalf("active=%v", active)
	}
	if g.Node("C") != nil {
		t.Fatalf("expected nil for unknown node")
	}
}
