package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hszqf/SCP-sub000/internal/sim/state"
	"github.com/hszqf/SCP-sub000/internal/sim/tasks"
)

func sampleGame() *state.Game {
	n := &state.Node{ID: "N1", Name: "Harbor", LocalPanic: 3, Population: 12}
	n.AddTask(&tasks.Task{ID: "t1", Type: tasks.Contain, State: tasks.StateActive, Progress: 0.25})
	return &state.Game{Day: 4, WorldPanic: 1.5, Money: 90, Nodes: []*state.Node{n}}
}

func TestWriteReadState(t *testing.T) {
	for _, name := range []string{"state.json", "state.json.zst"} {
		path := filepath.Join(t.TempDir(), "nested", name)
		if err := WriteState(path, Header{Generation: "gen-1"}, sampleGame()); err != nil {
			t.Fatalf("%s WriteState: %v", name, err)
		}
		got, err := ReadState(path)
		if err != nil {
			t.Fatalf("%s ReadState: %v", name, err)
		}
		if got.Header.Version != Version || got.Header.Generation != "gen-1" {
			t.Fatalf("%s header=%+v", name, got.Header)
		}
		g := got.State
		if g.Day != 4 || g.Money != 90 || g.WorldPanic != 1.5 || len(g.Nodes) != 1 {
			t.Fatalf("%s state=%+v", name, g)
		}
		task := g.Task("t1")
		if task == nil || task.Type != tasks.Contain || task.Progress != 0.25 || task.NodeID != "N1" {
			t.Fatalf("%s task=%+v", name, task)
		}
	}
}

func TestReadState_PlainJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.json")
	if err := os.WriteFile(path, []byte(`{"money":100,"nodes":[{"id":"N1","local_panic":2}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadState(path)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if got.State.Money != 100 || got.State.Node("N1").LocalPanic != 2 {
		t.Fatalf("state=%+v", got.State)
	}
}

func TestDecodeState_Errors(t *testing.T) {
	if _, err := DecodeState([]byte("{\"version\":9}\n{}")); err == nil {
		t.Fatalf("expected version error")
	}
	if _, err := DecodeState([]byte("not json")); err == nil {
		t.Fatalf("expected decode error")
	}
	if err := WriteState(filepath.Join(t.TempDir(), "x.json"), Header{}, nil); err == nil {
		t.Fatalf("expected nil state error")
	}
}
