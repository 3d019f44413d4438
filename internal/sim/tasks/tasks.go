package tasks

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

type Type int

const (
	Investigate Type = iota
	Contain
	Manage
)

var typeNames = [...]string{
	Investigate: "Investigate",
	Contain:     "Contain",
	Manage:      "Manage",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

func (t Type) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseType matches a task type name case-insensitively.
func ParseType(raw string) (Type, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Investigate, fmt.Errorf("TaskType empty")
	}
	folded := cases.Fold().String(raw)
	for i, name := range typeNames {
		if cases.Fold().String(name) == folded {
			return Type(i), nil
		}
	}
	return Investigate, fmt.Errorf("invalid TaskType: %s", raw)
}

// Types lists every task type in declaration order.
func Types() []Type {
	out := make([]Type, len(typeNames))
	for i := range typeNames {
		out[i] = Type(i)
	}
	return out
}

type State string

const (
	StateActive    State = "ACTIVE"
	StateCompleted State = "COMPLETED"
	StateCancelled State = "CANCELLED"
)

// Task is one unit of agent work on a node. Progress runs 0..1.
type Task struct {
	ID        string   `json:"id"`
	Type      Type     `json:"type"`
	State     State    `json:"state"`
	NodeID    string   `json:"node_id,omitempty"`
	AnomalyID string   `json:"anomaly_id,omitempty"`
	AgentIDs  []string `json:"agent_ids,omitempty"`
	Progress  float32  `json:"progress"`
	StartDay  int      `json:"start_day,omitempty"`
}

func (t *Task) Active() bool { return t != nil && t.State == StateActive }
