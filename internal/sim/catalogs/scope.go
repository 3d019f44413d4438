package catalogs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hszqf/SCP-sub000/internal/sim/tasks"
)

const taskTypeScopePrefix = "TaskType:"

// AffectScope names what an operation mutates. TaskType is only meaningful
// when Kind is ScopeTaskType.
type AffectScope struct {
	Kind     AffectScopeKind
	TaskType tasks.Type
}

func NodeScope() AffectScope       { return AffectScope{Kind: ScopeNode} }
func GlobalScope() AffectScope     { return AffectScope{Kind: ScopeGlobal} }
func OriginTaskScope() AffectScope { return AffectScope{Kind: ScopeOriginTask} }

func TaskTypeScope(t tasks.Type) AffectScope {
	return AffectScope{Kind: ScopeTaskType, TaskType: t}
}

// String is the canonical form used for scope filtering: "Node",
// "OriginTask", "Global" or "TaskType:<Name>".
func (s AffectScope) String() string {
	if s.Kind == ScopeTaskType {
		return taskTypeScopePrefix + s.TaskType.String()
	}
	return s.Kind.String()
}

func (s AffectScope) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *AffectScope) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseAffectScope(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseAffectScope accepts a bare kind name or "TaskType:<Name>", both
// case-insensitive.
func ParseAffectScope(raw string) (AffectScope, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AffectScope{}, fmt.Errorf("AffectScope empty")
	}
	if len(raw) >= len(taskTypeScopePrefix) && strings.EqualFold(raw[:len(taskTypeScopePrefix)], taskTypeScopePrefix) {
		t, err := tasks.ParseType(raw[len(taskTypeScopePrefix):])
		if err != nil {
			return AffectScope{}, err
		}
		return TaskTypeScope(t), nil
	}
	kind, err := ParseAffectScopeKind(raw)
	if err != nil {
		return AffectScope{}, err
	}
	if kind == ScopeTaskType {
		return AffectScope{}, fmt.Errorf("invalid AffectScope: %s (missing task type)", raw)
	}
	return AffectScope{Kind: kind}, nil
}

// ParseAffectScopes reads a scope cell. A string is split on ';', a list is
// taken element-wise; blank entries are skipped. Any bad entry, or no
// entries at all, fails the whole cell.
func ParseAffectScopes(raw any) ([]AffectScope, error) {
	var parts []string
	switch x := raw.(type) {
	case nil:
		return nil, fmt.Errorf("AffectScope empty")
	case string:
		parts = strings.Split(x, ";")
	case []string:
		parts = x
	case []any:
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid AffectScope: %v", item)
			}
			parts = append(parts, s)
		}
	default:
		return nil, fmt.Errorf("invalid AffectScope: %v", raw)
	}

	out := make([]AffectScope, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		s, err := ParseAffectScope(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("AffectScope empty")
	}
	return out, nil
}

// ScopeSet returns the canonical strings of scopes for membership checks.
func ScopeSet(scopes []AffectScope) map[string]struct{} {
	if len(scopes) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		out[s.String()] = struct{}{}
	}
	return out
}
