package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	Content         *ContentNotice `json:"content,omitempty"`
}

// CONTENT (server -> client): a registry was published.
type ContentNotice struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Generation      string         `json:"generation"`
	Digest          string         `json:"digest"`
	SchemaVersion   string         `json:"schema_version"`
	DataVersion     string         `json:"data_version"`
	LoadedAt        string         `json:"loaded_at"`
	Counts          map[string]int `json:"counts,omitempty"`
}

// APPLIED (server -> client): an effect ran against the server's state.
type AppliedNotice struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Generation      string `json:"generation"`
	EffectID        string `json:"effect_id"`
	Applied         int    `json:"applied"`
}

// ApplyRequest asks the server to run one effect. State, when present, is a
// caller-owned game state that is mutated and returned instead of the
// server's own.
type ApplyRequest struct {
	EffectID   string          `json:"effect_id"`
	NodeID     string          `json:"node_id,omitempty"`
	TaskID     string          `json:"task_id,omitempty"`
	EventDefID string          `json:"event_def_id,omitempty"`
	OptionID   string          `json:"option_id,omitempty"`
	Scopes     []string        `json:"scopes,omitempty"`
	State      json.RawMessage `json:"state,omitempty"`
}

type Mutation struct {
	Scope   string  `json:"scope"`
	Target  string  `json:"target"`
	StatKey string  `json:"stat_key"`
	Before  float64 `json:"before"`
	After   float64 `json:"after"`
}

type ApplyResponse struct {
	Generation string          `json:"generation"`
	EffectID   string          `json:"effect_id"`
	Applied    int             `json:"applied"`
	Mutations  []Mutation      `json:"mutations"`
	State      json.RawMessage `json:"state"`
}

type ErrorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
