// Package agentproc supervises per-directory Agent server processes and
// provides the HTTP/SSE client used to talk to a running one.
package agentproc

import "time"

// Session is an Agent-owned conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Directory string    `json:"directory,omitempty"`
}

// Message is one turn in a session, owned by the Agent.
type Message struct {
	ID     string `json:"id"`
	Role   string `json:"role"` // user | assistant
	Model  string `json:"model,omitempty"`
	Tokens Tokens `json:"tokens,omitempty"`
	Parts  []Part `json:"parts,omitempty"`
}

// Tokens tracks one message's token accounting across the categories the
// spec requires summed for context usage.
type Tokens struct {
	Input      int `json:"input"`
	Output     int `json:"output"`
	Reasoning  int `json:"reasoning"`
	CacheRead  int `json:"cacheRead"`
	CacheWrite int `json:"cacheWrite"`
}

// Used sums every token category tracked against the context window.
func (t Tokens) Used() int {
	return t.Input + t.Output + t.Reasoning + t.CacheRead + t.CacheWrite
}

// PartKind enumerates the typed Agent part kinds the formatter and
// orchestrator understand.
type PartKind string

const (
	PartText        PartKind = "text"
	PartReasoning   PartKind = "reasoning"
	PartFile        PartKind = "file"
	PartStepStart   PartKind = "step-start"
	PartStepFinish  PartKind = "step-finish"
	PartPatch       PartKind = "patch"
	PartAgent       PartKind = "agent"
	PartSnapshot    PartKind = "snapshot"
	PartTool        PartKind = "tool"
)

// ToolState is the lifecycle state of a tool part.
type ToolState string

const (
	ToolPending ToolState = "pending"
	ToolRunning ToolState = "running"
	ToolError   ToolState = "error"
	ToolOK      ToolState = "completed"
)

// Todo is one entry of a todowrite tool's todo list.
type Todo struct {
	Content  string `json:"content"`
	Status   string `json:"status"` // pending | in_progress | completed
}

// Part is one fragment of an assistant message as streamed by the Agent.
type Part struct {
	ID        string            `json:"id"`
	MessageID string            `json:"messageID"`
	SessionID string            `json:"sessionID"`
	Kind      PartKind          `json:"type"`
	Text      string            `json:"text,omitempty"`
	Filename  string            `json:"filename,omitempty"`
	AgentID   string            `json:"agentID,omitempty"`
	SnapshotID string           `json:"snapshotID,omitempty"`

	Tool       string            `json:"tool,omitempty"`
	ToolState  ToolState         `json:"state,omitempty"`
	ToolTitle  string            `json:"title,omitempty"`
	ToolError  string            `json:"error,omitempty"`
	ToolInput  map[string]any    `json:"input,omitempty"`
	ToolMeta   map[string]any    `json:"metadata,omitempty"`
	Todos      []Todo            `json:"todos,omitempty"`
}

// Event is one Server-Sent Event emitted by the Agent's event stream.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionID,omitempty"`

	Message *Message `json:"message,omitempty"`
	Part    *Part     `json:"part,omitempty"`

	Permission *Permission `json:"permission,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Permission is an Agent-initiated authorization request.
type Permission struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Pattern   string `json:"pattern,omitempty"`
	Directory string `json:"directory,omitempty"`
}
