package messages

import (
	"encoding/json"
	"time"
)

// Standard role constants
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// ChatMessage represents one turn of a conversation as persisted locally.
// Assistant turns carry the raw streamed markdown plus the structured
// records collected during streaming, so a reopened transcript can be
// re-rendered without replaying the stream.
type ChatMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
	Citations []Citation       `json:"citations,omitempty"`
	Usage     *Usage           `json:"usage,omitempty"`
	MessageID string           `json:"message_id,omitempty"`
	Created   time.Time        `json:"created,omitzero"`
}

// HasToolCalls returns true if the message contains tool call records
func (m *ChatMessage) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// ToolCallStatus tracks the lifecycle of a single tool invocation
type ToolCallStatus string

const (
	// ToolCallPending means a start event arrived and no end event has yet
	ToolCallPending ToolCallStatus = "pending"
	// ToolCallCompleted means the matching end event carried an output
	ToolCallCompleted ToolCallStatus = "completed"
	// ToolCallError means the matching end event carried an error
	ToolCallError ToolCallStatus = "error"
)

// ToolCallRecord is the client-side record of one backend tool invocation.
// It is created by a tool_call_start event and mutated only by the matching
// tool_call_end event (same id).
type ToolCallRecord struct {
	ID     string          `json:"id"`
	Tool   string          `json:"tool"`
	Status ToolCallStatus  `json:"status"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Citation is an immutable source reference attached to a response.
// Citations are append-only; duplicates are allowed.
type Citation struct {
	Source    string `json:"source"`
	SourceRef string `json:"source_ref"`
	Reference string `json:"reference"`
}

// Usage carries token accounting for one completed request
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// ProgressPhase names the server's current processing stage
type ProgressPhase string

const (
	PhaseReceived       ProgressPhase = "received"
	PhaseLoadingContext ProgressPhase = "loading_context"
	PhaseLoadingTools   ProgressPhase = "loading_tools"
	PhaseThinking       ProgressPhase = "thinking"
	PhaseCallingTool    ProgressPhase = "calling_tool"
	PhaseIteration      ProgressPhase = "iteration"
	PhaseResponding     ProgressPhase = "responding"
)

// Progress is the most recent server phase report. Each report fully
// replaces the previous one.
type Progress struct {
	Phase     ProgressPhase `json:"phase"`
	StartedAt time.Time     `json:"started_at"`
	ToolName  string        `json:"tool_name,omitempty"`
	Iteration int           `json:"iteration,omitempty"`
}
