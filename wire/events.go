package wire

import (
	"encoding/json"
	"time"

	"github.com/quillchat/quill/messages"
)

// EventType identifies a server-sent event on the stream
type EventType string

const (
	EventContent       EventType = "content"
	EventContentBlock  EventType = "content_block"
	EventToolCallStart EventType = "tool_call_start"
	EventToolCallEnd   EventType = "tool_call_end"
	EventCitation      EventType = "citation"
	EventUsage         EventType = "usage"
	EventDone          EventType = "done"
	EventError         EventType = "error"
	EventProgress      EventType = "progress"
)

// knownTypes is the set of event types the decoder emits.
// Anything else on the wire is skipped.
var knownTypes = map[EventType]bool{
	EventContent:       true,
	EventContentBlock:  true,
	EventToolCallStart: true,
	EventToolCallEnd:   true,
	EventCitation:      true,
	EventUsage:         true,
	EventDone:          true,
	EventError:         true,
	EventProgress:      true,
}

// Event is one decoded stream event. Payload holds the unwrapped inner
// JSON payload, ready for the typed accessors below.
type Event struct {
	Type    EventType
	Payload json.RawMessage
}

// ContentPayload carries an incremental text delta
type ContentPayload struct {
	Text string `json:"text"`
}

// ContentBlockPayload carries one backend-finalized block at a stable index
type ContentBlockPayload struct {
	Index int             `json:"index"`
	Block json.RawMessage `json:"block"`
}

// ToolCallStartPayload announces a tool invocation
type ToolCallStartPayload struct {
	ID    string          `json:"id"`
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolCallEndPayload resolves a previously started tool invocation.
// Exactly one of Output or Error is meaningful.
type ToolCallEndPayload struct {
	ID     string          `json:"id"`
	Tool   string          `json:"tool"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// DonePayload terminates the stream successfully
type DonePayload struct {
	MessageID string `json:"message_id"`
}

// ErrorPayload terminates the stream with a server-side failure
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ProgressPayload reports the server's current processing phase
type ProgressPayload struct {
	Phase     messages.ProgressPhase `json:"phase"`
	StartedAt time.Time              `json:"started_at"`
	ToolName  string                 `json:"tool_name,omitempty"`
	Iteration int                    `json:"iteration,omitempty"`
}

// Content decodes the payload of a content event
func (e Event) Content() (ContentPayload, error) {
	var p ContentPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// ContentBlock decodes the payload of a content_block event
func (e Event) ContentBlock() (ContentBlockPayload, error) {
	var p ContentBlockPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// ToolCallStart decodes the payload of a tool_call_start event
func (e Event) ToolCallStart() (ToolCallStartPayload, error) {
	var p ToolCallStartPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// ToolCallEnd decodes the payload of a tool_call_end event
func (e Event) ToolCallEnd() (ToolCallEndPayload, error) {
	var p ToolCallEndPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// Citation decodes the payload of a citation event
func (e Event) Citation() (messages.Citation, error) {
	var p messages.Citation
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// Usage decodes the payload of a usage event
func (e Event) Usage() (messages.Usage, error) {
	var p messages.Usage
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// Done decodes the payload of a done event
func (e Event) Done() (DonePayload, error) {
	var p DonePayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// Err decodes the payload of an error event
func (e Event) Err() (ErrorPayload, error) {
	var p ErrorPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// Progress decodes the payload of a progress event
func (e Event) Progress() (ProgressPayload, error) {
	var p ProgressPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}
