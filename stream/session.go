package stream

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/quillchat/quill/markdown"
	"github.com/quillchat/quill/messages"
	"github.com/quillchat/quill/wire"
)

// Session holds the mutable state of one in-flight request. All
// mutation happens on the controller's read loop; the mutex exists so
// renderers on other goroutines can take consistent snapshots while
// the stream is still running.
type Session struct {
	mu        sync.Mutex
	raw       string
	blocks    map[int]markdown.Block
	toolCalls map[string]*messages.ToolCallRecord
	toolOrder []string
	citations []messages.Citation
	progress  *messages.Progress
	usage     *messages.Usage
	messageID string
	streaming bool
}

// IndexedBlock pairs a finalized block with its backend index
type IndexedBlock struct {
	Index int
	Block markdown.Block
}

// Snapshot is an immutable per-tick view of the session for rendering
type Snapshot struct {
	Raw       string
	Blocks    []IndexedBlock
	Tail      string
	ToolCalls []messages.ToolCallRecord
	Citations []messages.Citation
	Progress  *messages.Progress
	Usage     *messages.Usage
	MessageID string
	Streaming bool
}

// NewSession returns an empty session ready for Start
func NewSession() *Session {
	s := &Session{}
	s.clearLocked()
	return s
}

// Start resets all fields and marks the session streaming
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.streaming = true
}

// Reset clears the session for reuse
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Session) clearLocked() {
	s.raw = ""
	s.blocks = make(map[int]markdown.Block)
	s.toolCalls = make(map[string]*messages.ToolCallRecord)
	s.toolOrder = nil
	s.citations = nil
	s.progress = nil
	s.usage = nil
	s.messageID = ""
	s.streaming = false
}

// Stop marks the session no longer streaming while keeping its state,
// so the last snapshot survives a user-initiated cancel. After Stop,
// further events are ignored.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = false
}

// Streaming reports whether the session is accepting events
func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Apply dispatches one decoded event into the session. It returns true
// when the event was a terminal done event. Events after Stop are
// dropped. Payload decode failures are logged and skipped.
func (s *Session) Apply(ev wire.Event) (done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.streaming {
		zap.S().Debugw("event_after_stop", "type", ev.Type)
		return false
	}

	switch ev.Type {
	case wire.EventContent:
		p, err := ev.Content()
		if err != nil {
			return s.skip(ev, err)
		}
		s.raw += p.Text

	case wire.EventContentBlock:
		p, err := ev.ContentBlock()
		if err != nil {
			return s.skip(ev, err)
		}
		b, err := markdown.DecodeBlock(p.Block)
		if err != nil {
			return s.skip(ev, err)
		}
		s.blocks[p.Index] = b

	case wire.EventToolCallStart:
		p, err := ev.ToolCallStart()
		if err != nil {
			return s.skip(ev, err)
		}
		if _, exists := s.toolCalls[p.ID]; !exists {
			s.toolOrder = append(s.toolOrder, p.ID)
		}
		s.toolCalls[p.ID] = &messages.ToolCallRecord{
			ID:     p.ID,
			Tool:   p.Tool,
			Status: messages.ToolCallPending,
			Input:  p.Input,
		}

	case wire.EventToolCallEnd:
		p, err := ev.ToolCallEnd()
		if err != nil {
			return s.skip(ev, err)
		}
		rec, ok := s.toolCalls[p.ID]
		if !ok {
			// End for an id never started. Not an error.
			zap.S().Debugw("unmatched_tool_call_end", "id", p.ID, "tool", p.Tool)
			return false
		}
		if p.Error != "" {
			rec.Status = messages.ToolCallError
			rec.Error = p.Error
		} else {
			rec.Status = messages.ToolCallCompleted
			rec.Output = p.Output
		}

	case wire.EventCitation:
		p, err := ev.Citation()
		if err != nil {
			return s.skip(ev, err)
		}
		s.citations = append(s.citations, p)

	case wire.EventUsage:
		p, err := ev.Usage()
		if err != nil {
			return s.skip(ev, err)
		}
		s.usage = &p

	case wire.EventProgress:
		p, err := ev.Progress()
		if err != nil {
			return s.skip(ev, err)
		}
		s.progress = &messages.Progress{
			Phase:     p.Phase,
			StartedAt: p.StartedAt,
			ToolName:  p.ToolName,
			Iteration: p.Iteration,
		}

	case wire.EventDone:
		p, err := ev.Done()
		if err != nil {
			return s.skip(ev, err)
		}
		s.messageID = p.MessageID
		s.finalizeLocked()
		return true
	}

	return false
}

func (s *Session) skip(ev wire.Event, err error) bool {
	zap.S().Debugw("event_payload_skipped", "type", ev.Type, "error", err)
	return false
}

// Finalize ends the stream gracefully, materializing any remaining raw
// tail as finalized blocks. Used when the transport closes without a
// done event.
func (s *Session) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.streaming {
		return
	}
	s.finalizeLocked()
}

// finalizeLocked parses the reconciled tail one final time and appends
// its blocks after the highest backend index.
func (s *Session) finalizeLocked() {
	tail := markdown.Reconcile(s.raw, s.blocks)
	if tail != "" {
		next := 0
		for idx := range s.blocks {
			if idx >= next {
				next = idx + 1
			}
		}
		for _, b := range markdown.Parse(tail) {
			s.blocks[next] = b
			next++
		}
	}
	s.streaming = false
}

// Snapshot returns a consistent copy of the session state. Blocks are
// sorted by ascending index and tool calls appear in start order.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Raw:       s.raw,
		Tail:      markdown.Reconcile(s.raw, s.blocks),
		MessageID: s.messageID,
		Streaming: s.streaming,
	}

	indices := make([]int, 0, len(s.blocks))
	for idx := range s.blocks {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		snap.Blocks = append(snap.Blocks, IndexedBlock{Index: idx, Block: s.blocks[idx]})
	}

	for _, id := range s.toolOrder {
		snap.ToolCalls = append(snap.ToolCalls, *s.toolCalls[id])
	}
	snap.Citations = append(snap.Citations, s.citations...)

	if s.progress != nil {
		p := *s.progress
		snap.Progress = &p
	}
	if s.usage != nil {
		u := *s.usage
		snap.Usage = &u
	}
	return snap
}
