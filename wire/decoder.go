package wire

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Decoder reassembles SSE frames from transport chunks. Chunk boundaries
// carry no meaning: a frame may arrive split across any number of Feed
// calls, and one chunk may carry many frames. The zero value is ready
// to use.
type Decoder struct {
	partial string    // incomplete trailing line from the previous chunk
	event   EventType // pending type from the last event: line
}

// Feed consumes one transport chunk and returns the events completed by
// it, in wire order. Malformed frames are logged and skipped.
func (d *Decoder) Feed(chunk string) []Event {
	buf := d.partial + chunk
	var events []Event

	for {
		nl := strings.IndexByte(buf, '\n')
		if nl < 0 {
			break
		}
		line := strings.TrimSuffix(buf[:nl], "\r")
		buf = buf[nl+1:]

		if ev, ok := d.consumeLine(line); ok {
			events = append(events, ev)
		}
	}

	d.partial = buf
	return events
}

// consumeLine handles one complete line of the stream
func (d *Decoder) consumeLine(line string) (Event, bool) {
	switch {
	case line == "":
		// Frame boundary. A dangling event: with no data line is dropped.
		d.event = ""

	case strings.HasPrefix(line, "event:"):
		d.event = EventType(strings.TrimSpace(line[len("event:"):]))

	case strings.HasPrefix(line, "data:"):
		data := strings.TrimSpace(line[len("data:"):])
		typ := d.event
		if !knownTypes[typ] {
			zap.S().Debugw("unknown_event_type", "type", typ)
			return Event{}, false
		}
		payload, ok := unwrap(data)
		if !ok {
			zap.S().Debugw("malformed_event_payload", "type", typ, "data", data)
			return Event{}, false
		}
		return Event{Type: typ, Payload: payload}, true

	default:
		// Comment or unrecognized field, ignore.
	}
	return Event{}, false
}

// unwrap extracts the inner payload from the {"data": ...} envelope
func unwrap(raw string) (json.RawMessage, bool) {
	if !gjson.Valid(raw) {
		return nil, false
	}
	inner := gjson.Get(raw, "data")
	if !inner.Exists() {
		return nil, false
	}
	return json.RawMessage(inner.Raw), true
}
