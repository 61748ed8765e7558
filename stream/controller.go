package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/quillchat/quill/wire"
)

const readChunkSize = 4096

// ServerError is a failure reported by the backend through an error
// event on the stream.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %s: %s", e.Code, e.Message)
}

// Controller drives one request's read loop and owns its cancel
// handle. One request is outstanding at a time; Stop cancels it from
// any goroutine.
type Controller struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	session *Session
}

// NewController wraps the given session
func NewController(session *Session) *Controller {
	return &Controller{session: session}
}

// Context derives the context the request must be issued with. Stop
// cancels it, so a read blocked on a quiet transport is aborted rather
// than waited out. Any previous request's handle is cancelled first.
func (c *Controller) Context(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.mu.Unlock()
	return ctx
}

// Session returns the session this controller drives
func (c *Controller) Session() *Session {
	return c.session
}

// Stop cancels the in-flight request, if any. The session keeps its
// last snapshot; the read loop observes the cancel at its next read.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Run consumes the response body until a terminal event, transport
// close, or cancellation. On a done event or a clean transport close
// the remaining tail is materialized and Run returns nil. On an error
// event or a transport failure the session is reset and the error is
// returned. Cancellation via Stop or ctx is suppressed: the session
// stops streaming but keeps its state, and Run returns nil.
//
// ctx should be the context the body's request was created with,
// normally obtained from Context, so Stop can abort a blocked read.
func (c *Controller) Run(ctx context.Context, body io.Reader) error {
	c.mu.Lock()
	if c.cancel == nil {
		ctx, c.cancel = context.WithCancel(ctx)
	}
	c.mu.Unlock()
	defer c.Stop()

	c.session.Start()

	dec := &wire.Decoder{}
	buf := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			c.session.Stop()
			zap.S().Debugw("stream_cancelled")
			return nil
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(string(buf[:n])) {
				if ev.Type == wire.EventError {
					// An error frame racing a stop must not destroy the
					// kept snapshot.
					if ctx.Err() != nil || !c.session.Streaming() {
						zap.S().Debugw("event_after_stop", "type", ev.Type)
						continue
					}
					return c.fail(ev)
				}
				if done := c.session.Apply(ev); done {
					zap.S().Debugw("stream_done")
					return nil
				}
			}
		}

		switch {
		case readErr == nil:
			continue
		case errors.Is(readErr, io.EOF):
			// Transport closed without a done event. Keep what we have.
			c.session.Finalize()
			return nil
		case errors.Is(readErr, context.Canceled):
			c.session.Stop()
			zap.S().Debugw("stream_cancelled")
			return nil
		default:
			c.session.Reset()
			return fmt.Errorf("read stream: %w", readErr)
		}
	}
}

// fail resets the session and surfaces the server-reported error
func (c *Controller) fail(ev wire.Event) error {
	p, err := ev.Err()
	if err != nil {
		p.Code = "unknown"
		p.Message = "malformed error event"
	}
	c.session.Reset()
	return &ServerError{Code: p.Code, Message: p.Message}
}
