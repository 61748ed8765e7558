package sessions

import (
	"time"

	"github.com/quillchat/quill/messages"
)

// Session is one named local transcript
type Session interface {
	GetHistory() []messages.ChatMessage
	AddMessage(messages.ChatMessage)
	Clear()
	Close() // Clean up resources (file locks, etc.)

	// Session metadata
	GetName() string
	GetMetadata() *Metadata
	SetMetadata(*Metadata)
	UpdateMetadata(*Metadata) error // Apply partial updates (only non-zero values)
	GetLastUsed() time.Time
}

// SessionStore manages multiple sessions
type SessionStore interface {
	Get(string) (Session, error)
	Delete(string)
	Range(func(key, value any) bool)
	Expire()

	// Session discovery and metadata
	List() ([]string, error)
	Exists(string) bool
	GetAllMetadata() map[string]*Metadata // Read-only bulk operation
	GetLast() string                      // Returns name of most recently used session
}

// Metadata describes a context independently of its message history.
// ServerSession is the backend conversation id this context resumes.
type Metadata struct {
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	ServerSession string        `json:"server_session,omitempty"`
	MaxHistory    int           `json:"max_history,omitempty"`
	TTL           time.Duration `json:"ttl,omitempty"`
	Created       time.Time     `json:"created,omitzero"`
	LastUsed      time.Time     `json:"last_used,omitzero"`
}
