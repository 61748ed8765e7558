package sessions

import (
	"reflect"
	"time"

	"dario.cat/mergo"

	"github.com/quillchat/quill/messages"
)

// TrimHistory keeps the most recent maxHistory messages. A limit of 0
// means unlimited.
func TrimHistory(history []messages.ChatMessage, maxHistory int) []messages.ChatMessage {
	if maxHistory == 0 || len(history) <= maxHistory {
		return history
	}
	return history[len(history)-maxHistory:]
}

// CopyHistory creates a defensive copy of the history slice
func CopyHistory(history []messages.ChatMessage) []messages.ChatMessage {
	result := make([]messages.ChatMessage, len(history))
	copy(result, history)
	return result
}

// timeTransformer keeps mergo out of time.Time's unexported fields:
// a non-zero update overwrites, a zero one leaves the existing value.
type timeTransformer struct{}

func (timeTransformer) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ != reflect.TypeOf(time.Time{}) {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if dst.CanSet() && !src.Interface().(time.Time).IsZero() {
			dst.Set(src)
		}
		return nil
	}
}

// MergeMetadata merges non-zero fields from 'in' into 'existing' and
// returns a new value. Zero values in 'in' do not overwrite.
func MergeMetadata(existing *Metadata, in *Metadata) *Metadata {
	if existing == nil {
		existing = &Metadata{}
	}
	if in == nil {
		out := *existing
		return &out
	}

	out := *existing
	if err := mergo.Merge(&out, *in, mergo.WithOverride, mergo.WithTransformers(timeTransformer{})); err != nil {
		return existing
	}
	return &out
}
