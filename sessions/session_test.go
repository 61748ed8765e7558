package sessions

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/quillchat/quill/messages"
)

// testStores returns both store implementations for testing
func testStores(t *testing.T) map[string]SessionStore {
	defaults := &Metadata{
		MaxHistory: 10,
		TTL:        0, // No expiry for tests
	}

	fileStore, err := NewFileSessionStore(t.TempDir(), defaults)
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}

	return map[string]SessionStore{
		"SyncMap": NewSyncMapSessionStore(defaults),
		"File":    fileStore,
	}
}

// TestAddMessage verifies messages are added to history
func TestAddMessage(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			session, err := store.Get("test")
			if err != nil {
				t.Fatalf("Failed to get session: %v", err)
			}
			defer session.Close()

			session.AddMessage(messages.ChatMessage{
				Role:    messages.MessageRoleUser,
				Content: "Hello",
			})

			history := session.GetHistory()
			if len(history) != 1 {
				t.Errorf("Expected 1 message, got %d", len(history))
			}
			if history[0].Content != "Hello" {
				t.Errorf("Expected 'Hello', got '%s'", history[0].Content)
			}
		})
	}
}

// TestAssistantTurnRoundTrip verifies structured fields survive persistence
func TestAssistantTurnRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSessionStore(dir, nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	session, err := store.Get("rt")
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	session.AddMessage(messages.ChatMessage{
		Role:    messages.MessageRoleAssistant,
		Content: "## Report\n\nDone.",
		ToolCalls: []messages.ToolCallRecord{
			{ID: "t1", Tool: "get_price", Status: messages.ToolCallCompleted, Output: []byte(`{"price":5}`)},
		},
		Citations: []messages.Citation{{Source: "docs", SourceRef: "p.2", Reference: "[1]"}},
		Usage:     &messages.Usage{InputTokens: 5, OutputTokens: 9, TotalTokens: 14, CostUSD: 0.001},
		MessageID: "msg_7",
	})
	session.Close()

	// Reopen from disk.
	reopened, err := store.Get("rt")
	if err != nil {
		t.Fatalf("Failed to reopen session: %v", err)
	}
	defer reopened.Close()

	history := reopened.GetHistory()
	if len(history) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(history))
	}
	msg := history[0]
	if !msg.HasToolCalls() || msg.ToolCalls[0].Status != messages.ToolCallCompleted {
		t.Errorf("tool calls lost: %+v", msg.ToolCalls)
	}
	if len(msg.Citations) != 1 || msg.Citations[0].SourceRef != "p.2" {
		t.Errorf("citations lost: %+v", msg.Citations)
	}
	if msg.Usage == nil || msg.Usage.TotalTokens != 14 {
		t.Errorf("usage lost: %+v", msg.Usage)
	}
	if msg.MessageID != "msg_7" {
		t.Errorf("message id lost: %q", msg.MessageID)
	}
}

// TestClear verifies Clear() empties history and detaches the server session
func TestClear(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			session, err := store.Get("test")
			if err != nil {
				t.Fatalf("Failed to get session: %v", err)
			}
			defer session.Close()

			session.AddMessage(messages.ChatMessage{Role: messages.MessageRoleUser, Content: "msg1"})
			session.AddMessage(messages.ChatMessage{Role: messages.MessageRoleAssistant, Content: "msg2"})
			if err := session.UpdateMetadata(&Metadata{ServerSession: "srv-9"}); err != nil {
				t.Fatalf("Failed to update metadata: %v", err)
			}

			session.Clear()

			if history := session.GetHistory(); len(history) != 0 {
				t.Errorf("Expected empty history after clear, got %d", len(history))
			}
			if ss := session.GetMetadata().ServerSession; ss != "" {
				t.Errorf("Server session not detached: %q", ss)
			}
		})
	}
}

// TestDelete verifies session deletion
func TestDelete(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			session1, err := store.Get("deleteme")
			if err != nil {
				t.Fatalf("Failed to get session1: %v", err)
			}
			session1.AddMessage(messages.ChatMessage{Role: messages.MessageRoleUser, Content: "test"})
			session1.Close()

			store.Delete("deleteme")

			session2, err := store.Get("deleteme")
			if err != nil {
				t.Fatalf("Failed to get session2: %v", err)
			}
			defer session2.Close()

			if history := session2.GetHistory(); len(history) != 0 {
				t.Errorf("Expected fresh session, got %d messages", len(history))
			}
		})
	}
}

// TestTrimOnAdd verifies history stays within MaxHistory
func TestTrimOnAdd(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			session, err := store.Get("test")
			if err != nil {
				t.Fatalf("Failed to get session: %v", err)
			}
			defer session.Close()

			for i := range 15 {
				session.AddMessage(messages.ChatMessage{
					Role:    messages.MessageRoleUser,
					Content: fmt.Sprintf("message-%d", i),
				})
			}

			history := session.GetHistory()
			if len(history) != 10 {
				t.Errorf("Expected 10 messages after trim, got %d", len(history))
			}
			if history[len(history)-1].Content != "message-14" {
				t.Errorf("Newest message lost: %q", history[len(history)-1].Content)
			}
		})
	}
}

// TestInvalidContextNames verifies filesystem-unsafe names are rejected
func TestInvalidContextNames(t *testing.T) {
	store, err := NewFileSessionStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	for _, name := range []string{"", "a/b", "..", ".hidden", "trailing ", "bad:name"} {
		if _, err := store.Get(name); err == nil {
			t.Errorf("Expected error for context name %q", name)
		}
	}
}

// TestConcurrentAddMessage verifies no messages are lost during concurrent access
func TestConcurrentAddMessage(t *testing.T) {
	defaults := &Metadata{MaxHistory: 0}
	store := NewSyncMapSessionStore(defaults)

	session, err := store.Get("concurrent")
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}

	var wg sync.WaitGroup
	numGoroutines := 50
	messagesPerGoroutine := 10

	wg.Add(numGoroutines)
	for g := range numGoroutines {
		go func(goroutineID int) {
			defer wg.Done()
			for m := range messagesPerGoroutine {
				session.AddMessage(messages.ChatMessage{
					Role:    messages.MessageRoleUser,
					Content: fmt.Sprintf("g%d-m%d", goroutineID, m),
				})
			}
		}(g)
	}
	wg.Wait()

	if got := len(session.GetHistory()); got != numGoroutines*messagesPerGoroutine {
		t.Errorf("Expected %d messages, got %d", numGoroutines*messagesPerGoroutine, got)
	}
}

// TestMetadataPersistence verifies metadata survives store round trips
func TestMetadataPersistence(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewFileSessionStore(tmpDir, &Metadata{MaxHistory: 100})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	fileStore := store.(*FileSessionStore)

	session, err := fileStore.Get("prices")
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	session.SetMetadata(&Metadata{
		Name:          "prices",
		Description:   "commodity price chat",
		ServerSession: "srv-42",
		MaxHistory:    100,
		Created:       time.Now(),
		LastUsed:      time.Now(),
	})
	session.Close()

	retrieved := fileStore.GetAllMetadata()["prices"]
	if retrieved == nil {
		t.Fatal("Failed to retrieve context")
	}
	if retrieved.ServerSession != "srv-42" {
		t.Errorf("Expected server session srv-42, got %q", retrieved.ServerSession)
	}

	// Partial update must preserve untouched fields.
	session2, err := fileStore.Get("prices")
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if err := session2.UpdateMetadata(&Metadata{Description: "renamed"}); err != nil {
		t.Fatalf("Failed to update metadata: %v", err)
	}
	session2.Close()

	retrieved2 := fileStore.GetAllMetadata()["prices"]
	if retrieved2 == nil {
		t.Fatal("Failed to retrieve updated context")
	}
	if retrieved2.ServerSession != "srv-42" {
		t.Errorf("ServerSession not preserved during update, got %q", retrieved2.ServerSession)
	}
	if retrieved2.Description != "renamed" {
		t.Errorf("Description not updated, got %q", retrieved2.Description)
	}
}

// TestGetBaseDir verifies the store reports its configured directory
func TestGetBaseDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSessionStore(dir, nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if got := store.(*FileSessionStore).GetBaseDir(); got != dir {
		t.Errorf("GetBaseDir() = %q, want %q", got, dir)
	}
}

// TestExpiryGoroutine verifies the expiry goroutine cleans up idle sessions
func TestExpiryGoroutine(t *testing.T) {
	store := NewSyncMapSessionStore(&Metadata{TTL: 50 * time.Millisecond})

	session1, err := store.Get("session1")
	if err != nil {
		t.Fatalf("Failed to get session1: %v", err)
	}
	session1.AddMessage(messages.ChatMessage{Role: messages.MessageRoleUser, Content: "msg1"})

	// Wait long enough for the expiry cycle to fire.
	time.Sleep(120 * time.Millisecond)

	if store.Exists("session1") {
		t.Error("session1 should have expired")
	}

	recreated, err := store.Get("session1")
	if err != nil {
		t.Fatalf("Failed to recreate session1: %v", err)
	}
	if len(recreated.GetHistory()) != 0 {
		t.Error("recreated session should be empty")
	}
}
