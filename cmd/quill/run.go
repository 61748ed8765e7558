package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quillchat/quill/client"
	"github.com/quillchat/quill/messages"
	"github.com/quillchat/quill/sessions"
	"github.com/quillchat/quill/stream"
)

const renderTick = 80 * time.Millisecond

func runConversation(ctx context.Context, config *Config, store sessions.SessionStore) error {
	prompt, err := getPrompt(config)
	if err != nil {
		return err
	}
	if prompt == "" {
		return fmt.Errorf("empty prompt")
	}

	// Open the local transcript, if a context is in play.
	var session sessions.Session
	var serverSession string
	if config.ContextName != "" {
		session, err = store.Get(config.ContextName)
		if err != nil {
			return err
		}
		defer session.Close()

		if config.ResetContext {
			session.Clear()
		}

		serverSession = session.GetMetadata().ServerSession
		if serverSession == "" {
			// First message in this context; mint the conversation id the
			// backend will thread replies through.
			serverSession = uuid.NewString()
			if err := session.UpdateMetadata(&sessions.Metadata{ServerSession: serverSession}); err != nil {
				return fmt.Errorf("failed to save context: %w", err)
			}
		}
	}

	api := client.New(&client.Config{
		ServerURL: config.Server,
		Token:     config.Token,
		Timeout:   config.Timeout,
	})

	// The request is made with the controller's context so a Stop
	// aborts the transport read even when the server is quiet.
	ctrl := stream.NewController(stream.NewSession())
	streamCtx := ctrl.Context(ctx)

	body, err := api.StreamMessage(streamCtx, client.MessageRequest{
		Prompt:  prompt,
		Session: serverSession,
	})
	if err != nil {
		return err
	}
	defer body.Close()

	// First interrupt stops the stream and keeps the partial response;
	// a second one kills the process the usual way.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		if _, ok := <-sigChan; ok {
			ctrl.Stop()
			signal.Stop(sigChan)
		}
	}()

	snap, err := pumpAndRender(streamCtx, config, ctrl, body)
	if err != nil {
		return err
	}

	if session != nil {
		persistTurn(session, prompt, snap)
	}

	printFooter(config, snap)
	return nil
}

// pumpAndRender drives the read loop while echoing raw text deltas to
// stdout and phase updates to the status line.
func pumpAndRender(ctx context.Context, config *Config, ctrl *stream.Controller, body io.Reader) (stream.Snapshot, error) {
	var status *StatusLine
	if isTerminal() && !config.Plain {
		status = NewStatusLine()
		status.SetPhase(nil)
	}

	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(done)
		return ctrl.Run(gctx, body)
	})

	g.Go(func() error {
		ticker := time.NewTicker(renderTick)
		defer ticker.Stop()

		printed := 0
		for {
			select {
			case <-done:
				printed = printDelta(ctrl, status, printed)
				if status != nil {
					status.Clear()
				}
				return nil
			case <-ticker.C:
				printed = printDelta(ctrl, status, printed)
			}
		}
	})

	err := g.Wait()
	snap := ctrl.Session().Snapshot()
	if snap.Raw != "" {
		fmt.Println()
	}
	return snap, err
}

// printDelta writes any raw text received since the previous tick
func printDelta(ctrl *stream.Controller, status *StatusLine, printed int) int {
	snap := ctrl.Session().Snapshot()

	if len(snap.Raw) > printed {
		if status != nil {
			status.Clear()
		}
		fmt.Print(snap.Raw[printed:])
		return len(snap.Raw)
	}

	// No new text; keep the phase visible until content starts.
	if status != nil && printed == 0 {
		status.SetPhase(snap.Progress)
	}
	return printed
}

// persistTurn appends the exchanged pair to the local transcript
func persistTurn(session sessions.Session, prompt string, snap stream.Snapshot) {
	session.AddMessage(messages.ChatMessage{
		Role:    messages.MessageRoleUser,
		Content: prompt,
		Created: time.Now(),
	})
	session.AddMessage(messages.ChatMessage{
		Role:      messages.MessageRoleAssistant,
		Content:   snap.Raw,
		ToolCalls: snap.ToolCalls,
		Citations: snap.Citations,
		Usage:     snap.Usage,
		MessageID: snap.MessageID,
		Created:   time.Now(),
	})
}

// printFooter writes citations and usage after the response
func printFooter(config *Config, snap stream.Snapshot) {
	if config.Quiet {
		return
	}

	for i, c := range snap.Citations {
		line := fmt.Sprintf("[%d] %s (%s)", i+1, c.Source, c.SourceRef)
		if config.Plain {
			fmt.Fprintln(os.Stderr, line)
		} else {
			fmt.Fprintln(os.Stderr, citationStyle.Styled(line))
		}
	}

	if snap.Usage != nil {
		line := fmt.Sprintf("%d tokens ($%.4f)", snap.Usage.TotalTokens, snap.Usage.CostUSD)
		if config.Plain {
			fmt.Fprintln(os.Stderr, line)
		} else {
			fmt.Fprintln(os.Stderr, dimStyle.Styled(line))
		}
	}
}

func getPrompt(config *Config) (string, error) {
	if config.Prompt != "" {
		return config.Prompt, nil
	}

	if hasStdinData() {
		return readFromStdin()
	}

	// No -p flag and no pipe input, prompt the user interactively
	fmt.Fprint(os.Stderr, "Enter prompt (Ctrl+D when done):\n")
	return readFromStdin()
}
