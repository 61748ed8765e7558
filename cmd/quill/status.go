package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/muesli/termenv"

	"github.com/quillchat/quill/messages"
)

// StatusLine shows the server's current phase as a spinner on stderr
type StatusLine struct {
	output   *termenv.Output
	mu       sync.Mutex
	active   bool
	spinner  []string
	spinIdx  int
	stopChan chan struct{}
	message  string
}

// NewStatusLine creates a status line writer
func NewStatusLine() *StatusLine {
	return &StatusLine{
		output:  termenv.NewOutput(os.Stderr),
		spinner: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// phaseText maps a progress report to the status line text
func phaseText(p *messages.Progress) string {
	if p == nil {
		return "waiting"
	}
	switch p.Phase {
	case messages.PhaseReceived:
		return "received"
	case messages.PhaseLoadingContext:
		return "loading context"
	case messages.PhaseLoadingTools:
		return "loading tools"
	case messages.PhaseThinking:
		return "thinking"
	case messages.PhaseCallingTool:
		if p.ToolName != "" {
			return fmt.Sprintf("calling %s", p.ToolName)
		}
		return "calling tool"
	case messages.PhaseIteration:
		return fmt.Sprintf("iteration %d", p.Iteration)
	case messages.PhaseResponding:
		return "responding"
	}
	return string(p.Phase)
}

// SetPhase updates the displayed phase
func (s *StatusLine) SetPhase(p *messages.Progress) {
	s.mu.Lock()
	s.message = phaseText(p)
	running := s.active
	if !running {
		s.active = true
		s.stopChan = make(chan struct{})
	}
	s.mu.Unlock()

	if running {
		return
	}

	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.mu.Lock()
				s.spinIdx = (s.spinIdx + 1) % len(s.spinner)
				fmt.Fprint(s.output, "\r")
				s.output.ClearLine()
				fmt.Fprintf(s.output, "%s %s", s.spinner[s.spinIdx], s.message)
				s.mu.Unlock()
			}
		}
	}()
}

// Clear stops the spinner and erases the line. Called before the first
// content byte so the status never mixes with the response.
func (s *StatusLine) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active && s.stopChan != nil {
		close(s.stopChan)
		s.stopChan = nil
	}
	s.active = false

	fmt.Fprint(s.output, "\r")
	s.output.ClearLine()
}
