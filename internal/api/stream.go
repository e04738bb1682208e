package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Stream event types. Every turn emits, in order: start, text-start,
// one or more text-delta frames sharing the same generated id, text-end,
// finish, and finally the [DONE] sentinel. Failures emit an error frame in
// place of the text sequence so the client can render them distinctly.
const (
	EventStart     = "start"
	EventTextStart = "text-start"
	EventTextDelta = "text-delta"
	EventTextEnd   = "text-end"
	EventFinish    = "finish"
	EventError     = "error"
)

const doneSentinel = "[DONE]"

// StreamEvent is one self-contained frame of the chat response stream.
type StreamEvent struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Delta     string `json:"delta,omitempty"`
	ErrorText string `json:"errorText,omitempty"`
}

// StreamWriter emits chat response frames as server-sent events.
type StreamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewStreamWriter prepares w for SSE output and writes the response headers.
func NewStreamWriter(w http.ResponseWriter) *StreamWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Vercel-AI-UI-Message-Stream", "v1")

	flusher, _ := w.(http.Flusher)
	return &StreamWriter{w: w, flusher: flusher}
}

func (s *StreamWriter) writeEvent(ev StreamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal stream event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// WriteText emits the complete lifecycle for a single assistant message.
// The guard pipeline only releases fully approved text, so the whole message
// is sent as one delta under a fresh fragment id.
func (s *StreamWriter) WriteText(text string) error {
	id := uuid.NewString()
	events := []StreamEvent{
		{Type: EventStart},
		{Type: EventTextStart, ID: id},
		{Type: EventTextDelta, ID: id, Delta: text},
		{Type: EventTextEnd, ID: id},
		{Type: EventFinish},
	}
	for _, ev := range events {
		if err := s.writeEvent(ev); err != nil {
			return err
		}
	}
	return s.writeDone()
}

// WriteError surfaces a terminal failure to the client as an error frame
// followed by a clean stream close. Hard failures are never disguised as
// empty answers.
func (s *StreamWriter) WriteError(msg string) error {
	for _, ev := range []StreamEvent{
		{Type: EventStart},
		{Type: EventError, ErrorText: msg},
		{Type: EventFinish},
	} {
		if err := s.writeEvent(ev); err != nil {
			return err
		}
	}
	return s.writeDone()
}

func (s *StreamWriter) writeDone() error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", doneSentinel); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
