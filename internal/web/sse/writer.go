// Package sse provides Server-Sent Events utilities for streaming
// responses.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Writer wraps an http.ResponseWriter for SSE streaming.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter creates a new SSE writer and sets appropriate headers.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Flush immediately so clients observe the open stream before the
	// first event is produced.
	flusher.Flush()

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteEvent sends a named event with raw data, handling multi-line
// content: the SSE spec requires each line to carry its own "data: "
// prefix, and an empty line terminates the event.
func (w *Writer) WriteEvent(ctx context.Context, event, data string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context canceled: %w", ctx.Err())
	default:
	}

	if _, err := fmt.Fprintf(w.w, "event: %s\n", event); err != nil {
		return fmt.Errorf("write event name: %w", err)
	}
	for _, line := range strings.Split(data, "\n") {
		if _, err := fmt.Fprintf(w.w, "data: %s\n", line); err != nil {
			return fmt.Errorf("write data line: %w", err)
		}
	}
	if _, err := w.w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write terminator: %w", err)
	}

	w.flusher.Flush()
	return nil
}

// WriteJSON sends a named event with a JSON payload.
func (w *Writer) WriteJSON(ctx context.Context, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	return w.WriteEvent(ctx, event, string(data))
}

// WriteError sends an error event.
func (w *Writer) WriteError(code, message string) error {
	payload := map[string]string{"code": code, "message": message}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if _, err := fmt.Fprintf(w.w, "event: error\ndata: %s\n\n", data); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	w.flusher.Flush()
	return nil
}
