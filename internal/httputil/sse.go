package httputil

import (
	"net/http"
	"strings"
)

const EventStreamContentType = "text/event-stream; charset=utf-8"

// SetSSEHeaders sets the standard headers for a Server-Sent Events response.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", EventStreamContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// WantsEventStream reports whether the Accept header asks for an event stream.
func WantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// StreamWriter writes an event stream. SSE headers are sent with the first
// write, so a handler can still answer with an error status until then.
// Every write is flushed when the underlying writer supports it.
type StreamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// NewStreamWriter wraps w.
func NewStreamWriter(w http.ResponseWriter) *StreamWriter {
	sw := &StreamWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	return sw
}

// Started reports whether any byte has been written.
func (sw *StreamWriter) Started() bool {
	return sw.started
}

// Start sends the SSE headers if they have not been sent yet.
func (sw *StreamWriter) Start() {
	if sw.started {
		return
	}
	sw.started = true
	SetSSEHeaders(sw.w)
	sw.w.WriteHeader(http.StatusOK)
	sw.Flush()
}

func (sw *StreamWriter) Write(p []byte) (int, error) {
	sw.Start()
	n, err := sw.w.Write(p)
	sw.Flush()
	return n, err
}

// WriteChunk writes s unless it is empty.
func (sw *StreamWriter) WriteChunk(s string) error {
	if s == "" {
		return nil
	}
	_, err := sw.Write([]byte(s))
	return err
}

func (sw *StreamWriter) Flush() {
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}
