package query

import (
	"log/slog"
	"net/http"

	"github.com/zhengjr9/gradio-agent/internal/adapter"
	"github.com/zhengjr9/gradio-agent/internal/chat"
	apierrors "github.com/zhengjr9/gradio-agent/internal/errors"
	"github.com/zhengjr9/gradio-agent/internal/httputil"
)

// Handler serves the query path: GET / and GET /api/conversation.
// The reply is streamed as raw text, each write carrying only what is new.
type Handler struct {
	sessions     adapter.SessionFactory
	defaultModel string
	historySize  int
}

// NewHandler constructs a Handler.
func NewHandler(sessions adapter.SessionFactory, defaultModel string, historySize int) *Handler {
	return &Handler{sessions: sessions, defaultModel: defaultModel, historySize: historySize}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("text")
	if text == "" {
		http.Error(w, apierrors.ErrMissingText.Error(), http.StatusInternalServerError)
		return
	}
	model := q.Get("model")
	if model == "" {
		model = h.defaultModel
	}

	session, err := h.sessions.NewSession(model, h.historySize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sw := httputil.NewStreamWriter(w)
	var tracker chat.DeltaTracker
	var writeErr error

	content, err := session.Chat(r.Context(), text, func(msg string) {
		if writeErr == nil {
			writeErr = sw.WriteChunk(tracker.Next(msg))
		}
	})
	if err != nil {
		if !sw.Started() {
			apierrors.WriteUpstreamError(w, err)
			return
		}
		slog.Error("backend failed mid-stream", "error", err)
		return
	}

	if writeErr == nil {
		writeErr = sw.WriteChunk(tracker.Next(content))
	}
	sw.Start()
	if writeErr != nil {
		slog.Warn("stream write failed", "error", writeErr)
	}
}
