package openai

import (
	"log/slog"
	"net/http"

	"github.com/zhengjr9/gradio-agent/internal/adapter"
	"github.com/zhengjr9/gradio-agent/internal/chat"
	apierrors "github.com/zhengjr9/gradio-agent/internal/errors"
	"github.com/zhengjr9/gradio-agent/internal/httputil"
)

const maxBodyBytes = 4 << 20

// Handler serves the structured path: POST / and POST /api/conversation.
type Handler struct {
	sessions        adapter.SessionFactory
	defaultModel    string
	historySize     int
	cumulativeDelta bool
}

// NewHandler constructs a Handler. With cumulativeDelta set, stream events
// carry the whole reply so far in delta as well as in message.
func NewHandler(sessions adapter.SessionFactory, defaultModel string, historySize int, cumulativeDelta bool) *Handler {
	return &Handler{
		sessions:        sessions,
		defaultModel:    defaultModel,
		historySize:     historySize,
		cumulativeDelta: cumulativeDelta,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	req, err := DecodeRequest(r)
	if err != nil {
		apierrors.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	prompt, history, err := chat.Normalize(req.Messages)
	if err != nil {
		apierrors.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	model := req.Model
	if model == "" {
		model = h.defaultModel
	}
	session, err := h.sessions.NewSession(model, h.historySize)
	if err != nil {
		apierrors.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	session.SetHistory(history)

	slog.Debug("chat request",
		"model", model,
		"action", req.Action,
		"history", len(history),
	)

	if httputil.WantsEventStream(r) {
		h.serveStream(w, r, session, prompt)
		return
	}

	content, err := session.Chat(r.Context(), prompt, nil)
	if err != nil {
		apierrors.WriteUpstreamError(w, err)
		return
	}
	if err := WriteBlockingResponse(w, chat.NewResponse(content, prompt)); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

func (h *Handler) serveStream(w http.ResponseWriter, r *http.Request, session adapter.Session, prompt string) {
	sw := httputil.NewStreamWriter(w)
	var tracker chat.DeltaTracker
	var writeErr error

	content, err := session.Chat(r.Context(), prompt, func(text string) {
		if writeErr == nil {
			writeErr = h.emit(sw, &tracker, text)
		}
	})
	if err != nil {
		if !sw.Started() {
			apierrors.WriteUpstreamError(w, err)
			return
		}
		// Headers are gone; the stream ends without [DONE].
		slog.Error("backend failed mid-stream", "error", err)
		return
	}

	// Deliver whatever the callbacks did not, including the case of none at all.
	if writeErr == nil && tracker.Sent() < len(content) {
		writeErr = h.emit(sw, &tracker, content)
	}
	if writeErr == nil {
		writeErr = WriteDone(sw)
	}
	if writeErr != nil {
		slog.Warn("stream write failed", "error", writeErr)
	}
}

func (h *Handler) emit(sw *httputil.StreamWriter, tracker *chat.DeltaTracker, text string) error {
	// One event per callback, even when the text did not grow.
	delta := tracker.Next(text)
	if h.cumulativeDelta {
		delta = text
	}
	return WriteStreamEvent(sw, chat.NewStreamResponse(text, delta))
}
