package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const mockEventID = "evt-1"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MockGradio is an httptest.Server that simulates a Gradio chat space.
// It serves both the /call SSE API and the /queue/join websocket.
type MockGradio struct {
	Server *httptest.Server

	// Chunks are the cumulative replies sent as intermediate outputs.
	Chunks []string
	// Final is the reply sent with the completed job.
	Final string
	// Fail makes the space report an error instead of completing.
	Fail bool

	mu       sync.Mutex
	lastData []any
	calls    int
}

// NewMockGradio creates and starts a mock space.
func NewMockGradio(final string, chunks ...string) *MockGradio {
	m := &MockGradio{Final: final, Chunks: chunks}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// Close shuts down the mock server.
func (m *MockGradio) Close() {
	m.Server.Close()
}

// URL returns the space root of the mock server.
func (m *MockGradio) URL() string {
	return m.Server.URL
}

// LastData returns the data array of the most recent job.
func (m *MockGradio) LastData() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastData
}

// Calls returns how many jobs were submitted.
func (m *MockGradio) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockGradio) record(data []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastData = data
	m.calls++
}

func (m *MockGradio) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/queue/join":
		m.serveQueue(w, r)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/call/"):
		m.serveCall(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/"+mockEventID):
		m.serveEvents(w)
	default:
		http.NotFound(w, r)
	}
}

func (m *MockGradio) serveCall(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data []any `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	m.record(body.Data)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"event_id": mockEventID})
}

func (m *MockGradio) serveEvents(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, hasFlusher := w.(http.Flusher)
	send := func(event string, payload any) {
		data, _ := json.Marshal(payload)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		if hasFlusher {
			flusher.Flush()
		}
	}

	send("heartbeat", nil)
	for _, chunk := range m.Chunks {
		send("generating", m.outputs(chunk))
	}
	if m.Fail {
		send("error", "model overloaded")
		return
	}
	send("complete", m.outputs(m.Final))
}

func (m *MockGradio) serveQueue(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"msg": "send_hash"}); err != nil {
		return
	}
	var hash map[string]any
	if err := conn.ReadJSON(&hash); err != nil {
		return
	}
	_ = conn.WriteJSON(map[string]any{"msg": "estimation", "rank": 0, "queue_size": 1})
	if err := conn.WriteJSON(map[string]any{"msg": "send_data"}); err != nil {
		return
	}
	var payload struct {
		Data []any `json:"data"`
	}
	if err := conn.ReadJSON(&payload); err != nil {
		return
	}
	m.record(payload.Data)

	_ = conn.WriteJSON(map[string]any{"msg": "process_starts"})
	for _, chunk := range m.Chunks {
		_ = conn.WriteJSON(map[string]any{
			"msg":     "process_generating",
			"success": true,
			"output":  map[string]any{"data": m.outputs(chunk)},
		})
	}
	if m.Fail {
		_ = conn.WriteJSON(map[string]any{
			"msg":     "process_completed",
			"success": false,
			"output":  map[string]any{"error": "model overloaded"},
		})
		return
	}
	_ = conn.WriteJSON(map[string]any{
		"msg":     "process_completed",
		"success": true,
		"output":  map[string]any{"data": m.outputs(m.Final)},
	})
}

// outputs mimics a chatbot space: a cleared textbox followed by the chat
// history with reply as the newest answer.
func (m *MockGradio) outputs(reply string) []any {
	data := m.LastData()
	var history []any
	prompt := ""
	if len(data) > 0 {
		prompt, _ = data[0].(string)
	}
	if len(data) > 1 {
		history, _ = data[1].([]any)
	}
	turns := append(append([]any(nil), history...), []any{prompt, reply})
	return []any{"", turns}
}
