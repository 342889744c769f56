package gradio

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownModel is returned when a model identifier cannot be resolved to a space.
	ErrUnknownModel = errors.New("unknown model")
	// ErrQueueFull is returned when the space rejects the job because its queue is full.
	ErrQueueFull = errors.New("gradio queue is full")
	// ErrPrediction is returned when the space reports a failed prediction.
	ErrPrediction = errors.New("gradio prediction failed")
	// ErrStreamClosed is returned when the event stream ends before the job completes.
	ErrStreamClosed = errors.New("gradio stream closed before completion")
)

// Transport selects the protocol used to reach a space.
type Transport string

const (
	// TransportSSE is the Gradio 4+ /call API.
	TransportSSE Transport = "sse"
	// TransportWS is the Gradio 3 websocket queue.
	TransportWS Transport = "ws"
)

// ParseTransport validates a transport name. An empty name selects TransportSSE.
func ParseTransport(s string) (Transport, error) {
	switch Transport(s) {
	case "", TransportSSE:
		return TransportSSE, nil
	case TransportWS:
		return TransportWS, nil
	}
	return "", fmt.Errorf("unknown gradio transport %q", s)
}

// Endpoint addresses one chat function of one space.
type Endpoint struct {
	// Root is the space origin, e.g. "https://owner-name.hf.space", without a trailing slash.
	Root string
	// APIName is the named endpoint used by TransportSSE, e.g. "/chat".
	APIName string
	// FnIndex is the dependency index used by TransportWS.
	FnIndex   int
	Transport Transport
}

// callResponse is returned by POST /call/{api}.
type callResponse struct {
	EventID string `json:"event_id"`
}

// streamEvent is one SSE frame from GET /call/{api}/{event_id}.
type streamEvent struct {
	Event string
	Data  json.RawMessage
	// Err is set when the reader itself fails.
	Err error
}

// wsMessage is one server message on the /queue/join websocket.
type wsMessage struct {
	Msg       string    `json:"msg"`
	Rank      int       `json:"rank,omitempty"`
	QueueSize int       `json:"queue_size,omitempty"`
	Success   bool      `json:"success"`
	Output    *wsOutput `json:"output,omitempty"`
}

type wsOutput struct {
	Data  []json.RawMessage `json:"data"`
	Error string            `json:"error,omitempty"`
}

// wsHash answers the send_hash message.
type wsHash struct {
	FnIndex     int    `json:"fn_index"`
	SessionHash string `json:"session_hash"`
}

// wsData answers the send_data message.
type wsData struct {
	Data        []any  `json:"data"`
	EventData   any    `json:"event_data"`
	FnIndex     int    `json:"fn_index"`
	SessionHash string `json:"session_hash"`
}
