package openai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/zhengjr9/gradio-agent/internal/chat"
	apierrors "github.com/zhengjr9/gradio-agent/internal/errors"
)

// DecodeRequest parses and validates a structured chat request body.
func DecodeRequest(r *http.Request) (*chat.Request, error) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", apierrors.ErrMalformedBody, err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apierrors.ErrMalformedBody, err)
	}
	return &req, nil
}

// WriteBlockingResponse encodes resp as a single JSON document.
func WriteBlockingResponse(w http.ResponseWriter, resp chat.Response) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(resp)
}

// WriteStreamEvent encodes resp as one SSE data frame.
func WriteStreamEvent(w io.Writer, resp chat.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal chunk: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// WriteDone terminates a structured stream.
func WriteDone(w io.Writer) error {
	_, err := io.WriteString(w, "data: [DONE]\n\n")
	return err
}
