package errors

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

var (
	ErrMalformedBody = errors.New("malformed request body")
	ErrMissingText   = errors.New("text can't be empty")
)

type jsonError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	body := jsonError{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	_ = json.NewEncoder(w).Encode(body)
}

// WriteUpstreamError reports a backend failure that happened before any
// response byte was written. A canceled request means the client is gone,
// so nothing is written.
func WriteUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) {
		slog.Debug("backend request canceled", "error", err)
		return
	}
	slog.Error("backend request failed", "error", err)
	if errors.Is(err, context.DeadlineExceeded) {
		WriteJSONError(w, http.StatusGatewayTimeout, "upstream timeout")
		return
	}
	WriteJSONError(w, http.StatusBadGateway, "upstream error: "+err.Error())
}
