package gradio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// predictWS runs one job through the Gradio 3 websocket queue.
func (c *Client) predictWS(ctx context.Context, ep Endpoint, sessionHash string, data []any, onData func([]json.RawMessage)) ([]json.RawMessage, error) {
	conn, _, err := c.dialer.DialContext(ctx, queueURL(ep.Root), nil)
	if err != nil {
		return nil, fmt.Errorf("gradio queue dial: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", ErrStreamClosed, err)
		}

		switch msg.Msg {
		case "send_hash":
			if err := conn.WriteJSON(wsHash{FnIndex: ep.FnIndex, SessionHash: sessionHash}); err != nil {
				return nil, fmt.Errorf("send hash: %w", err)
			}
		case "send_data":
			payload := wsData{Data: data, FnIndex: ep.FnIndex, SessionHash: sessionHash}
			if err := conn.WriteJSON(payload); err != nil {
				return nil, fmt.Errorf("send data: %w", err)
			}
		case "queue_full":
			return nil, ErrQueueFull
		case "process_generating":
			if !msg.Success || msg.Output == nil {
				return nil, fmt.Errorf("%w: %s", ErrPrediction, outputError(msg.Output))
			}
			if onData != nil {
				onData(msg.Output.Data)
			}
		case "process_completed":
			if !msg.Success || msg.Output == nil || msg.Output.Error != "" {
				return nil, fmt.Errorf("%w: %s", ErrPrediction, outputError(msg.Output))
			}
			return msg.Output.Data, nil
		}
		// estimation, process_starts and heartbeat carry nothing we need.
	}
}

func queueURL(root string) string {
	switch {
	case strings.HasPrefix(root, "https://"):
		root = "wss://" + strings.TrimPrefix(root, "https://")
	case strings.HasPrefix(root, "http://"):
		root = "ws://" + strings.TrimPrefix(root, "http://")
	}
	return root + "/queue/join"
}

func outputError(out *wsOutput) string {
	if out == nil || out.Error == "" {
		return "no details"
	}
	return out.Error
}
