package gradio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const maxFrameSize = 4 << 20

// Options configures a Client.
type Options struct {
	// Transport, APIName and FnIndex apply to spaces given by URL or owner/name.
	Transport Transport
	APIName   string
	FnIndex   int
	// ProxyURL routes outbound traffic through an HTTP proxy. Empty uses the
	// environment proxy.
	ProxyURL string
	// Spaces overrides DefaultSpaces.
	Spaces []Endpoint
}

// Client talks to Gradio spaces. It holds no per-conversation state and is
// safe for concurrent use; conversations live in Chatbot.
type Client struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
	spaces     []Endpoint
	defaults   Endpoint
}

// NewClient constructs a Client.
func NewClient(opts Options) *Client {
	transport := &http.Transport{}
	if opts.ProxyURL != "" {
		parsed, err := url.Parse(opts.ProxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	spaces := opts.Spaces
	if spaces == nil {
		spaces = DefaultSpaces
	}
	if opts.Transport == "" {
		opts.Transport = TransportSSE
	}
	if opts.APIName == "" {
		opts.APIName = "/chat"
	}

	return &Client{
		// No client timeout: replies stream for as long as the space keeps generating.
		httpClient: &http.Client{Transport: transport},
		dialer: &websocket.Dialer{
			Proxy:            transport.Proxy,
			HandshakeTimeout: 45 * time.Second,
		},
		spaces: spaces,
		defaults: Endpoint{
			APIName:   "/" + strings.TrimLeft(opts.APIName, "/"),
			FnIndex:   opts.FnIndex,
			Transport: opts.Transport,
		},
	}
}

// predict runs one job on ep. onData receives every intermediate output;
// the final output is returned.
func (c *Client) predict(ctx context.Context, ep Endpoint, sessionHash string, data []any, onData func([]json.RawMessage)) ([]json.RawMessage, error) {
	switch ep.Transport {
	case TransportWS:
		return c.predictWS(ctx, ep, sessionHash, data, onData)
	default:
		return c.predictSSE(ctx, ep, sessionHash, data, onData)
	}
}

// predictSSE submits a job to POST /call/{api} and follows its event stream.
func (c *Client) predictSSE(ctx context.Context, ep Endpoint, sessionHash string, data []any, onData func([]json.RawMessage)) ([]json.RawMessage, error) {
	callURL := ep.Root + "/call" + ep.APIName
	body, err := json.Marshal(map[string]any{
		"data":         data,
		"session_hash": sessionHash,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, callURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gradio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gradio %d: %s", resp.StatusCode, string(raw))
	}

	var call callResponse
	if err := json.NewDecoder(resp.Body).Decode(&call); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if call.EventID == "" {
		return nil, fmt.Errorf("gradio returned no event_id")
	}

	streamReq, err := http.NewRequestWithContext(ctx, http.MethodGet, callURL+"/"+call.EventID, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	streamReq.Header.Set("Accept", "text/event-stream")

	streamResp, err := c.httpClient.Do(streamReq)
	if err != nil {
		return nil, fmt.Errorf("gradio request: %w", err)
	}
	defer streamResp.Body.Close()

	if streamResp.StatusCode < 200 || streamResp.StatusCode >= 300 {
		raw, _ := io.ReadAll(streamResp.Body)
		return nil, fmt.Errorf("gradio %d: %s", streamResp.StatusCode, string(raw))
	}

	scanner := bufio.NewScanner(streamResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	events := readStream(scanner)
	defer func() {
		streamResp.Body.Close()
		for range events {
		}
	}()
	for ev := range events {
		if ev.Err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read stream: %w", ev.Err)
		}
		switch ev.Event {
		case "generating":
			out, err := decodeOutputs(ev.Data)
			if err != nil {
				return nil, err
			}
			if onData != nil {
				onData(out)
			}
		case "complete":
			return decodeOutputs(ev.Data)
		case "error":
			return nil, fmt.Errorf("%w: %s", ErrPrediction, errorText(ev.Data))
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, ErrStreamClosed
}

func decodeOutputs(data json.RawMessage) ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode outputs: %w", err)
	}
	return out, nil
}

func errorText(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		return s
	}
	if len(data) == 0 || string(data) == "null" {
		return "no details"
	}
	return string(data)
}
