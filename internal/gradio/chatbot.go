package gradio

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/zhengjr9/gradio-agent/internal/chat"
)

// Chatbot is one conversation with one space. It is not safe for concurrent use.
type Chatbot struct {
	client      *Client
	endpoint    Endpoint
	historySize int
	sessionHash string
	history     []chat.Turn
}

// NewChatbot resolves model and opens a conversation that sends at most
// historySize prior turns with each prompt.
func (c *Client) NewChatbot(model string, historySize int) (*Chatbot, error) {
	ep, err := c.Resolve(model)
	if err != nil {
		return nil, err
	}
	return &Chatbot{
		client:      c,
		endpoint:    ep,
		historySize: historySize,
		sessionHash: uuid.NewString(),
	}, nil
}

// Endpoint returns the resolved space endpoint.
func (b *Chatbot) Endpoint() Endpoint {
	return b.endpoint
}

// History returns the turns that will accompany the next prompt.
func (b *Chatbot) History() []chat.Turn {
	return b.history
}

// SetHistory replaces the conversation history.
func (b *Chatbot) SetHistory(turns []chat.Turn) {
	b.history = append([]chat.Turn(nil), turns...)
	b.trim()
}

// Chat sends prompt with the current history. onMessage receives the
// cumulative reply on every intermediate output that carries one.
func (b *Chatbot) Chat(ctx context.Context, prompt string, onMessage func(text string)) (string, error) {
	var last string
	onData := func(out []json.RawMessage) {
		text, ok := extractText(out)
		if !ok {
			return
		}
		last = text
		if onMessage != nil {
			onMessage(text)
		}
	}

	slog.Debug("gradio chat",
		"root", b.endpoint.Root,
		"transport", b.endpoint.Transport,
		"history", len(b.history),
	)
	final, err := b.client.predict(ctx, b.endpoint, b.sessionHash, []any{prompt, b.pairs()}, onData)
	if err != nil {
		return "", err
	}
	text, ok := extractText(final)
	if !ok {
		text = last
	}

	b.history = append(b.history, chat.Turn{User: prompt, Assistant: text})
	b.trim()
	return text, nil
}

func (b *Chatbot) trim() {
	if b.historySize >= 0 && len(b.history) > b.historySize {
		b.history = b.history[len(b.history)-b.historySize:]
	}
}

// pairs encodes history the way Gradio chatbot components expect it.
func (b *Chatbot) pairs() [][2]string {
	out := make([][2]string, len(b.history))
	for i, t := range b.history {
		out[i] = [2]string{t.User, t.Assistant}
	}
	return out
}
