package adapter

import (
	"context"

	"github.com/zhengjr9/gradio-agent/internal/chat"
)

// HistorySize is the number of prior turns a backend session keeps.
const HistorySize = 20

// Session is one conversation with a single remote chat model.
type Session interface {
	// SetHistory seeds the prior turns sent along with the next prompt.
	SetHistory(turns []chat.Turn)

	// Chat sends prompt and blocks until the backend resolves.
	// onMessage, when non-nil, is called zero or more times with the
	// cumulative reply generated so far. The returned string is the final
	// cumulative reply.
	Chat(ctx context.Context, prompt string, onMessage func(text string)) (string, error)
}

// SessionFactory opens a fresh Session for a model identifier.
type SessionFactory interface {
	NewSession(model string, historySize int) (Session, error)
}

// SessionFactoryFunc adapts a function to SessionFactory.
type SessionFactoryFunc func(model string, historySize int) (Session, error)

// NewSession calls f.
func (f SessionFactoryFunc) NewSession(model string, historySize int) (Session, error) {
	return f(model, historySize)
}
