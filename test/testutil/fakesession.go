package testutil

import (
	"context"

	"github.com/zhengjr9/gradio-agent/internal/adapter"
	"github.com/zhengjr9/gradio-agent/internal/chat"
)

// FakeSession is an in-memory adapter.Session with a scripted reply.
type FakeSession struct {
	// Chunks are passed to onMessage in order before the call resolves.
	Chunks []string
	Final  string
	// Err is returned after all chunks were delivered.
	Err error

	Model       string
	HistorySize int
	History     []chat.Turn
	Prompt      string
	Chatted     bool
	// Ctx is the context the last Chat call received.
	Ctx context.Context
}

func (s *FakeSession) SetHistory(turns []chat.Turn) {
	s.History = turns
}

func (s *FakeSession) Chat(ctx context.Context, prompt string, onMessage func(string)) (string, error) {
	s.Chatted = true
	s.Ctx = ctx
	s.Prompt = prompt
	for _, c := range s.Chunks {
		if onMessage != nil {
			onMessage(c)
		}
	}
	if s.Err != nil {
		return "", s.Err
	}
	return s.Final, nil
}

// FakeFactory hands out its Session, or fails with Err.
type FakeFactory struct {
	Session *FakeSession
	Err     error
	Opened  int
}

func (f *FakeFactory) NewSession(model string, historySize int) (adapter.Session, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.Opened++
	f.Session.Model = model
	f.Session.HistorySize = historySize
	return f.Session, nil
}
