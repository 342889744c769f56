package gradio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zhengjr9/gradio-agent/internal/chat"
	"github.com/zhengjr9/gradio-agent/test/testutil"
)

func newChatbot(t *testing.T, mock *testutil.MockGradio, transport Transport, historySize int) *Chatbot {
	t.Helper()
	c := NewClient(Options{Transport: transport})
	bot, err := c.NewChatbot(mock.URL(), historySize)
	if err != nil {
		t.Fatalf("NewChatbot: %v", err)
	}
	return bot
}

func TestChatbot_Chat(t *testing.T) {
	for _, transport := range []Transport{TransportSSE, TransportWS} {
		t.Run(string(transport), func(t *testing.T) {
			mock := testutil.NewMockGradio("Hello!", "He", "Hello", "Hello!")
			defer mock.Close()

			bot := newChatbot(t, mock, transport, 20)
			bot.SetHistory([]chat.Turn{{User: "a", Assistant: "b"}})

			var seen []string
			got, err := bot.Chat(context.Background(), "hello", func(text string) {
				seen = append(seen, text)
			})
			if err != nil {
				t.Fatalf("Chat: %v", err)
			}
			if got != "Hello!" {
				t.Errorf("expected final %q, got %q", "Hello!", got)
			}
			if strings.Join(seen, "|") != "He|Hello|Hello!" {
				t.Errorf("unexpected callbacks: %q", seen)
			}

			data := mock.LastData()
			if len(data) != 2 || data[0] != "hello" {
				t.Fatalf("unexpected data sent: %v", data)
			}
			history, _ := data[1].([]any)
			if len(history) != 1 {
				t.Errorf("expected 1 history pair on the wire, got %v", data[1])
			}

			if h := bot.History(); len(h) != 2 || h[1] != (chat.Turn{User: "hello", Assistant: "Hello!"}) {
				t.Errorf("expected reply appended to history, got %+v", h)
			}
		})
	}
}

func TestChatbot_NoIntermediateOutputs(t *testing.T) {
	mock := testutil.NewMockGradio("only final")
	defer mock.Close()

	bot := newChatbot(t, mock, TransportSSE, 20)
	calls := 0
	got, err := bot.Chat(context.Background(), "x", func(string) { calls++ })
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "only final" || calls != 0 {
		t.Errorf("got %q with %d callbacks", got, calls)
	}
}

func TestChatbot_HistoryTrimmed(t *testing.T) {
	mock := testutil.NewMockGradio("ok")
	defer mock.Close()

	bot := newChatbot(t, mock, TransportSSE, 2)
	bot.SetHistory([]chat.Turn{{User: "1"}, {User: "2"}, {User: "3"}})
	if _, err := bot.Chat(context.Background(), "4", nil); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	history, _ := mock.LastData()[1].([]any)
	if len(history) != 2 {
		t.Fatalf("expected 2 history pairs on the wire, got %v", history)
	}
	first, _ := history[0].([]any)
	if len(first) != 2 || first[0] != "2" {
		t.Errorf("expected oldest turns dropped, got %v", history)
	}
	if len(bot.History()) != 2 {
		t.Errorf("expected stored history capped at 2, got %d", len(bot.History()))
	}
}

func TestChatbot_PredictionError(t *testing.T) {
	for _, transport := range []Transport{TransportSSE, TransportWS} {
		t.Run(string(transport), func(t *testing.T) {
			mock := testutil.NewMockGradio("unused", "partial")
			mock.Fail = true
			defer mock.Close()

			bot := newChatbot(t, mock, transport, 20)
			_, err := bot.Chat(context.Background(), "x", nil)
			if !errors.Is(err, ErrPrediction) {
				t.Fatalf("expected ErrPrediction, got %v", err)
			}
			if !strings.Contains(err.Error(), "model overloaded") {
				t.Errorf("expected remote message in error, got %v", err)
			}
		})
	}
}

func TestChatbot_CanceledContext(t *testing.T) {
	mock := testutil.NewMockGradio("ok")
	defer mock.Close()

	bot := newChatbot(t, mock, TransportSSE, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := bot.Chat(ctx, "x", nil); err == nil {
		t.Fatal("expected error for canceled context")
	}
	if mock.Calls() != 0 {
		t.Errorf("expected no job submitted, got %d", mock.Calls())
	}
}
