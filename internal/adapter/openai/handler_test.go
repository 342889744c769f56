package openai

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhengjr9/gradio-agent/internal/chat"
	"github.com/zhengjr9/gradio-agent/test/testutil"
)

func serve(t *testing.T, h http.Handler, body string, stream bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/conversation", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// events decodes every data frame except the [DONE] sentinel.
func events(t *testing.T, body string) ([]chat.Response, bool) {
	t.Helper()
	var out []chat.Response
	done := false
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		rest, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		if rest == "[DONE]" {
			done = true
			continue
		}
		var resp chat.Response
		if err := json.Unmarshal([]byte(rest), &resp); err != nil {
			t.Fatalf("decode event %q: %v", rest, err)
		}
		out = append(out, resp)
	}
	return out, done
}

func TestHandler_Blocking(t *testing.T) {
	session := &testutil.FakeSession{Final: "hi there"}
	h := NewHandler(&testutil.FakeFactory{Session: session}, "0", 20, false)

	rec := serve(t, h, `{"model":"owner/space","messages":[{"role":"user","content":"hello"}]}`, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var resp chat.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(resp.Choices))
	}
	msg := resp.Choices[0].Message
	if msg.Content != "hi there" || msg.Role != chat.RoleAssistant {
		t.Errorf("unexpected message %+v", msg)
	}
	if resp.Choices[0].Delta != nil {
		t.Error("blocking response must not carry a delta")
	}
	if resp.Whisper != "hello" {
		t.Errorf("expected prompt echoed, got %q", resp.Whisper)
	}
	if session.Model != "owner/space" || session.HistorySize != 20 {
		t.Errorf("session opened with model %q size %d", session.Model, session.HistorySize)
	}
}

func TestHandler_SeedsHistory(t *testing.T) {
	session := &testutil.FakeSession{Final: "ok"}
	h := NewHandler(&testutil.FakeFactory{Session: session}, "0", 20, false)

	body := `{"messages":[
		{"role":"user","content":"a"},
		{"role":"assistant","content":"b"},
		{"role":"user","content":"c"}
	]}`
	rec := serve(t, h, body, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if session.Prompt != "c" {
		t.Errorf("expected prompt %q, got %q", "c", session.Prompt)
	}
	if len(session.History) != 1 || session.History[0] != (chat.Turn{User: "a", Assistant: "b"}) {
		t.Errorf("unexpected history %+v", session.History)
	}
	if session.Model != "0" {
		t.Errorf("expected default model, got %q", session.Model)
	}
}

func TestHandler_StreamDeltas(t *testing.T) {
	session := &testutil.FakeSession{Chunks: []string{"He", "Hello", "Hello!"}, Final: "Hello!"}
	h := NewHandler(&testutil.FakeFactory{Session: session}, "0", 20, false)

	rec := serve(t, h, `{"messages":[{"role":"user","content":"hi"}]}`, true)
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("expected SSE content-type, got %q", ct)
	}

	evs, done := events(t, rec.Body.String())
	if !done {
		t.Error("expected [DONE] sentinel")
	}
	wantDelta := []string{"He", "llo", "!"}
	wantFull := []string{"He", "Hello", "Hello!"}
	if len(evs) != len(wantDelta) {
		t.Fatalf("expected %d events, got %d", len(wantDelta), len(evs))
	}
	for i, ev := range evs {
		c := ev.Choices[0]
		if c.Delta == nil || c.Delta.Content != wantDelta[i] {
			t.Errorf("event %d: expected delta %q, got %+v", i, wantDelta[i], c.Delta)
		}
		if c.Message.Content != wantFull[i] {
			t.Errorf("event %d: expected message %q, got %q", i, wantFull[i], c.Message.Content)
		}
	}
}

func TestHandler_StreamEventPerCallback(t *testing.T) {
	session := &testutil.FakeSession{Chunks: []string{"He", "He", "Hello"}, Final: "Hello"}
	h := NewHandler(&testutil.FakeFactory{Session: session}, "0", 20, false)

	rec := serve(t, h, `{"messages":[{"role":"user","content":"hi"}]}`, true)
	evs, done := events(t, rec.Body.String())
	if !done {
		t.Error("expected [DONE] sentinel")
	}
	wantDelta := []string{"He", "", "llo"}
	if len(evs) != len(wantDelta) {
		t.Fatalf("expected %d events, got %d", len(wantDelta), len(evs))
	}
	for i, ev := range evs {
		c := ev.Choices[0]
		if c.Delta == nil || c.Delta.Content != wantDelta[i] {
			t.Errorf("event %d: expected delta %q, got %+v", i, wantDelta[i], c.Delta)
		}
	}
}

func TestHandler_StreamCumulativeDelta(t *testing.T) {
	session := &testutil.FakeSession{Chunks: []string{"He", "Hello"}, Final: "Hello"}
	h := NewHandler(&testutil.FakeFactory{Session: session}, "0", 20, true)

	rec := serve(t, h, `{"messages":[{"role":"user","content":"hi"}]}`, true)
	evs, _ := events(t, rec.Body.String())
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if got := evs[1].Choices[0].Delta.Content; got != "Hello" {
		t.Errorf("expected cumulative delta %q, got %q", "Hello", got)
	}
}

func TestHandler_StreamWithoutCallbacks(t *testing.T) {
	session := &testutil.FakeSession{Final: "whole reply"}
	h := NewHandler(&testutil.FakeFactory{Session: session}, "0", 20, false)

	rec := serve(t, h, `{"messages":[{"role":"user","content":"hi"}]}`, true)
	evs, done := events(t, rec.Body.String())
	if !done || len(evs) != 1 {
		t.Fatalf("expected one event and [DONE], got %d events (done=%v)", len(evs), done)
	}
	if got := evs[0].Choices[0].Message.Content; got != "whole reply" {
		t.Errorf("expected full reply, got %q", got)
	}
}

func TestHandler_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no user message", `{"messages":[{"role":"system","content":"s"},{"role":"assistant","content":"a"}]}`},
		{"empty messages", `{"messages":[]}`},
		{"messages not an array", `{"messages":"hello"}`},
		{"content not a string", `{"messages":[{"role":"user","content":42}]}`},
		{"content null", `{"messages":[{"role":"user","content":null}]}`},
		{"content missing", `{"messages":[{"role":"user"}]}`},
		{"unknown role", `{"messages":[{"role":"tool","content":"x"}]}`},
		{"unknown action", `{"action":"retry","messages":[{"role":"user","content":"x"}]}`},
		{"malformed json", `{`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			session := &testutil.FakeSession{Final: "unused"}
			factory := &testutil.FakeFactory{Session: session}
			h := NewHandler(factory, "0", 20, false)

			rec := serve(t, h, tc.body, false)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if factory.Opened != 0 || session.Chatted {
				t.Error("backend must not be invoked on validation failure")
			}
		})
	}
}

func TestHandler_UnknownModel(t *testing.T) {
	h := NewHandler(&testutil.FakeFactory{Err: errors.New("unknown model")}, "0", 20, false)
	rec := serve(t, h, `{"model":"99","messages":[{"role":"user","content":"x"}]}`, false)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_BackendError(t *testing.T) {
	session := &testutil.FakeSession{Err: errors.New("connection refused")}
	h := NewHandler(&testutil.FakeFactory{Session: session}, "0", 20, false)

	for _, stream := range []bool{false, true} {
		rec := serve(t, h, `{"messages":[{"role":"user","content":"x"}]}`, stream)
		if rec.Code != http.StatusBadGateway {
			t.Errorf("stream=%v: expected 502, got %d", stream, rec.Code)
		}
	}
}

func TestHandler_BackendErrorMidStream(t *testing.T) {
	session := &testutil.FakeSession{Chunks: []string{"par"}, Err: errors.New("reset")}
	h := NewHandler(&testutil.FakeFactory{Session: session}, "0", 20, false)

	rec := serve(t, h, `{"messages":[{"role":"user","content":"x"}]}`, true)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 once streaming began, got %d", rec.Code)
	}
	evs, done := events(t, rec.Body.String())
	if done {
		t.Error("stream must not be terminated with [DONE] after a backend failure")
	}
	if len(evs) != 1 {
		t.Errorf("expected the partial event, got %d", len(evs))
	}
}
