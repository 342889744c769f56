package a2a

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/zhengjr9/gradio-agent/internal/adapter"
	"github.com/zhengjr9/gradio-agent/internal/chat"
)

// AgentConfig holds the configuration for the Gradio-backed A2A agent.
type AgentConfig struct {
	// Name is the agent name exposed via A2A AgentCard.
	Name string
	// Description is exposed via A2A AgentCard.
	Description string
	// Sessions opens one backend session per invocation.
	Sessions adapter.SessionFactory
	// Model is the backend identifier every invocation talks to.
	Model       string
	HistorySize int
}

// New returns an agent.Agent whose Run logic sends the caller's text to the
// backend and converts its incremental output into session.Events that the
// ADK runner understands.
func New(cfg AgentConfig) (agent.Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("a2a agent: Name must not be empty")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("a2a agent: Sessions must not be nil")
	}
	if cfg.Model == "" {
		cfg.Model = "0"
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = adapter.HistorySize
	}

	return agent.New(agent.Config{
		Name:        cfg.Name,
		Description: cfg.Description,
		Run:         runFunc(cfg),
	})
}

// runFunc returns the Run closure that drives one agent invocation.
func runFunc(cfg AgentConfig) func(agent.InvocationContext) iter.Seq2[*session.Event, error] {
	return func(ctx agent.InvocationContext) iter.Seq2[*session.Event, error] {
		return func(yield func(*session.Event, error) bool) {
			query := extractQuery(ctx.UserContent())
			if query == "" {
				ev := session.NewEvent(ctx.InvocationID())
				ev.Author = cfg.Name
				ev.LLMResponse = model.LLMResponse{
					Content: textContent("(empty input)"),
				}
				yield(ev, nil)
				return
			}

			backend, err := cfg.Sessions.NewSession(cfg.Model, cfg.HistorySize)
			if err != nil {
				yield(nil, fmt.Errorf("open backend session: %w", err))
				return
			}

			// The callback runs on this goroutine, so yielding from it is safe.
			// A consumer that stops early cancels the backend call.
			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			var tracker chat.DeltaTracker
			stopped := false
			emit := func(text string) {
				delta := tracker.Next(text)
				if stopped || delta == "" {
					return
				}
				partialEv := session.NewEvent(ctx.InvocationID())
				partialEv.Author = cfg.Name
				partialEv.Branch = ctx.Branch()
				partialEv.LLMResponse = model.LLMResponse{
					Content: textContent(delta),
					Partial: true,
				}
				if !yield(partialEv, nil) {
					stopped = true
					cancel()
				}
			}

			reply, err := backend.Chat(runCtx, query, emit)
			if stopped {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("backend chat failed: %w", err))
				return
			}
			emit(reply)
			if stopped {
				return
			}

			// Emit the final (non-partial) event with the complete answer so that
			// IsFinalResponse() returns true and the runner closes the invocation.
			finalEv := session.NewEvent(ctx.InvocationID())
			finalEv.Author = cfg.Name
			finalEv.Branch = ctx.Branch()
			finalEv.LLMResponse = model.LLMResponse{
				Content: textContent(reply),
				Partial: false,
			}
			yield(finalEv, nil)
		}
	}
}

// extractQuery pulls the plain-text content from the genai.Content that ADK
// puts in the InvocationContext when the caller sends a message.
func extractQuery(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// textContent wraps a string into a *genai.Content.
func textContent(text string) *genai.Content {
	return &genai.Content{
		Role:  genai.RoleModel,
		Parts: []*genai.Part{{Text: text}},
	}
}
