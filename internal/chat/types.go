package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Action is the caller's declared intent for a request. It is accepted and
// validated but does not change how the request is served.
type Action string

const (
	ActionNext    Action = "next"
	ActionVariant Action = "variant"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ErrMissingContent reports a message whose content is null or absent.
var ErrMissingContent = errors.New("message content must be a string")

// UnmarshalJSON rejects a null or missing content field, which plain
// decoding would accept as "".
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    Role    `json:"role"`
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Content == nil {
		return ErrMissingContent
	}
	m.Role = raw.Role
	m.Content = *raw.Content
	return nil
}

// Request is the body of POST / and POST /api/conversation.
type Request struct {
	// Model is the backend identifier: a built-in index, a space URL or owner/name.
	Model    string    `json:"model"`
	Action   Action    `json:"action,omitempty"`
	Messages []Message `json:"messages"`
}

// Response is emitted once for blocking requests and once per event when streaming.
type Response struct {
	// Whisper echoes the resolved prompt.
	Whisper string   `json:"whisper,omitempty"`
	Choices []Choice `json:"choices"`
}

// Choice carries the full message and, for stream events, the latest delta.
type Choice struct {
	Delta   *Message `json:"delta,omitempty"`
	Message Message  `json:"message"`
}

// Turn is one user utterance paired with its (possibly empty) reply.
type Turn struct {
	User      string
	Assistant string
}

// Validate checks the fields that JSON decoding alone cannot constrain.
func (r *Request) Validate() error {
	switch r.Action {
	case "", ActionNext, ActionVariant:
	default:
		return fmt.Errorf("unknown action %q", r.Action)
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return fmt.Errorf("messages[%d]: unknown role %q", i, m.Role)
		}
	}
	return nil
}

// NewResponse wraps content as a single assistant choice.
func NewResponse(content, prompt string) Response {
	return Response{
		Whisper: prompt,
		Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: content}}},
	}
}

// NewStreamResponse builds one stream event: the cumulative message plus its delta.
func NewStreamResponse(content, delta string) Response {
	return Response{
		Choices: []Choice{{
			Delta:   &Message{Role: RoleAssistant, Content: delta},
			Message: Message{Role: RoleAssistant, Content: content},
		}},
	}
}
