package chat

import "errors"

// ErrEmptyPrompt is returned when a request carries no user message.
var ErrEmptyPrompt = errors.New("messages can't be empty: no user message found")

// Normalize splits a flat message list into the prompt to send and the prior
// conversation history.
//
// The prompt is the content of the last user message. A user message opens a
// new turn; assistant and system messages fill the reply of the most recent
// turn and are dropped when no turn exists yet. The turn opened by the prompt
// is left out of the history while its reply is still empty.
func Normalize(msgs []Message) (string, []Turn, error) {
	last := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		return "", nil, ErrEmptyPrompt
	}

	var history []Turn
	promptTurn := -1
	for i, m := range msgs {
		if m.Role == RoleUser {
			history = append(history, Turn{User: m.Content})
			if i == last {
				promptTurn = len(history) - 1
			}
			continue
		}
		if len(history) > 0 {
			history[len(history)-1].Assistant = m.Content
		}
	}

	if promptTurn == len(history)-1 && history[promptTurn].Assistant == "" {
		history = history[:promptTurn]
	}
	return msgs[last].Content, history, nil
}
