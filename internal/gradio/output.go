package gradio

import "encoding/json"

// extractText finds the assistant reply in a job's outputs.
//
// Chat history outputs win: either a list of [user, bot] pairs or a list of
// {role, content} messages, whose last entry holds the reply. Otherwise the
// first plain string output is used.
func extractText(outputs []json.RawMessage) (string, bool) {
	var fallback string
	var haveFallback bool
	for _, raw := range outputs {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		switch t := unwrapUpdate(v).(type) {
		case string:
			if !haveFallback {
				fallback, haveFallback = t, true
			}
		case []any:
			if text, ok := lastReply(t); ok {
				return text, true
			}
		}
	}
	return fallback, haveFallback
}

// unwrapUpdate returns the value of a component update dict.
func unwrapUpdate(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if t, _ := m["__type__"].(string); t == "update" {
		if value, ok := m["value"]; ok {
			return value
		}
	}
	return v
}

func lastReply(history []any) (string, bool) {
	if len(history) == 0 {
		return "", false
	}
	switch last := history[len(history)-1].(type) {
	case []any:
		if len(last) != 2 {
			return "", false
		}
		reply, _ := last[1].(string)
		return reply, true
	case map[string]any:
		content, ok := last["content"]
		if !ok {
			return "", false
		}
		reply, _ := content.(string)
		return reply, true
	}
	return "", false
}
