package gradio

import (
	"bufio"
	"encoding/json"
	"strings"
)

// readStream reads SSE frames from a scanner and sends them to the returned channel.
// The channel is closed when the stream ends or an error occurs.
func readStream(scanner *bufio.Scanner) <-chan streamEvent {
	ch := make(chan streamEvent, 16)
	go func() {
		defer close(ch)
		var event string
		var data []string
		flush := func() {
			if event == "" && len(data) == 0 {
				return
			}
			ch <- streamEvent{Event: event, Data: json.RawMessage(strings.Join(data, "\n"))}
			event, data = "", nil
		}
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				// End of one SSE event block
				flush()
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			}
		}
		if err := scanner.Err(); err != nil {
			ch <- streamEvent{Err: err}
			return
		}
		flush()
	}()
	return ch
}
