package chat

import "unicode/utf8"

// DeltaTracker turns a sequence of cumulative texts into increments.
// The zero value is ready to use.
type DeltaTracker struct {
	sent int
}

// Next returns the part of cumulative not returned before. A text shorter
// than what was already sent yields "" so nothing is repeated.
//
// When the backend rewrites earlier text so that the old offset falls inside
// a multi-byte rune, the delta starts at the next rune boundary. The partial
// rune is dropped rather than emitted as invalid UTF-8.
func (d *DeltaTracker) Next(cumulative string) string {
	if len(cumulative) <= d.sent {
		return ""
	}
	start := d.sent
	for start < len(cumulative) && !utf8.RuneStart(cumulative[start]) {
		start++
	}
	d.sent = len(cumulative)
	return cumulative[start:]
}

// Sent reports how many bytes have been handed out so far.
func (d *DeltaTracker) Sent() int {
	return d.sent
}
