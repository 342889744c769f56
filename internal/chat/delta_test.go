package chat

import (
	"testing"
	"unicode/utf8"
)

func TestDeltaTracker(t *testing.T) {
	var d DeltaTracker
	var got []string
	for _, s := range []string{"He", "Hello", "Hello!"} {
		if delta := d.Next(s); delta != "" {
			got = append(got, delta)
		}
	}
	if rest := d.Next("Hello!"); rest != "" {
		t.Errorf("expected nothing after final text, got %q", rest)
	}

	want := []string{"He", "llo", "!"}
	if len(got) != len(want) {
		t.Fatalf("want %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d: want %q, got %q", i, want[i], got[i])
		}
	}
}

func TestDeltaTracker_ShorterTextRepeatsNothing(t *testing.T) {
	var d DeltaTracker
	d.Next("abcdef")
	if got := d.Next("abc"); got != "" {
		t.Errorf("expected empty delta, got %q", got)
	}
	if got := d.Next("abcdefg"); got != "g" {
		t.Errorf("expected %q, got %q", "g", got)
	}
	if d.Sent() != 7 {
		t.Errorf("expected 7 bytes sent, got %d", d.Sent())
	}
}

func TestDeltaTracker_KeepsRunesWhole(t *testing.T) {
	var d DeltaTracker
	if got := d.Next("Hel▌"); got != "Hel▌" {
		t.Fatalf("expected %q, got %q", "Hel▌", got)
	}
	// The cursor glyph moved; byte 6 now falls inside it.
	got := d.Next("Hello▌")
	if !utf8.ValidString(got) {
		t.Errorf("delta %q is not valid UTF-8", got)
	}
	if d.Sent() != len("Hello▌") {
		t.Errorf("expected %d bytes sent, got %d", len("Hello▌"), d.Sent())
	}
	if got := d.Next("Hello▌ wörld"); got != " wörld" {
		t.Errorf("expected %q, got %q", " wörld", got)
	}
}
