package relay

import (
	"strings"
	"sync"
	"testing"
)

func TestMailbox_AppendAndDrain(t *testing.T) {
	m := NewMailbox()

	if m.HasPending() {
		t.Fatal("new mailbox reported pending instructions")
	}

	m.Append("SET_SEED:42")
	m.Append("START_GAME")

	if !m.HasPending() {
		t.Fatal("mailbox with instructions reported empty")
	}

	got := m.Drain()
	if got != "SET_SEED:42;START_GAME" {
		t.Errorf("Drain() = %q, want %q", got, "SET_SEED:42;START_GAME")
	}

	// Drain clears the mailbox.
	if m.HasPending() {
		t.Error("mailbox still pending after drain")
	}
	if got := m.Drain(); got != "" {
		t.Errorf("second Drain() = %q, want empty", got)
	}
}

func TestMailbox_SingleInstructionHasNoDelimiter(t *testing.T) {
	m := NewMailbox()
	m.Append("START_GAME")

	if got := m.Drain(); got != "START_GAME" {
		t.Errorf("Drain() = %q, want %q", got, "START_GAME")
	}
}

func TestMailbox_ConcurrentAppends(t *testing.T) {
	m := NewMailbox()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Append("GAME_OVER:P1:P2")
		}()
	}
	wg.Wait()

	got := m.Drain()
	parts := strings.Split(got, InstructionDelim)
	if len(parts) != 20 {
		t.Fatalf("drained %d instructions, want 20 (%q)", len(parts), got)
	}
	for _, p := range parts {
		if p != "GAME_OVER:P1:P2" {
			t.Fatalf("corrupted instruction %q in %q", p, got)
		}
	}
}
