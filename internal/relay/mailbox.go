package relay

import "sync"

// InstructionDelim separates queued instructions in a mailbox.
const InstructionDelim = ";"

// Mailbox accumulates out-of-band text instructions for a client. Any party
// may append; the owning client drains the whole string exactly once per
// poll cycle.
type Mailbox struct {
	mu      sync.Mutex
	pending string
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Append queues an instruction, preserving append order across writers.
func (m *Mailbox) Append(instruction string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == "" {
		m.pending = instruction
		return
	}
	m.pending += InstructionDelim + instruction
}

// Drain returns the queued instruction string and clears the mailbox.
func (m *Mailbox) Drain() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending := m.pending
	m.pending = ""
	return pending
}

// HasPending reports whether any instructions are waiting.
func (m *Mailbox) HasPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != ""
}
