package types

import "time"

// Sentinel values shared across the wire and the core.
const (
	// UnresolvedID is claimed by clients that have not been issued an
	// identity yet. Any negative id is treated as unresolved.
	UnresolvedID int64 = -1

	// PriorityKey is the sequence key that routes a payload into the
	// priority buffer instead of the ordered buffer.
	PriorityKey int64 = -1
)

// PollRequest is the transport-neutral check-in envelope. Every transport
// shim (HTTP headers, WebSocket frames) reduces an inbound request to this
// before handing it to the core.
type PollRequest struct {
	ClientID     int64  `json:"client_id"`
	Name         string `json:"name"`
	Host         bool   `json:"host"`
	Lives        int    `json:"lives"`
	Score        int    `json:"score"`
	Instructions string `json:"instructions"`
	SequenceKey  int64  `json:"sequence_key"`
	Payload      []byte `json:"payload,omitempty"`

	// WantPayload marks polls whose transport can carry a relay payload
	// back. Message-only polls leave it false so pending payloads stay
	// buffered for the next data poll instead of being drained and lost.
	WantPayload bool `json:"want_payload,omitempty"`
}

// PollResponse carries everything a client receives on one poll: the reply
// to its instruction script, the drained contents of its mailbox, and the
// drained relay payload (if any). Payload is nil when the relay channel was
// empty.
type PollResponse struct {
	ClientID    int64  `json:"client_id"`
	Reply       string `json:"reply"`
	Messages    string `json:"messages"`
	SequenceKey int64  `json:"sequence_key"`
	Payload     []byte `json:"payload,omitempty"`
}

// PayloadRecord is one datalog row: an opaque payload delivered to a client.
// ID and LoggedAt are assigned by the store, never by callers.
type PayloadRecord struct {
	ID          string    `json:"id"`
	ClientID    int64     `json:"client_id"`
	PairID      string    `json:"pair_id"`
	SequenceKey int64     `json:"sequence_key"`
	Payload     []byte    `json:"payload"`
	LoggedAt    time.Time `json:"logged_at"`
}
