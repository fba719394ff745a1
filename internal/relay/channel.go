package relay

import (
	"sync"

	"flyhard/pkg/types"
)

// Channel is the per-client inbound payload buffer. It holds two tiers:
// a FIFO priority buffer drained one element at a time, and an ordered
// buffer keyed by sequence number where only the most recent entry
// survives a read.
//
// Writes come from the client's partner; reads only ever come from the
// owning client's own poll. A single mutex covers both tiers so the
// priority-over-latest decision is atomic with respect to writers.
type Channel struct {
	mu       sync.Mutex
	priority [][]byte         // oldest first
	ordered  map[int64][]byte // sequence key -> payload
}

// NewChannel creates an empty relay channel.
func NewChannel() *Channel {
	return &Channel{
		ordered: make(map[int64][]byte),
	}
}

// Write stores a payload. A key equal to types.PriorityKey appends to the
// priority buffer; any other key upserts into the ordered buffer, where a
// later read keeps only the highest key.
func (c *Channel) Write(key int64, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key == types.PriorityKey {
		c.priority = append(c.priority, payload)
		return
	}
	c.ordered[key] = payload
}

// Read drains the channel. If the priority buffer is non-empty its head is
// popped and returned with types.PriorityKey; the ordered buffer is left
// untouched for that cycle. Otherwise the highest-keyed ordered entry is
// returned and the whole ordered buffer is discarded. Returns ok=false when
// both tiers are empty.
func (c *Channel) Read() (key int64, payload []byte, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.priority) > 0 {
		head := c.priority[0]
		c.priority = c.priority[1:]
		return types.PriorityKey, head, true
	}

	if len(c.ordered) == 0 {
		return 0, nil, false
	}

	latest := int64(0)
	first := true
	for k := range c.ordered {
		if first || k > latest {
			latest = k
			first = false
		}
	}
	payload = c.ordered[latest]
	c.ordered = make(map[int64][]byte)
	return latest, payload, true
}

// Pending reports whether a read would return a payload.
func (c *Channel) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.priority) > 0 || len(c.ordered) > 0
}
