package registry

import (
	"math/rand/v2"
	"sync"
	"time"

	"flyhard/internal/relay"
)

// Client is one registered participant: its identity, reported game state,
// and the two inbound buffers its partner writes into. Instances are created
// only by the registry and are never reused after removal.
type Client struct {
	id int64

	mu       sync.Mutex
	name     string
	host     bool
	lives    int
	score    int
	seed     int32
	closing  bool
	lastSeen time.Time

	channel *relay.Channel
	mailbox *relay.Mailbox
}

func newClient(id int64, name string, host bool, lives, score int) *Client {
	return &Client{
		id:       id,
		name:     name,
		host:     host,
		lives:    lives,
		score:    score,
		seed:     rand.Int32(),
		lastSeen: time.Now(),
		channel:  relay.NewChannel(),
		mailbox:  relay.NewMailbox(),
	}
}

// ID returns the client's registry-assigned identity.
func (c *Client) ID() int64 { return c.id }

// Channel returns the client's inbound relay channel.
func (c *Client) Channel() *relay.Channel { return c.channel }

// Mailbox returns the client's instruction mailbox.
func (c *Client) Mailbox() *relay.Mailbox { return c.mailbox }

// Touch refreshes the client's check-in timestamp and its caller-reported
// attributes. Lives and score are trusted as reported; the server never
// cross-validates them.
func (c *Client) Touch(name string, host bool, lives, score int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
	c.host = host
	c.lives = lives
	c.score = score
	c.lastSeen = time.Now()
}

// Name returns the client's display name.
func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Host reports whether the client declared itself a host.
func (c *Client) Host() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host
}

// Lives returns the client's reported lives.
func (c *Client) Lives() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lives
}

// Score returns the client's reported score.
func (c *Client) Score() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.score
}

// Seed returns the client's randomness seed.
func (c *Client) Seed() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seed
}

// SetSeed overwrites the client's seed; pairing assigns the same seed to
// both sides.
func (c *Client) SetSeed(seed int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seed = seed
}

// LastSeen returns the time of the client's most recent check-in.
func (c *Client) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Closing reports whether the client has been marked for removal. Removal is
// one-way: a closing client never becomes live again.
func (c *Client) Closing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func (c *Client) markClosing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closing = true
}
