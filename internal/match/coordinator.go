package match

import (
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flyhard/internal/protocol"
	"flyhard/internal/registry"
	"flyhard/internal/scores"
)

// Coordinator implements the pairing protocol: discovering open hosts,
// joining them, and settling a session's outcome into the high-score
// ledger. All replies are wire tokens; failures never surface as errors to
// the transport.
type Coordinator struct {
	registry *registry.Registry
	ledger   *scores.Ledger
	log      *zap.Logger

	// seedFn produces the shared randomness seed handed to both sides of a
	// new pairing. Overridden in tests.
	seedFn func() int32

	// settled holds the pair sessions whose outcome has already been
	// recorded, so both partners reporting GAME_OVER settle only once.
	// Sessions are uuids and never reused.
	mu      sync.Mutex
	settled map[string]struct{}
}

// NewCoordinator creates a coordinator over the given registry and ledger.
func NewCoordinator(reg *registry.Registry, ledger *scores.Ledger, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		registry: reg,
		ledger:   ledger,
		log:      log,
		seedFn:   rand.Int32,
		settled:  make(map[string]struct{}),
	}
}

// OpenConnections answers GET_OPEN_CONNECTIONS. A hosting caller is itself
// the open slot, so it sees NO_CONNECTIONS; a non-hosting caller gets the
// open host list as `id=name#…`, or NO_CONNECTIONS when there is none.
func (c *Coordinator) OpenConnections(caller *registry.Client) string {
	if caller.Host() {
		return protocol.TokenNoConnections
	}

	hosts := c.registry.OpenHosts()
	if len(hosts) == 0 {
		return protocol.TokenNoConnections
	}

	items := make([]string, 0, len(hosts))
	for _, h := range hosts {
		items = append(items, protocol.FormatEntry(
			strconv.FormatInt(h.ID(), 10), h.Name()))
	}
	return protocol.FormatList(items)
}

// Join answers JOIN:<partnerID>. The partner id must parse, denote a live
// client other than the caller, and be unpaired; anything else is
// INVALID_PARTNER with no side effects. Success pairs both sides, hands
// them a shared seed, and queues SET_SEED plus START_GAME for the partner.
func (c *Coordinator) Join(caller *registry.Client, arg string) string {
	partnerID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return protocol.TokenInvalidPartner
	}

	session := uuid.New().String()
	if err := c.registry.Pair(caller.ID(), partnerID, session); err != nil {
		return protocol.TokenInvalidPartner
	}

	partner := c.registry.Partner(caller.ID())
	if partner == nil {
		// The partner was evicted between pairing and seeding.
		return protocol.TokenInvalidPartner
	}

	seed := c.seedFn()
	caller.SetSeed(seed)
	partner.SetSeed(seed)

	setSeed := protocol.FormatSetSeed(seed)
	partner.Mailbox().Append(setSeed)
	partner.Mailbox().Append(protocol.TokenStartGame)

	c.log.Info("clients paired",
		zap.Int64("client_id", caller.ID()),
		zap.Int64("partner_id", partner.ID()),
		zap.String("pair_id", session))

	return setSeed + protocol.CommandDelim + protocol.TokenStartGame
}

// GameOver answers GAME_OVER with optional trailing parameters. The reply is
// always ENDED_GAME. A paired caller forwards GAME_OVER (parameters
// verbatim) to its partner's mailbox and the session outcome is settled into
// the ledger, at most once per pair session even when both partners report.
// The pairing itself stays in place until END_GAME or eviction.
func (c *Coordinator) GameOver(caller *registry.Client, args []string) string {
	partner := c.registry.Partner(caller.ID())
	if partner != nil {
		partner.Mailbox().Append(protocol.FormatGameOver(args))
		if c.claimSettlement(c.registry.PairSession(caller.ID())) {
			c.settleOutcome(caller, partner)
		}
	}
	return protocol.TokenEndedGame
}

// claimSettlement returns true exactly once per session.
func (c *Coordinator) claimSettlement(session string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, done := c.settled[session]; done {
		return false
	}
	c.settled[session] = struct{}{}
	return true
}

// EndGame answers END_GAME: the caller is removed from the registry
// unconditionally. Terminal for that identity.
func (c *Coordinator) EndGame(caller *registry.Client) string {
	c.registry.Remove(caller.ID())
	return protocol.TokenEndedGame
}

// HighScores answers GET_HIGH_SCORES with the ledger as `name=score#…`, or
// NO_HIGH_SCORES when it is empty.
func (c *Coordinator) HighScores() string {
	entries := c.ledger.Snapshot()
	if len(entries) == 0 {
		return protocol.TokenNoHighScores
	}

	items := make([]string, 0, len(entries))
	for _, e := range entries {
		items = append(items, protocol.FormatEntry(e.Name, strconv.Itoa(e.Score)))
	}
	return protocol.FormatList(items)
}

// settleOutcome records the winner's (name, score) in the ledger. The winner
// holds strictly more lives, or equal lives and strictly more score; an
// exact tie records neither side. Values are whatever the clients last
// reported.
func (c *Coordinator) settleOutcome(a, b *registry.Client) {
	winner := pickWinner(a, b)
	if winner == nil {
		return
	}
	c.ledger.Add(winner.Name(), winner.Score())
	c.log.Info("session outcome recorded",
		zap.Int64("winner_id", winner.ID()),
		zap.Int("score", winner.Score()))
}

func pickWinner(a, b *registry.Client) *registry.Client {
	aLives, bLives := a.Lives(), b.Lives()
	switch {
	case aLives > bLives:
		return a
	case bLives > aLives:
		return b
	}
	aScore, bScore := a.Score(), b.Score()
	switch {
	case aScore > bScore:
		return a
	case bScore > aScore:
		return b
	}
	return nil
}
