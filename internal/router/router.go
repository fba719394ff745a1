package router

import (
	"context"

	"go.uber.org/zap"

	"flyhard/internal/match"
	"flyhard/internal/protocol"
	"flyhard/internal/registry"
	"flyhard/pkg/interfaces"
	"flyhard/pkg/types"
)

// Router is the core poll processor. Every transport shim reduces a request
// to a types.PollRequest and hands it here; the router resolves the client,
// dispatches its instruction script, relays any attached payload to the
// partner, and drains the client's own buffers into the response.
type Router struct {
	registry    *registry.Registry
	coordinator *match.Coordinator
	datalog     interfaces.PayloadRecorder // optional
	log         *zap.Logger
}

// New creates a router. The datalog recorder may be nil, in which case
// delivered payloads are not persisted.
func New(reg *registry.Registry, coord *match.Coordinator, datalog interfaces.PayloadRecorder, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		registry:    reg,
		coordinator: coord,
		datalog:     datalog,
		log:         log,
	}
}

// Process handles one poll cycle. An unresolvable caller (unknown id, or
// capacity exhausted on a new client) yields only the invalid-client signal:
// no instructions run, nothing is relayed, nothing is drained.
func (r *Router) Process(ctx context.Context, req *types.PollRequest) *types.PollResponse {
	client := r.registry.Resolve(req.ClientID, req.Name, req.Host, req.Lives, req.Score)
	if client == nil {
		return &types.PollResponse{
			ClientID: types.UnresolvedID,
			Reply:    protocol.TokenInvalidClient,
		}
	}

	reply := r.dispatch(client, req.Instructions)

	// Forward the attached payload to the partner's relay channel. Payloads
	// sent while unpaired are dropped; polling is the retry mechanism.
	if len(req.Payload) > 0 {
		if partner := r.registry.Partner(client.ID()); partner != nil {
			partner.Channel().Write(req.SequenceKey, req.Payload)
		}
	}

	resp := &types.PollResponse{
		ClientID: client.ID(),
		Reply:    reply,
		Messages: client.Mailbox().Drain(),
	}

	// Drain destructively only when the transport can deliver the payload.
	if req.WantPayload {
		if key, payload, ok := client.Channel().Read(); ok {
			resp.SequenceKey = key
			resp.Payload = payload
			r.recordDelivery(ctx, client, key, payload)
		}
	}
	return resp
}

// dispatch runs each `;`-separated instruction in order, as if each were its
// own request: a command that removes the caller (END_GAME) makes every
// later command in the same script resolve to INVALID_CLIENT. Per-command
// reply segments are concatenated in command order.
func (r *Router) dispatch(client *registry.Client, script string) string {
	var reply string
	for _, raw := range protocol.SplitScript(script) {
		if client.Closing() {
			reply += protocol.TokenInvalidClient
			continue
		}
		reply += r.execute(client, protocol.Parse(raw))
	}
	return reply
}

func (r *Router) execute(client *registry.Client, cmd protocol.Command) string {
	switch cmd.Kind {
	case protocol.KindGetOpenConnections:
		return r.coordinator.OpenConnections(client)
	case protocol.KindGetHighScores:
		return r.coordinator.HighScores()
	case protocol.KindJoin:
		arg := ""
		if len(cmd.Args) > 0 {
			arg = cmd.Args[0]
		}
		return r.coordinator.Join(client, arg)
	case protocol.KindGameOver:
		return r.coordinator.GameOver(client, cmd.Args)
	case protocol.KindEndGame:
		return r.coordinator.EndGame(client)
	default:
		r.log.Debug("unsupported instruction", zap.String("raw", cmd.Raw))
		return protocol.TokenInvalidRequest
	}
}

// recordDelivery writes the drained payload to the datalog. Best effort:
// failures are logged and the poll proceeds.
func (r *Router) recordDelivery(ctx context.Context, client *registry.Client, key int64, payload []byte) {
	if r.datalog == nil {
		return
	}
	rec := &types.PayloadRecord{
		ClientID:    client.ID(),
		PairID:      r.registry.PairSession(client.ID()),
		SequenceKey: key,
		Payload:     payload,
	}
	if err := r.datalog.RecordPayload(ctx, rec); err != nil {
		r.log.Warn("datalog write failed",
			zap.Int64("client_id", client.ID()),
			zap.Error(err))
	}
}
