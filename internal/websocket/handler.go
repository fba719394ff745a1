package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"flyhard/internal/router"
	"flyhard/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// AgentGate decides whether a client build is admitted. Satisfied by
// api.VersionGate without importing it here.
type AgentGate interface {
	Allowed(agent string) bool
}

// Handler serves the persistent poll transport. Each JSON frame from the
// client is one poll envelope, answered in order on the same connection.
// The game semantics are identical to the HTTP transport; only the framing
// differs.
type Handler struct {
	router *router.Router
	gate   AgentGate
	log    *zap.Logger
}

func NewHandler(r *router.Router, gate AgentGate, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		router: r,
		gate:   gate,
		log:    log,
	}
}

// pollEnvelope is one inbound frame. Omitted numeric fields take the same
// defaults as missing HTTP headers: an unresolved client id, -1 lives, and
// the priority sequence key.
type pollEnvelope struct {
	ClientID     *int64 `json:"client_id"`
	Name         string `json:"name"`
	Host         bool   `json:"host"`
	Lives        *int   `json:"lives"`
	Score        int    `json:"score"`
	Instructions string `json:"instructions"`
	SequenceKey  *int64 `json:"sequence_key"`
	Payload      []byte `json:"payload,omitempty"`
}

type pollReply struct {
	ClientID    int64  `json:"client_id"`
	Reply       string `json:"reply,omitempty"`
	Messages    string `json:"messages,omitempty"`
	SequenceKey int64  `json:"sequence_key,omitempty"`
	Payload     []byte `json:"payload,omitempty"`
}

// HandleConnection upgrades the request and serves polls until the peer
// disconnects. Unpermitted client builds get a 404 before the upgrade,
// matching the HTTP transport.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if h.gate != nil && !h.gate.Allowed(r.UserAgent()) {
		h.log.Debug("rejected unpermitted client build", zap.String("user_agent", r.UserAgent()))
		http.NotFound(w, r)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.serve(r, conn)
}

// serve is the single read loop for one connection. Frames are processed
// strictly in order, so replies never interleave and no writer goroutine
// is needed.
func (h *Handler) serve(r *http.Request, conn *websocket.Conn) {
	for {
		var env pollEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		resp := h.router.Process(r.Context(), env.request())

		if err := conn.WriteJSON(replyFrom(resp)); err != nil {
			h.log.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (env *pollEnvelope) request() *types.PollRequest {
	req := &types.PollRequest{
		ClientID:     types.UnresolvedID,
		Name:         env.Name,
		Host:         env.Host,
		Lives:        -1,
		Score:        env.Score,
		Instructions: env.Instructions,
		SequenceKey:  types.PriorityKey,
		Payload:      env.Payload,
		WantPayload:  true,
	}
	if env.ClientID != nil {
		req.ClientID = *env.ClientID
	}
	if env.Lives != nil {
		req.Lives = *env.Lives
	}
	if env.SequenceKey != nil {
		req.SequenceKey = *env.SequenceKey
	}
	return req
}

func replyFrom(resp *types.PollResponse) *pollReply {
	return &pollReply{
		ClientID:    resp.ClientID,
		Reply:       resp.Reply,
		Messages:    resp.Messages,
		SequenceKey: resp.SequenceKey,
		Payload:     resp.Payload,
	}
}
