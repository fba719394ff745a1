package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"flyhard/internal/registry"
	"flyhard/internal/router"
	"flyhard/internal/scores"
	"flyhard/pkg/types"
)

// Request and response header names, kept compatible with the original
// game clients.
const (
	HeaderClientID    = "fh-client-id"
	HeaderClientName  = "fh-client-name"
	HeaderClientHost  = "fh-client-host"
	HeaderClientLives = "fh-client-lives"
	HeaderClientScore = "fh-client-score"
	HeaderMessages    = "fh-client-messages"
	HeaderSequenceKey = "fh-sequence-key"
)

// Server is the HTTP poll transport: a thin shim that reduces headers and
// bodies to poll envelopes for the core router. No game logic lives here.
type Server struct {
	router   *router.Router
	registry *registry.Registry
	ledger   *scores.Ledger
	gate     *VersionGate
	mux      *http.ServeMux
	log      *zap.Logger
}

// NewServer wires the HTTP handlers. Registry and ledger are only needed by
// the administrative reset endpoint.
func NewServer(r *router.Router, reg *registry.Registry, ledger *scores.Ledger, gate *VersionGate, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		router:   r,
		registry: reg,
		ledger:   ledger,
		gate:     gate,
		mux:      http.NewServeMux(),
		log:      log,
	}
	s.mux.HandleFunc("/data", s.handleData)
	s.mux.HandleFunc("/message", s.handleMessage)
	s.mux.HandleFunc("/reset", s.handleReset)
	s.mux.HandleFunc("/health", s.handleHealth)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleData accepts a binary relay payload and replies with the drained
// payload for the caller. Non-POST methods and unpermitted client builds
// get a 404, matching the original servlet.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if !s.admit(w, r) {
		return
	}

	req := s.pollRequest(r)
	req.SequenceKey = parseSequenceKey(r.Header.Get(HeaderSequenceKey))
	req.WantPayload = true

	body, err := io.ReadAll(r.Body)
	if err != nil {
		// Proceed with a null payload rather than aborting the poll.
		s.log.Warn("failed to read payload body", zap.Error(err))
		body = nil
	}
	req.Payload = body

	resp := s.router.Process(r.Context(), req)

	w.Header().Set(HeaderClientID, strconv.FormatInt(resp.ClientID, 10))
	if resp.ClientID == types.UnresolvedID {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Header().Set(HeaderMessages, resp.Messages)
	if resp.Payload != nil {
		w.Header().Set(HeaderSequenceKey, strconv.FormatInt(resp.SequenceKey, 10))
		if _, err := w.Write(resp.Payload); err != nil {
			s.log.Warn("failed to write payload response", zap.Error(err))
		}
	}
}

// handleMessage accepts an instruction script in the request body and
// replies with the concatenated reply segments.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if !s.admit(w, r) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.log.Warn("failed to read instruction body", zap.Error(err))
		body = nil
	}

	req := s.pollRequest(r)
	req.Instructions = string(body)

	resp := s.router.Process(r.Context(), req)

	w.Header().Set(HeaderClientID, strconv.FormatInt(resp.ClientID, 10))
	if resp.ClientID != types.UnresolvedID {
		w.Header().Set(HeaderMessages, resp.Messages)
	}
	if _, err := io.WriteString(w, resp.Reply); err != nil {
		s.log.Warn("failed to write reply", zap.Error(err))
	}
}

// handleReset clears all server state: clients, pairings, and the ledger.
// Administrative; the gate does not apply.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.registry.Reset()
	s.ledger.Clear()
	s.log.Info("server state reset")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"status":"healthy"}`)
}

// admit enforces POST and the version gate. Rejections are 404s so probes
// cannot distinguish the service from a missing page, which is the behavior
// the original clients expect.
func (s *Server) admit(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return false
	}
	if !s.gate.Allowed(r.UserAgent()) {
		s.log.Debug("rejected unpermitted client build", zap.String("user_agent", r.UserAgent()))
		http.NotFound(w, r)
		return false
	}
	return true
}

// pollRequest reduces identity headers to a poll envelope. Malformed
// numeric headers fall back to the original servlet's defaults: an
// unresolved id, -1 lives, zero score.
func (s *Server) pollRequest(r *http.Request) *types.PollRequest {
	id := types.UnresolvedID
	if v, err := strconv.ParseInt(r.Header.Get(HeaderClientID), 10, 64); err == nil {
		id = v
	}

	lives := -1
	if v, err := strconv.Atoi(r.Header.Get(HeaderClientLives)); err == nil {
		lives = v
	}

	score := 0
	if v, err := strconv.Atoi(r.Header.Get(HeaderClientScore)); err == nil {
		score = v
	}

	return &types.PollRequest{
		ClientID: id,
		Name:     r.Header.Get(HeaderClientName),
		Host:     strings.Contains(r.Header.Get(HeaderClientHost), "true"),
		Lives:    lives,
		Score:    score,
	}
}

func parseSequenceKey(raw string) int64 {
	key, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return types.PriorityKey
	}
	return key
}
