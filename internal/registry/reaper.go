package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reaper periodically scans the registry and evicts clients that have not
// checked in within the idle timeout. It is started lazily when the first
// client is created; Start is idempotent.
type Reaper struct {
	registry *Registry
	timeout  time.Duration
	interval time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewReaper creates a reaper. A non-positive interval derives the scan
// interval from the timeout itself.
func NewReaper(registry *Registry, timeout, interval time.Duration, log *zap.Logger) *Reaper {
	if interval <= 0 {
		interval = timeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reaper{
		registry: registry,
		timeout:  timeout,
		interval: interval,
		log:      log,
	}
}

// Start launches the scan loop. Calling Start on a running reaper is a
// no-op.
func (r *Reaper) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	r.log.Info("reaper started",
		zap.Duration("timeout", r.timeout),
		zap.Duration("interval", r.interval))
	go r.run(r.stop, r.done)
}

// Stop halts the scan loop and waits for it to exit. Safe to call on a
// stopped reaper.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stop, done := r.stop, r.done
	r.mu.Unlock()

	close(stop)
	<-done
}

// Running reports whether the scan loop is active.
func (r *Reaper) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Reaper) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if evicted := r.registry.EvictIdle(r.timeout); len(evicted) > 0 {
				r.log.Info("evicted idle clients", zap.Int64s("client_ids", evicted))
			}
		case <-stop:
			return
		}
	}
}
