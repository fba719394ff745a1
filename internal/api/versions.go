package api

import "sync"

// VersionGate admits only known client builds, matched against the request
// User-Agent. An empty gate admits everything; the original deployment
// registered each released game build explicitly.
type VersionGate struct {
	mu       sync.RWMutex
	versions map[string]struct{}
}

// NewVersionGate creates a gate permitting the given versions.
func NewVersionGate(versions []string) *VersionGate {
	g := &VersionGate{versions: make(map[string]struct{})}
	for _, v := range versions {
		g.versions[v] = struct{}{}
	}
	return g
}

// Allowed reports whether the agent may pass the gate.
func (g *VersionGate) Allowed(agent string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.versions) == 0 {
		return true
	}
	_, ok := g.versions[agent]
	return ok
}

// Add permits a version.
func (g *VersionGate) Add(version string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.versions[version] = struct{}{}
}

// Remove revokes a version.
func (g *VersionGate) Remove(version string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.versions, version)
}
