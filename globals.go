package federa

import "sync"

// Globals is a process-wide binding table. It plays the role of the
// environment-like global surface remotes are injected into: containers
// published under a well-known name before federation code runs, and
// external values such as CDN base URLs consumed by the binding public
// path strategy.
//
// Bindings are never cleared implicitly; tests reset them through the
// loader's ResetForTesting hook.
type Globals struct {
	mu       sync.RWMutex
	bindings map[string]any
	reads    map[string]int
}

// NewGlobals creates an empty binding table.
func NewGlobals() *Globals {
	return &Globals{
		bindings: make(map[string]any),
		reads:    make(map[string]int),
	}
}

// Bind publishes a value under key, replacing any previous binding.
func (g *Globals) Bind(key string, value any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bindings[key] = value
}

// Lookup returns the value bound to key. Each call counts as a read for
// diagnostics.
func (g *Globals) Lookup(key string) (any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.bindings[key]
	if ok {
		g.reads[key]++
	}
	return v, ok
}

// readCount reports how many times key has been read.
func (g *Globals) readCount(key string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reads[key]
}
