package federa

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Source locates a container for registration.
type Source interface {
	kind() string
	materialize(ctx context.Context, r *Registry, h *Handle) (Container, error)
}

// Producer asynchronously produces a container. It replaces patterns
// that ship code across a boundary: the producer is a typed function
// passed by reference within the process.
type Producer func(ctx context.Context) (Container, error)

// URLSource locates a container by the HTTP URL of its remote entry
// manifest.
func URLSource(url string) Source {
	return urlSource{url: url}
}

type urlSource struct {
	url string
}

func (s urlSource) kind() string { return "url" }

func (s urlSource) materialize(ctx context.Context, r *Registry, h *Handle) (Container, error) {
	entry, err := FetchEntry(ctx, r.client, s.url)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.entryURL = s.url
	if h.strategy == nil {
		h.strategy = entryStrategy(entry.PublicPath)
	}
	h.mu.Unlock()

	return newManifestContainer(entry, r.client, h.BasePath), nil
}

// entryStrategy maps a manifest publicPath field to a strategy.
func entryStrategy(publicPath string) PathStrategy {
	if publicPath == "" || publicPath == "auto" {
		return PathFromEntry()
	}
	return PathStatic(publicPath)
}

// ProducerSource locates a container through an async producer. Any
// error from the producer fails the handle and is surfaced to every
// caller of Resolve.
func ProducerSource(fn Producer) Source {
	return producerSource{fn: fn}
}

type producerSource struct {
	fn Producer
}

func (s producerSource) kind() string { return "producer" }

func (s producerSource) materialize(ctx context.Context, _ *Registry, _ *Handle) (Container, error) {
	return s.fn(ctx)
}

// ObjectSource registers a directly supplied container. The handle
// skips fetching and goes straight to registered.
func ObjectSource(c Container) Source {
	return objectSource{c: c}
}

type objectSource struct {
	c Container
}

func (s objectSource) kind() string { return "object" }

func (s objectSource) materialize(context.Context, *Registry, *Handle) (Container, error) {
	return s.c, nil
}

// GlobalSource locates a container pre-bound in the process-wide
// Globals table, injected before any federation code runs.
func GlobalSource(key string) Source {
	return globalSource{key: key}
}

type globalSource struct {
	key string
}

func (s globalSource) kind() string { return "global" }

func (s globalSource) materialize(_ context.Context, r *Registry, h *Handle) (Container, error) {
	v, ok := r.globals.Lookup(s.key)
	if !ok {
		return nil, fmt.Errorf("container %s: global binding %q: %w", h.Name, s.key, ErrBindingNotFound)
	}

	c, ok := v.(Container)
	if !ok {
		return nil, fmt.Errorf("container %s: global binding %q does not hold a container", h.Name, s.key)
	}
	return c, nil
}

// RegisterOption configures a registered remote.
type RegisterOption func(*Handle)

// WithPublicPath sets the public path strategy for the container,
// overriding the manifest's own publicPath field.
func WithPublicPath(strategy PathStrategy) RegisterOption {
	return func(h *Handle) {
		h.strategy = strategy
	}
}

// Registry is the process-wide mapping from remote name to container
// handle. Concurrent Resolve calls for the same name coalesce into a
// single in-flight materialization.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle

	flight  singleflight.Group
	nextGen atomic.Uint64

	client  *http.Client
	globals *Globals
	log     *slog.Logger
	emit    func(Event)
}

// NewRegistry creates a registry. A nil client or globals falls back to
// defaults.
func NewRegistry(client *http.Client, globals *Globals) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if globals == nil {
		globals = NewGlobals()
	}
	return &Registry{
		handles: make(map[string]*Handle),
		client:  client,
		globals: globals,
		log:     slog.Default(),
	}
}

// Register records a source for name and creates its handle. A failed
// handle is superseded by a fresh registration; registering over a
// healthy handle returns ErrAlreadyRegistered.
func (r *Registry) Register(name string, src Source, opts ...RegisterOption) (*Handle, error) {
	if name == "" {
		return nil, fmt.Errorf("remote name is required")
	}
	if src == nil {
		return nil, fmt.Errorf("remote %s: source is required", name)
	}

	r.mu.Lock()
	if existing, ok := r.handles[name]; ok && existing.State() != StateFailed {
		r.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", name, ErrAlreadyRegistered)
	}

	h := &Handle{
		Name:         name,
		RegisteredAt: time.Now(),
		source:       src,
		gen:          r.nextGen.Add(1),
		state:        StateUnregistered,
		emit:         r.emit,
		log:          r.log,
	}
	for _, opt := range opts {
		opt(h)
	}

	r.handles[name] = h
	r.mu.Unlock()

	// A directly supplied object skips fetching entirely.
	if obj, ok := src.(objectSource); ok {
		if err := resolvePublicPath(h, r.globals); err != nil {
			h.fail(err)
			return h, err
		}
		h.mu.Lock()
		h.container = obj.c
		h.state = StateRegistered
		h.mu.Unlock()
		h.emitEvent(Event{Type: EventContainerRegistered, Container: h.Name})
	}
	return h, nil
}

// Get returns the handle for name, or nil.
func (r *Registry) Get(name string) *Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handles[name]
}

// List returns all registered handles.
func (r *Registry) List() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	return handles
}

// Resolve returns the materialized handle for name, fetching the
// container on first use. Repeated calls return the same handle, and
// concurrent callers issued before the first fetch settles share one
// in-flight fetch and observe the same result or the same failure.
func (r *Registry) Resolve(ctx context.Context, name string) (*Handle, error) {
	r.mu.RLock()
	h, ok := r.handles[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotRegistered)
	}

	switch h.State() {
	case StateRegistered, StateInitializing, StateReady:
		return h, nil
	case StateFailed:
		return nil, h.Err()
	}

	// The flight key includes the handle generation so a superseding
	// registration never shares a stale in-flight result.
	key := fmt.Sprintf("%s#%d", name, h.gen)
	_, err, _ := r.flight.Do(key, func() (any, error) {
		return nil, r.materialize(ctx, h)
	})
	r.flight.Forget(key)

	if err != nil {
		return nil, err
	}
	return h, nil
}

// materialize fetches the container for an unregistered handle and
// resolves its public path before any of its modules can run.
func (r *Registry) materialize(ctx context.Context, h *Handle) error {
	h.mu.Lock()
	switch h.state {
	case StateRegistered, StateInitializing, StateReady:
		h.mu.Unlock()
		return nil
	case StateFailed:
		err := h.err
		h.mu.Unlock()
		return err
	}
	h.state = StateFetching
	src := h.source
	h.mu.Unlock()

	c, err := src.materialize(ctx, r, h)
	if err != nil {
		h.fail(err)
		return err
	}

	if err := resolvePublicPath(h, r.globals); err != nil {
		h.fail(err)
		return err
	}

	h.mu.Lock()
	h.container = c
	h.state = StateRegistered
	h.mu.Unlock()

	r.log.Debug("container registered", "container", h.Name, "source", src.kind())
	h.emitEvent(Event{Type: EventContainerRegistered, Container: h.Name})
	return nil
}
