package federa

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Container is the loaded federation unit. Implementations expose a set
// of modules through Get and contribute their shared dependencies to the
// scope through Init.
//
// Implementations are not required to guard against repeated Init calls;
// the Handle wrapping a container guarantees Init runs at most once.
type Container interface {
	// Init contributes the container's shared dependencies to the scope
	// and performs any one-time setup.
	Init(ctx context.Context, scope *SharedScope) error

	// Get returns a lazily evaluated factory for the exposed module at
	// path, or a NotExposedError if the path is not exposed.
	Get(ctx context.Context, path string) (ModuleFactory, error)
}

// ModuleFactory produces the module value on demand.
type ModuleFactory func(ctx context.Context) (any, error)

// State represents the container handle lifecycle state.
type State string

const (
	StateUnregistered State = "unregistered"
	StateFetching     State = "fetching"
	StateRegistered   State = "registered"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateFailed       State = "failed"
)

// Handle is a lazily resolved container with state and lifecycle.
// Transitions are monotonic; failed is terminal for the handle and a
// fresh Register for the same name supersedes it with a new handle.
type Handle struct {
	// Name is the remote name this handle was registered under.
	Name string

	// RegisteredAt is when the handle was created.
	RegisteredAt time.Time

	source   Source
	strategy PathStrategy
	gen      uint64

	mu        sync.RWMutex
	state     State
	container Container
	err       error

	// entryURL is where the remote entry manifest was fetched from,
	// used by the deferred public path strategy.
	entryURL string

	basePath     string
	pathResolved bool

	// initCh is non-nil once initialization has started; it is closed
	// when initialization settles so concurrent callers can wait.
	initCh  chan struct{}
	initErr error

	emit func(Event)
	log  *slog.Logger
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Err returns the failure that moved the handle to the failed state.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Container returns the underlying container once the handle is
// registered, or nil before that.
func (h *Handle) Container() Container {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.container
}

// BasePath returns the resolved public path for this container, or an
// empty string if no public path strategy applied.
func (h *Handle) BasePath() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.basePath
}

// setBasePath records the resolved public path. The binding is written
// exactly once; later writes are rejected.
func (h *Handle) setBasePath(base string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pathResolved {
		return ErrPublicPathSet
	}
	h.basePath = base
	h.pathResolved = true
	return nil
}

// Init initializes the container against the given shared scope. It is
// idempotent per handle: the first caller runs the container's Init,
// concurrent callers wait for it to settle, and calls on an already
// ready handle are no-ops.
func (h *Handle) Init(ctx context.Context, scope *SharedScope) error {
	h.mu.Lock()

	switch h.state {
	case StateReady:
		h.mu.Unlock()
		return nil

	case StateFailed:
		err := h.err
		h.mu.Unlock()
		return err

	case StateInitializing:
		ch := h.initCh
		h.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			h.mu.RLock()
			defer h.mu.RUnlock()
			return h.initErr
		}

	case StateRegistered:
		h.state = StateInitializing
		ch := make(chan struct{})
		h.initCh = ch
		c := h.container
		h.mu.Unlock()

		err := c.Init(ctx, scope)

		h.mu.Lock()
		if err != nil {
			h.initErr = &ContainerError{Name: h.Name, Op: "init", Err: err}
			h.err = h.initErr
			h.state = StateFailed
		} else {
			h.state = StateReady
		}
		result := h.initErr
		close(ch)
		h.mu.Unlock()

		if result != nil {
			h.emitEvent(Event{Type: EventContainerFailed, Container: h.Name, Error: result.Error()})
		} else {
			h.emitEvent(Event{Type: EventContainerReady, Container: h.Name})
		}
		return result

	default:
		// Not yet materialized; Resolve has not completed.
		h.mu.Unlock()
		return &ContainerError{Name: h.Name, Op: "init", Err: ErrNotReady}
	}
}

// Get returns the factory for the exposed module at path. It is valid
// only once the handle is ready: a call issued while Init is in flight
// waits for it to settle, and a call before any Init has started fails
// with ErrNotReady rather than returning a partially initialized module.
func (h *Handle) Get(ctx context.Context, path string) (ModuleFactory, error) {
	for {
		h.mu.RLock()
		state := h.state
		ch := h.initCh
		c := h.container
		err := h.err
		h.mu.RUnlock()

		switch state {
		case StateReady:
			return c.Get(ctx, path)

		case StateInitializing:
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ch:
			}

		case StateFailed:
			return nil, err

		default:
			return nil, &ContainerError{Name: h.Name, Op: "get", Err: ErrNotReady}
		}
	}
}

// fail moves the handle to the failed state. The first failure wins;
// a handle already settled as registered or ready is left alone.
func (h *Handle) fail(err error) {
	h.mu.Lock()
	if h.state == StateFailed || h.state == StateReady {
		h.mu.Unlock()
		return
	}
	h.state = StateFailed
	h.err = err
	h.mu.Unlock()

	h.emitEvent(Event{Type: EventContainerFailed, Container: h.Name, Error: err.Error()})
}

func (h *Handle) emitEvent(e Event) {
	if h.emit != nil {
		h.emit(e)
	}
}

// MapContainer is a Container backed by an in-memory module map. It is
// the direct-object source used for pre-injected containers, partner
// supplied modules, and test doubles.
type MapContainer struct {
	// Name identifies the container in errors and events.
	Name string

	// Modules maps exposed paths to their factories.
	Modules map[string]ModuleFactory

	// Shared lists dependencies contributed to the scope during Init.
	Shared []SharedDep

	// InitFn, if set, runs during Init after shared contributions.
	InitFn func(ctx context.Context, scope *SharedScope) error
}

// Init contributes the container's shared dependencies and runs InitFn.
func (c *MapContainer) Init(ctx context.Context, scope *SharedScope) error {
	for _, dep := range c.Shared {
		if err := scope.Contribute(c.Name, dep); err != nil {
			return err
		}
	}
	if c.InitFn != nil {
		return c.InitFn(ctx, scope)
	}
	return nil
}

// Get returns the factory for path, or a NotExposedError.
func (c *MapContainer) Get(_ context.Context, path string) (ModuleFactory, error) {
	f, ok := c.Modules[path]
	if !ok {
		return nil, &NotExposedError{Container: c.Name, Path: path}
	}
	return f, nil
}
