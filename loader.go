package federa

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Loader orchestrates module federation for one host: it resolves
// remote containers, seals and passes the shared scope, initializes
// each container exactly once, and retrieves exposed modules.
type Loader struct {
	registry *Registry
	scope    *SharedScope
	globals  *Globals
	client   *http.Client
	log      *slog.Logger
	sink     EventSink
	timeout  time.Duration
	policy   ConflictPolicy

	sealOnce sync.Once

	// Lifecycle callbacks
	onReady    []func(*Handle)
	onFailed   []func(*Handle, error)
	onShared   []func(Event)
	callbackMu sync.RWMutex

	// Shutdown coordination
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for entry and asset fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) {
		l.client = client
	}
}

// WithScope sets the shared scope. Hosts sharing one scope across
// loaders negotiate a single set of singletons.
func WithScope(scope *SharedScope) Option {
	return func(l *Loader) {
		l.scope = scope
	}
}

// WithConflictPolicy sets the shared dependency conflict policy.
func WithConflictPolicy(p ConflictPolicy) Option {
	return func(l *Loader) {
		l.policy = p
	}
}

// WithGlobals sets the process-wide binding table.
func WithGlobals(g *Globals) Option {
	return func(l *Loader) {
		l.globals = g
	}
}

// WithEventSink attaches a sink receiving every federation event, e.g.
// a journal.Journal.
func WithEventSink(sink EventSink) Option {
	return func(l *Loader) {
		l.sink = sink
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// WithTimeout bounds each Load call. Zero means no loader-imposed
// timeout; callers may still bound the context themselves.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.timeout = d
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	ctx, cancel := context.WithCancel(context.Background())

	l := &Loader{
		log:    slog.Default(),
		ctx:    ctx,
		cancel: cancel,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.client == nil {
		l.client = &http.Client{Timeout: 30 * time.Second}
	}
	if l.globals == nil {
		l.globals = NewGlobals()
	}
	if l.scope == nil {
		l.scope = NewSharedScope("default", l.policy)
	}
	l.scope.bindEmit(l.emit)

	l.registry = NewRegistry(l.client, l.globals)
	l.registry.log = l.log
	l.registry.emit = l.emit

	return l
}

// Registry returns the loader's container registry.
func (l *Loader) Registry() *Registry {
	return l.registry
}

// Scope returns the loader's shared scope.
func (l *Loader) Scope() *SharedScope {
	return l.scope
}

// Globals returns the loader's binding table.
func (l *Loader) Globals() *Globals {
	return l.globals
}

// Register records a remote container source under name.
func (l *Loader) Register(name string, src Source, opts ...RegisterOption) error {
	_, err := l.registry.Register(name, src, opts...)
	return err
}

// Reload supersedes a failed remote with a fresh source. Failed handles
// are never retried implicitly; this is the explicit re-register path.
func (l *Loader) Reload(name string, src Source, opts ...RegisterOption) error {
	return l.Register(name, src, opts...)
}

// Share contributes a host shared dependency. Valid until the first
// Load seals the scope.
func (l *Loader) Share(dep SharedDep) error {
	return l.scope.Register(dep)
}

// Load requests module path from the named remote. This is the single
// operation surfaced to consumers; every error kind is returned as an
// explicit failure value and never crashes the host.
func (l *Loader) Load(ctx context.Context, remote, path string) (any, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	// Host contributions settle before any container init begins.
	l.sealOnce.Do(l.scope.Seal)

	h, err := l.registry.Resolve(ctx, remote)
	if err != nil {
		return nil, err
	}

	if err := h.Init(ctx, l.scope); err != nil {
		return nil, err
	}

	factory, err := h.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	return factory(ctx)
}

// LoadAsync requests a module and returns a Future for the result.
func (l *Loader) LoadAsync(remote, path string) *Future {
	f := &Future{
		done:   make(chan struct{}),
		cancel: make(chan struct{}),
	}

	go func() {
		ctx, cancel := context.WithCancel(l.ctx)
		defer cancel()

		go func() {
			select {
			case <-f.cancel:
				cancel()
			case <-f.done:
			}
		}()

		value, err := l.Load(ctx, remote, path)
		f.mu.Lock()
		f.value = value
		f.err = err
		f.completed = true
		f.mu.Unlock()
		close(f.done)
	}()

	return f
}

// OnContainerReady registers a callback for when a container finishes
// initializing.
func (l *Loader) OnContainerReady(fn func(*Handle)) {
	l.callbackMu.Lock()
	defer l.callbackMu.Unlock()
	l.onReady = append(l.onReady, fn)
}

// OnContainerFailed registers a callback for when a container fails to
// fetch or initialize.
func (l *Loader) OnContainerFailed(fn func(*Handle, error)) {
	l.callbackMu.Lock()
	defer l.callbackMu.Unlock()
	l.onFailed = append(l.onFailed, fn)
}

// OnSharedMerge registers a callback for shared scope merge decisions,
// including discarded registrations and version conflicts.
func (l *Loader) OnSharedMerge(fn func(Event)) {
	l.callbackMu.Lock()
	defer l.callbackMu.Unlock()
	l.onShared = append(l.onShared, fn)
}

// emit stamps, logs, journals, and dispatches a federation event.
func (l *Loader) emit(e Event) {
	e.ID = uuid.New().String()[:8]
	e.Timestamp = time.Now()

	switch e.Type {
	case EventContainerFailed, EventVersionConflict:
		l.log.Warn("federation event", "type", e.Type, "container", e.Container, "dep", e.Dep, "error", e.Error)
	default:
		l.log.Debug("federation event", "type", e.Type, "container", e.Container, "dep", e.Dep)
	}

	if l.sink != nil {
		if err := l.sink.Append(e); err != nil {
			l.log.Warn("event sink append failed", "error", err)
		}
	}

	switch e.Type {
	case EventContainerReady:
		if h := l.registry.Get(e.Container); h != nil {
			l.callbackMu.RLock()
			callbacks := make([]func(*Handle), len(l.onReady))
			copy(callbacks, l.onReady)
			l.callbackMu.RUnlock()
			for _, fn := range callbacks {
				go fn(h)
			}
		}

	case EventContainerFailed:
		if h := l.registry.Get(e.Container); h != nil {
			l.callbackMu.RLock()
			callbacks := make([]func(*Handle, error), len(l.onFailed))
			copy(callbacks, l.onFailed)
			l.callbackMu.RUnlock()
			for _, fn := range callbacks {
				go fn(h, h.Err())
			}
		}

	case EventSharedMerged, EventSharedDiscarded, EventVersionConflict:
		l.callbackMu.RLock()
		callbacks := make([]func(Event), len(l.onShared))
		copy(callbacks, l.onShared)
		l.callbackMu.RUnlock()
		for _, fn := range callbacks {
			go fn(e)
		}
	}
}

// Shutdown cancels pending asynchronous loads and stops the loader.
func (l *Loader) Shutdown(ctx context.Context) error {
	l.cancel()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// ResetForTesting tears down all process-wide federation state held by
// the loader: registry, shared scope, and bindings. It exists for test
// harnesses; state is never cleared implicitly mid-session.
func (l *Loader) ResetForTesting() {
	l.globals = NewGlobals()
	l.scope = NewSharedScope(l.scope.Name(), l.policy)
	l.scope.bindEmit(l.emit)
	l.registry = NewRegistry(l.client, l.globals)
	l.registry.log = l.log
	l.registry.emit = l.emit
	l.sealOnce = sync.Once{}
}

// Default process-wide loader.
var (
	defaultLoader *Loader
	defaultMu     sync.Mutex
)

// Default returns the process-wide loader, creating it on first use.
func Default() *Loader {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLoader == nil {
		defaultLoader = New()
	}
	return defaultLoader
}

// Register records a remote on the default loader.
func Register(name string, src Source, opts ...RegisterOption) error {
	return Default().Register(name, src, opts...)
}

// Share contributes a host shared dependency on the default loader.
func Share(dep SharedDep) error {
	return Default().Share(dep)
}

// Load requests a module through the default loader.
func Load(ctx context.Context, remote, path string) (any, error) {
	return Default().Load(ctx, remote, path)
}

// ResetForTesting discards the default loader. Tests that use the
// package-level operations call this in teardown.
func ResetForTesting() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLoader = nil
}
