package federa

import (
	"fmt"
	"sync"
	"time"

	"github.com/martellcode/federa/internal/semver"
)

// ConflictPolicy selects the behavior when two bundles require disjoint
// version ranges of the same shared dependency.
type ConflictPolicy int

const (
	// ConflictFail rejects the conflicting registration with a
	// VersionConflictError, leaving the first entry unchanged.
	ConflictFail ConflictPolicy = iota

	// ConflictIsolate records a warning and gives the conflicting
	// registrant its own non-singleton copy.
	ConflictIsolate
)

// SharedDep declares a shared dependency contributed to the scope.
type SharedDep struct {
	// Name identifies the dependency.
	Name string

	// Version is the concrete version the registrant provides.
	Version string

	// Requires is the version range the registrant accepts. Empty means
	// any version.
	Requires string

	// Singleton forces a single process-wide instance; the first
	// compatible registration wins.
	Singleton bool

	// Eager marks a dependency loaded up front rather than on demand.
	Eager bool

	// Instance is the provided dependency instance, if the registrant
	// supplies one.
	Instance any
}

// ScopeEntry is the retained record for a shared dependency.
type ScopeEntry struct {
	Name         string
	Version      string
	Requires     string
	Singleton    bool
	Instance     any
	Origin       string
	RegisteredAt time.Time
}

// ScopeRecord is a diagnostic record of one registration attempt.
// Discarded singleton registrations are recorded as "eager" or "loaded"
// rather than silently dropped.
type ScopeRecord struct {
	Dep     string
	Version string
	Origin  string
	Outcome string
	At      time.Time
}

// Registration outcomes recorded for diagnostics.
const (
	OutcomeMerged   = "merged"
	OutcomeLoaded   = "loaded"
	OutcomeEager    = "eager"
	OutcomeIsolated = "isolated"
	OutcomeConflict = "conflict"
	OutcomeMultiple = "multiple"
)

// hostOrigin marks contributions made by the host bundle itself.
const hostOrigin = "host"

// SharedScope is the process-wide table of shared dependencies. Entries
// are merged, never overwritten, as each participating bundle
// contributes its declarations. Host contributions must settle before
// any container initializes against the scope; Seal is that barrier.
type SharedScope struct {
	name   string
	policy ConflictPolicy

	mu       sync.RWMutex
	entries  map[string]*ScopeEntry
	isolated map[string]map[string]*ScopeEntry
	records  []ScopeRecord
	pending  []Event
	sealed   bool

	emit func(Event)
}

// NewSharedScope creates a shared scope with the given name and policy.
func NewSharedScope(name string, policy ConflictPolicy) *SharedScope {
	return &SharedScope{
		name:     name,
		policy:   policy,
		entries:  make(map[string]*ScopeEntry),
		isolated: make(map[string]map[string]*ScopeEntry),
	}
}

// Name returns the scope name.
func (s *SharedScope) Name() string {
	return s.name
}

// Register contributes a host-declared shared dependency. Host
// contributions are only valid before the scope is sealed.
func (s *SharedScope) Register(dep SharedDep) error {
	s.mu.Lock()
	if s.sealed {
		s.mu.Unlock()
		return ErrScopeSealed
	}
	err := s.merge(hostOrigin, dep)
	events := s.takePending()
	s.mu.Unlock()

	s.dispatch(events)
	return err
}

// Contribute merges a dependency declared by a remote container during
// its Init. Container contributions remain valid after sealing; sealing
// only closes the host contribution window.
func (s *SharedScope) Contribute(origin string, dep SharedDep) error {
	s.mu.Lock()
	err := s.merge(origin, dep)
	events := s.takePending()
	s.mu.Unlock()

	s.dispatch(events)
	return err
}

// Seal marks host contributions complete. Every container Init against
// this scope observes the full host contribution set; this is an
// ordering barrier, not a lock.
func (s *SharedScope) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
}

// Sealed reports whether the host contribution window has closed.
func (s *SharedScope) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// merge applies the scope merge rule for one registration.
// Callers must hold s.mu.
func (s *SharedScope) merge(origin string, dep SharedDep) error {
	if dep.Name == "" {
		return fmt.Errorf("shared dependency has no name")
	}

	existing, ok := s.entries[dep.Name]
	if !ok {
		s.entries[dep.Name] = &ScopeEntry{
			Name:         dep.Name,
			Version:      dep.Version,
			Requires:     dep.Requires,
			Singleton:    dep.Singleton,
			Instance:     dep.Instance,
			Origin:       origin,
			RegisteredAt: time.Now(),
		}
		s.record(dep, origin, OutcomeMerged)
		s.emitEvent(Event{Type: EventSharedMerged, Container: origin, Dep: dep.Name, Version: dep.Version})
		return nil
	}

	if !compatible(existing, dep) {
		if s.policy == ConflictFail {
			s.record(dep, origin, OutcomeConflict)
			s.emitEvent(Event{Type: EventVersionConflict, Container: origin, Dep: dep.Name, Version: dep.Version})
			return &VersionConflictError{
				Dep:       dep.Name,
				Existing:  rangeOf(existing.Requires, existing.Version),
				Requested: rangeOf(dep.Requires, dep.Version),
			}
		}

		// Permissive policy: warn and isolate the registrant.
		s.isolate(origin, dep)
		s.record(dep, origin, OutcomeIsolated)
		s.emitEvent(Event{Type: EventVersionConflict, Container: origin, Dep: dep.Name, Version: dep.Version})
		return nil
	}

	if existing.Singleton || dep.Singleton {
		// First writer wins. Fill an unprovided slot, otherwise discard
		// the new instance without instantiation or side effects.
		if existing.Instance == nil && dep.Instance != nil {
			existing.Instance = dep.Instance
			if existing.Version == "" {
				existing.Version = dep.Version
			}
			s.record(dep, origin, OutcomeMerged)
			s.emitEvent(Event{Type: EventSharedMerged, Container: origin, Dep: dep.Name, Version: dep.Version})
			return nil
		}

		outcome := OutcomeLoaded
		if dep.Eager {
			outcome = OutcomeEager
		}
		s.record(dep, origin, outcome)
		s.emitEvent(Event{Type: EventSharedDiscarded, Container: origin, Dep: dep.Name, Version: dep.Version})
		return nil
	}

	// Multiple strategy: each registrant keeps its own copy.
	s.isolate(origin, dep)
	s.record(dep, origin, OutcomeMultiple)
	s.emitEvent(Event{Type: EventSharedMerged, Container: origin, Dep: dep.Name, Version: dep.Version})
	return nil
}

// isolate stores a per-origin copy of the dependency.
// Callers must hold s.mu.
func (s *SharedScope) isolate(origin string, dep SharedDep) {
	byOrigin, ok := s.isolated[dep.Name]
	if !ok {
		byOrigin = make(map[string]*ScopeEntry)
		s.isolated[dep.Name] = byOrigin
	}
	byOrigin[origin] = &ScopeEntry{
		Name:         dep.Name,
		Version:      dep.Version,
		Requires:     dep.Requires,
		Singleton:    false,
		Instance:     dep.Instance,
		Origin:       origin,
		RegisteredAt: time.Now(),
	}
}

// record appends a diagnostic record.
// Callers must hold s.mu.
func (s *SharedScope) record(dep SharedDep, origin, outcome string) {
	s.records = append(s.records, ScopeRecord{
		Dep:     dep.Name,
		Version: dep.Version,
		Origin:  origin,
		Outcome: outcome,
		At:      time.Now(),
	})
}

// Get returns the retained instance for a shared dependency. All
// consumers of a singleton observe the same instance.
func (s *SharedScope) Get(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrSharedNotFound)
	}
	return entry.Instance, nil
}

// GetFor returns the instance visible to a specific origin: its isolated
// copy when one exists, otherwise the shared entry.
func (s *SharedScope) GetFor(origin, name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if byOrigin, ok := s.isolated[name]; ok {
		if entry, ok := byOrigin[origin]; ok {
			return entry.Instance, nil
		}
	}

	entry, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrSharedNotFound)
	}
	return entry.Instance, nil
}

// Entry returns a snapshot of the retained entry for name.
func (s *SharedScope) Entry(name string) (ScopeEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[name]
	if !ok {
		return ScopeEntry{}, false
	}
	return *entry, true
}

// Entries returns a snapshot of all retained entries.
func (s *SharedScope) Entries() []ScopeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]ScopeEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, *e)
	}
	return entries
}

// Records returns a snapshot of the diagnostic registration records.
func (s *SharedScope) Records() []ScopeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]ScopeRecord, len(s.records))
	copy(records, s.records)
	return records
}

func (s *SharedScope) setPolicy(p ConflictPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = p
}

func (s *SharedScope) bindEmit(emit func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit = emit
}

// emitEvent queues an event while s.mu is held; the public entry points
// dispatch queued events after releasing the lock.
func (s *SharedScope) emitEvent(e Event) {
	e.Scope = s.name
	s.pending = append(s.pending, e)
}

// takePending drains the queued events. Callers must hold s.mu.
func (s *SharedScope) takePending() []Event {
	events := s.pending
	s.pending = nil
	return events
}

func (s *SharedScope) dispatch(events []Event) {
	s.mu.RLock()
	emit := s.emit
	s.mu.RUnlock()

	if emit == nil {
		return
	}
	for _, e := range events {
		emit(e)
	}
}

// compatible reports whether a new registration's range overlaps the
// retained entry's range. An empty range on either side accepts any
// version.
func compatible(existing *ScopeEntry, dep SharedDep) bool {
	a := rangeOf(existing.Requires, existing.Version)
	b := rangeOf(dep.Requires, dep.Version)
	if a == "" || b == "" {
		return true
	}

	ca, err := semver.ParseConstraint(a)
	if err != nil {
		return false
	}
	cb, err := semver.ParseConstraint(b)
	if err != nil {
		return false
	}
	return semver.Overlaps(ca, cb)
}

// rangeOf returns the effective range: the declared requirement, or the
// concrete provided version when no requirement is declared.
func rangeOf(requires, version string) string {
	if requires != "" {
		return requires
	}
	return version
}
