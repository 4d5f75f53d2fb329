package federa

import (
	"errors"
	"fmt"
)

// Standard errors returned by the federation runtime.
var (
	// ErrNotRegistered is returned when resolving a remote name that has
	// no registered source.
	ErrNotRegistered = errors.New("remote is not registered")

	// ErrNotReady is returned by Get when the container has not been
	// initialized and no initialization is in flight.
	ErrNotReady = errors.New("container is not initialized")

	// ErrContainerFailed is returned for operations on a failed handle.
	ErrContainerFailed = errors.New("container is in failed state")

	// ErrAlreadyRegistered is returned when registering a name whose
	// handle is still healthy. Only failed handles may be superseded.
	ErrAlreadyRegistered = errors.New("remote is already registered")

	// ErrScopeSealed is returned for host contributions after the scope
	// has been sealed.
	ErrScopeSealed = errors.New("shared scope is sealed")

	// ErrPublicPathSet is returned when a container's public path would
	// be resolved a second time.
	ErrPublicPathSet = errors.New("public path already resolved")

	// ErrBindingNotFound is returned when an external global binding is
	// absent at resolution time.
	ErrBindingNotFound = errors.New("external binding not found")

	// ErrSharedNotFound is returned when looking up a shared dependency
	// that no bundle has contributed.
	ErrSharedNotFound = errors.New("shared dependency not found")

	// ErrNotCompleted is returned by Future.Result before completion.
	ErrNotCompleted = errors.New("operation not completed")
)

// ContainerError wraps an error from a container operation.
type ContainerError struct {
	Name string
	Op   string
	Err  error
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("container %s: %s: %v", e.Name, e.Op, e.Err)
}

func (e *ContainerError) Unwrap() error {
	return e.Err
}

// FetchError reports a failed remote entry or asset fetch.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotExposedError reports a Get for a path the container does not expose.
// It does not mark the container failed; other paths may still be valid.
type NotExposedError struct {
	Container string
	Path      string
}

func (e *NotExposedError) Error() string {
	return fmt.Sprintf("module %q is not exposed by container %q", e.Path, e.Container)
}

// VersionConflictError reports disjoint shared dependency version ranges
// under the strict conflict policy. The existing entry is left unchanged.
type VersionConflictError struct {
	Dep       string
	Existing  string
	Requested string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("shared dependency %q: version conflict: %q is incompatible with %q",
		e.Dep, e.Requested, e.Existing)
}

// PublicPathError reports a failed public path resolution. It is fatal
// for the affected container.
type PublicPathError struct {
	Container string
	Reason    string
	Err       error
}

func (e *PublicPathError) Error() string {
	return fmt.Sprintf("public path for container %q: %s", e.Container, e.Reason)
}

func (e *PublicPathError) Unwrap() error {
	return e.Err
}
