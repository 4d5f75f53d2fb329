package federa

import (
	"errors"
	"testing"
)

func TestStandardErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrNotRegistered", ErrNotRegistered, "remote is not registered"},
		{"ErrNotReady", ErrNotReady, "container is not initialized"},
		{"ErrContainerFailed", ErrContainerFailed, "container is in failed state"},
		{"ErrAlreadyRegistered", ErrAlreadyRegistered, "remote is already registered"},
		{"ErrScopeSealed", ErrScopeSealed, "shared scope is sealed"},
		{"ErrPublicPathSet", ErrPublicPathSet, "public path already resolved"},
		{"ErrBindingNotFound", ErrBindingNotFound, "external binding not found"},
		{"ErrSharedNotFound", ErrSharedNotFound, "shared dependency not found"},
		{"ErrNotCompleted", ErrNotCompleted, "operation not completed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("%s.Error() = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestContainerError(t *testing.T) {
	err := &ContainerError{
		Name: "checkout",
		Op:   "init",
		Err:  ErrNotReady,
	}

	want := "container checkout: init: container is not initialized"
	if got := err.Error(); got != want {
		t.Errorf("ContainerError.Error() = %q, want %q", got, want)
	}

	if got := err.Unwrap(); got != ErrNotReady {
		t.Errorf("ContainerError.Unwrap() = %v, want %v", got, ErrNotReady)
	}

	if !errors.Is(err, ErrNotReady) {
		t.Error("errors.Is(ContainerError, ErrNotReady) should be true")
	}
}

func TestFetchError(t *testing.T) {
	err := &FetchError{URL: "https://cdn.example.com/entry.json", StatusCode: 404}

	want := "fetch https://cdn.example.com/entry.json: unexpected status 404"
	if got := err.Error(); got != want {
		t.Errorf("FetchError.Error() = %q, want %q", got, want)
	}

	inner := errors.New("connection refused")
	err = &FetchError{URL: "https://cdn.example.com/entry.json", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is(FetchError, inner) should be true")
	}
}

func TestNotExposedError(t *testing.T) {
	err := &NotExposedError{Container: "RemoteA", Path: "./DoesNotExist"}

	want := `module "./DoesNotExist" is not exposed by container "RemoteA"`
	if got := err.Error(); got != want {
		t.Errorf("NotExposedError.Error() = %q, want %q", got, want)
	}
}

func TestVersionConflictError(t *testing.T) {
	err := &VersionConflictError{Dep: "uikit", Existing: "^1.0.0", Requested: "^2.0.0"}

	want := `shared dependency "uikit": version conflict: "^2.0.0" is incompatible with "^1.0.0"`
	if got := err.Error(); got != want {
		t.Errorf("VersionConflictError.Error() = %q, want %q", got, want)
	}
}

func TestPublicPathError(t *testing.T) {
	err := &PublicPathError{
		Container: "app1",
		Reason:    `binding "cdn_base" is not set`,
		Err:       ErrBindingNotFound,
	}

	want := `public path for container "app1": binding "cdn_base" is not set`
	if got := err.Error(); got != want {
		t.Errorf("PublicPathError.Error() = %q, want %q", got, want)
	}

	if !errors.Is(err, ErrBindingNotFound) {
		t.Error("errors.Is(PublicPathError, ErrBindingNotFound) should be true")
	}
}
