package federa

import (
	"fmt"
	"net/url"
	"path"
)

// PathStrategy determines the base URL a container uses to resolve its
// own asset requests. Resolution runs exactly once per container, before
// the container's first module executes.
type PathStrategy interface {
	resolveBase(h *Handle, g *Globals) (string, error)
	kind() string
}

// PathStatic returns a strategy with a base URL known at configuration
// time.
func PathStatic(base string) PathStrategy {
	return staticPath{base: base}
}

type staticPath struct {
	base string
}

func (s staticPath) kind() string { return "static" }

func (s staticPath) resolveBase(h *Handle, _ *Globals) (string, error) {
	if _, err := url.Parse(s.base); err != nil || s.base == "" {
		return "", &PublicPathError{
			Container: h.Name,
			Reason:    fmt.Sprintf("invalid static base %q", s.base),
			Err:       err,
		}
	}
	return ensureTrailingSlash(s.base), nil
}

// PathBinding returns a strategy that reads the base URL from an
// external global binding. The binding must be injected before the
// container resolves; its absence is fatal for the container.
func PathBinding(key string) PathStrategy {
	return bindingPath{key: key}
}

type bindingPath struct {
	key string
}

func (b bindingPath) kind() string { return "binding" }

func (b bindingPath) resolveBase(h *Handle, g *Globals) (string, error) {
	v, ok := g.Lookup(b.key)
	if !ok {
		return "", &PublicPathError{
			Container: h.Name,
			Reason:    fmt.Sprintf("binding %q is not set", b.key),
			Err:       ErrBindingNotFound,
		}
	}

	base, ok := v.(string)
	if !ok || base == "" {
		return "", &PublicPathError{
			Container: h.Name,
			Reason:    fmt.Sprintf("binding %q is not a URL string", b.key),
		}
	}
	return ensureTrailingSlash(base), nil
}

// PathFromEntry returns the deferred strategy: the base URL is derived
// from where the container's own entry manifest was fetched, enabling
// relocatable deployments. It runs during container startup, strictly
// before any module of that container.
func PathFromEntry() PathStrategy {
	return entryPath{}
}

type entryPath struct{}

func (entryPath) kind() string { return "entry" }

func (entryPath) resolveBase(h *Handle, _ *Globals) (string, error) {
	h.mu.RLock()
	entryURL := h.entryURL
	h.mu.RUnlock()

	if entryURL == "" {
		return "", &PublicPathError{
			Container: h.Name,
			Reason:    "no entry URL to derive the base path from",
		}
	}

	u, err := url.Parse(entryURL)
	if err != nil {
		return "", &PublicPathError{
			Container: h.Name,
			Reason:    fmt.Sprintf("malformed entry URL %q", entryURL),
			Err:       err,
		}
	}

	u.Path = path.Dir(u.Path)
	u.RawQuery = ""
	u.Fragment = ""
	return ensureTrailingSlash(u.String()), nil
}

func ensureTrailingSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s
	}
	return s + "/"
}

// resolvePublicPath runs the handle's strategy and records the result,
// exactly once. A nil strategy means the container issues no asset
// requests of its own and needs no base path.
func resolvePublicPath(h *Handle, g *Globals) error {
	if h.strategy == nil {
		return nil
	}

	base, err := h.strategy.resolveBase(h, g)
	if err != nil {
		return err
	}

	if err := h.setBasePath(base); err != nil {
		return err
	}

	h.emitEvent(Event{Type: EventPublicPathResolved, Container: h.Name, Path: base})
	return nil
}
