package federa

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/martellcode/federa/internal/semver"
)

// HostConfig is the host build configuration: the set of remote
// descriptors and shared dependency declarations consumed at startup.
type HostConfig struct {
	Name    string                  `yaml:"name"`
	Remotes map[string]RemoteConfig `yaml:"remotes"`
	Shared  []SharedConfig          `yaml:"shared"`
	Policy  string                  `yaml:"policy"` // fail | isolate
}

// RemoteConfig describes one remote container. Exactly one of URL or
// Global locates the container.
type RemoteConfig struct {
	// URL is the remote entry manifest location.
	URL string `yaml:"url"`

	// Global names a pre-bound container in the Globals table.
	Global string `yaml:"global"`

	// PublicPath selects the public path strategy:
	// "auto" (default), "static:<url>", or "binding:<key>".
	PublicPath string `yaml:"public_path"`
}

// SharedConfig declares a host shared dependency.
type SharedConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Requires  string `yaml:"requires"`
	Singleton bool   `yaml:"singleton"`
	Eager     bool   `yaml:"eager"`
}

// ParseHostConfig parses and validates a YAML host configuration.
func ParseHostConfig(data []byte) (*HostConfig, error) {
	var cfg HostConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse host config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadHostConfig reads and parses a host configuration file.
func LoadHostConfig(path string) (*HostConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read host config: %w", err)
	}
	return ParseHostConfig(data)
}

// Validate checks the configuration for structural errors.
func (c *HostConfig) Validate() error {
	var errs []error

	for name, remote := range c.Remotes {
		if name == "" {
			errs = append(errs, fmt.Errorf("remote with empty name"))
			continue
		}
		if remote.URL == "" && remote.Global == "" {
			errs = append(errs, fmt.Errorf("remote %s: needs url or global", name))
		}
		if remote.URL != "" && remote.Global != "" {
			errs = append(errs, fmt.Errorf("remote %s: url and global are mutually exclusive", name))
		}
		if _, err := parsePublicPath(remote.PublicPath); err != nil {
			errs = append(errs, fmt.Errorf("remote %s: %w", name, err))
		}
	}

	for i, dep := range c.Shared {
		if dep.Name == "" {
			errs = append(errs, fmt.Errorf("shared[%d]: name is required", i))
		}
		if dep.Version != "" && !semver.Valid(dep.Version) {
			errs = append(errs, fmt.Errorf("shared %s: invalid version %q", dep.Name, dep.Version))
		}
		if dep.Requires != "" && !semver.ValidConstraint(dep.Requires) {
			errs = append(errs, fmt.Errorf("shared %s: invalid requires %q", dep.Name, dep.Requires))
		}
	}

	switch c.Policy {
	case "", "fail", "isolate":
	default:
		errs = append(errs, fmt.Errorf("policy must be \"fail\" or \"isolate\", got %q", c.Policy))
	}

	return errors.Join(errs...)
}

// ConflictPolicy returns the configured policy, defaulting to strict.
func (c *HostConfig) ConflictPolicy() ConflictPolicy {
	if c.Policy == "isolate" {
		return ConflictIsolate
	}
	return ConflictFail
}

// parsePublicPath maps a config public_path field to a strategy. An
// empty or "auto" value returns nil, leaving the default in place.
func parsePublicPath(s string) (PathStrategy, error) {
	switch {
	case s == "" || s == "auto":
		return nil, nil
	case strings.HasPrefix(s, "static:"):
		base := strings.TrimPrefix(s, "static:")
		if base == "" {
			return nil, fmt.Errorf("public_path static: missing URL")
		}
		return PathStatic(base), nil
	case strings.HasPrefix(s, "binding:"):
		key := strings.TrimPrefix(s, "binding:")
		if key == "" {
			return nil, fmt.Errorf("public_path binding: missing key")
		}
		return PathBinding(key), nil
	default:
		return nil, fmt.Errorf("invalid public_path %q", s)
	}
}

// Apply registers the configuration's shared dependencies and remotes.
// Remotes already registered and healthy are left alone; failed handles
// are superseded. Host shared declarations apply only before the scope
// seals.
func (l *Loader) Apply(cfg *HostConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	l.scope.setPolicy(cfg.ConflictPolicy())

	var errs []error
	for _, dep := range cfg.Shared {
		err := l.Share(SharedDep{
			Name:      dep.Name,
			Version:   dep.Version,
			Requires:  dep.Requires,
			Singleton: dep.Singleton,
			Eager:     dep.Eager,
		})
		if err != nil && !errors.Is(err, ErrScopeSealed) {
			errs = append(errs, fmt.Errorf("shared %s: %w", dep.Name, err))
		}
	}

	for name, remote := range cfg.Remotes {
		var src Source
		if remote.URL != "" {
			src = URLSource(remote.URL)
		} else {
			src = GlobalSource(remote.Global)
		}

		var opts []RegisterOption
		strategy, _ := parsePublicPath(remote.PublicPath)
		if strategy != nil {
			opts = append(opts, WithPublicPath(strategy))
		}

		err := l.Register(name, src, opts...)
		if err != nil && !errors.Is(err, ErrAlreadyRegistered) {
			errs = append(errs, fmt.Errorf("remote %s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}
