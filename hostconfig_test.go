package federa

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const hostConfigYAML = `
name: shell
policy: isolate
remotes:
  checkout:
    url: https://cdn.example.com/checkout/entry.json
  profile:
    url: https://cdn.example.com/profile/entry.json
    public_path: "binding:cdn_base"
  injected:
    global: containers/injected
shared:
  - name: uikit
    version: 2.1.0
    requires: "^2.0.0"
    singleton: true
  - name: router
    requires: "^5.0.0"
    singleton: true
    eager: true
`

func TestParseHostConfig(t *testing.T) {
	cfg, err := ParseHostConfig([]byte(hostConfigYAML))
	if err != nil {
		t.Fatalf("ParseHostConfig error: %v", err)
	}

	want := &HostConfig{
		Name:   "shell",
		Policy: "isolate",
		Remotes: map[string]RemoteConfig{
			"checkout": {URL: "https://cdn.example.com/checkout/entry.json"},
			"profile":  {URL: "https://cdn.example.com/profile/entry.json", PublicPath: "binding:cdn_base"},
			"injected": {Global: "containers/injected"},
		},
		Shared: []SharedConfig{
			{Name: "uikit", Version: "2.1.0", Requires: "^2.0.0", Singleton: true},
			{Name: "router", Requires: "^5.0.0", Singleton: true, Eager: true},
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	if got := cfg.ConflictPolicy(); got != ConflictIsolate {
		t.Errorf("ConflictPolicy = %v, want ConflictIsolate", got)
	}
}

func TestHostConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "remote without locator",
			yaml:    "remotes:\n  broken: {}\n",
			wantErr: "needs url or global",
		},
		{
			name:    "remote with both locators",
			yaml:    "remotes:\n  broken:\n    url: https://x/e.json\n    global: g\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "bad public path",
			yaml:    "remotes:\n  r:\n    url: https://x/e.json\n    public_path: magic\n",
			wantErr: "invalid public_path",
		},
		{
			name:    "shared without name",
			yaml:    "shared:\n  - version: 1.0.0\n",
			wantErr: "name is required",
		},
		{
			name:    "bad shared version",
			yaml:    "shared:\n  - name: uikit\n    version: nope\n",
			wantErr: "invalid version",
		},
		{
			name:    "bad shared requires",
			yaml:    "shared:\n  - name: uikit\n    requires: \"!!x\"\n",
			wantErr: "invalid requires",
		},
		{
			name:    "bad policy",
			yaml:    "policy: explode\n",
			wantErr: "policy must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHostConfig([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadHostConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.yaml")
	if err := os.WriteFile(path, []byte(hostConfigYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadHostConfig(path)
	if err != nil {
		t.Fatalf("LoadHostConfig error: %v", err)
	}
	if cfg.Name != "shell" {
		t.Errorf("Name = %q, want shell", cfg.Name)
	}

	if _, err := LoadHostConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadHostConfig of missing file expected error")
	}
}

func TestLoaderApply(t *testing.T) {
	cfg, err := ParseHostConfig([]byte(`
policy: fail
remotes:
  injected:
    global: containers/injected
shared:
  - name: uikit
    version: 2.1.0
    singleton: true
`))
	if err != nil {
		t.Fatalf("ParseHostConfig error: %v", err)
	}

	l := New()
	l.Globals().Bind("containers/injected", &MapContainer{
		Name:    "injected",
		Modules: map[string]ModuleFactory{"./Thing": staticModule("thing")},
	})

	if err := l.Apply(cfg); err != nil {
		t.Fatalf("Apply error: %v", err)
	}

	if _, ok := l.Scope().Entry("uikit"); !ok {
		t.Error("shared declaration missing from scope after Apply")
	}

	v, err := l.Load(context.Background(), "injected", "./Thing")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if v != "thing" {
		t.Errorf("module = %v, want thing", v)
	}

	// Re-applying the same config is idempotent: the healthy remote and
	// the sealed scope are both left alone.
	if err := l.Apply(cfg); err != nil {
		t.Fatalf("second Apply error: %v", err)
	}
}

func TestLoaderWatchMissingFile(t *testing.T) {
	l := New()
	err := l.Watch(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Watch of missing file expected error")
	}
}

func TestLoaderWatchStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.yaml")
	if err := os.WriteFile(path, []byte("name: shell\n"), 0644); err != nil {
		t.Fatal(err)
	}

	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Watch(ctx, path) }()

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Watch returned %v, want context.Canceled", err)
	}
}
