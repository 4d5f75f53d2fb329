package federa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// RemoteEntry is the decoded remote entry manifest: the externally
// hosted artifact describing a container, its exposed modules, and the
// shared dependencies it declares.
type RemoteEntry struct {
	// Name is the container's own name, unique within a host.
	Name string `json:"name"`

	// PublicPath is the base URL for the container's assets. "auto" or
	// empty defers resolution to where the entry itself was fetched.
	PublicPath string `json:"publicPath,omitempty"`

	// Exposes maps exposed module paths to asset locations relative to
	// the public path.
	Exposes map[string]string `json:"exposes"`

	// Shared declares the container's shared dependencies.
	Shared []SharedDecl `json:"shared,omitempty"`
}

// SharedDecl is a shared dependency declaration in a remote entry.
type SharedDecl struct {
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	Requires  string `json:"requires,omitempty"`
	Singleton bool   `json:"singleton,omitempty"`
	Eager     bool   `json:"eager,omitempty"`
}

// FetchEntry retrieves and decodes a remote entry manifest.
func FetchEntry(ctx context.Context, client *http.Client, entryURL string) (*RemoteEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entryURL, nil)
	if err != nil {
		return nil, &FetchError{URL: entryURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: entryURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: entryURL, StatusCode: resp.StatusCode}
	}

	var entry RemoteEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, &FetchError{URL: entryURL, Err: fmt.Errorf("decode entry: %w", err)}
	}

	if entry.Name == "" {
		return nil, &FetchError{URL: entryURL, Err: fmt.Errorf("entry has no container name")}
	}
	return &entry, nil
}

// manifestContainer adapts a fetched remote entry to the Container
// interface. Its module factories fetch exposed assets relative to the
// container's resolved public path.
type manifestContainer struct {
	entry  *RemoteEntry
	client *http.Client

	// base returns the container's resolved public path. The path is
	// resolved before registration completes, so factories always see
	// the final value.
	base func() string
}

func newManifestContainer(entry *RemoteEntry, client *http.Client, base func() string) *manifestContainer {
	return &manifestContainer{
		entry:  entry,
		client: client,
		base:   base,
	}
}

// Init contributes the manifest's shared declarations to the scope.
func (c *manifestContainer) Init(_ context.Context, scope *SharedScope) error {
	for _, decl := range c.entry.Shared {
		dep := SharedDep{
			Name:      decl.Name,
			Version:   decl.Version,
			Requires:  decl.Requires,
			Singleton: decl.Singleton,
			Eager:     decl.Eager,
		}
		if err := scope.Contribute(c.entry.Name, dep); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a factory fetching the exposed asset for path.
func (c *manifestContainer) Get(_ context.Context, path string) (ModuleFactory, error) {
	asset, ok := c.entry.Exposes[path]
	if !ok {
		return nil, &NotExposedError{Container: c.entry.Name, Path: path}
	}

	return func(ctx context.Context) (any, error) {
		assetURL, err := url.JoinPath(c.base(), asset)
		if err != nil {
			return nil, &FetchError{URL: asset, Err: err}
		}
		return fetchModule(ctx, c.client, assetURL)
	}, nil
}

// fetchModule retrieves an exposed asset and decodes it. JSON payloads
// decode to their natural Go value; anything else is returned as raw
// bytes.
func fetchModule(ctx context.Context, client *http.Client, assetURL string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, &FetchError{URL: assetURL, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: assetURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: assetURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: assetURL, Err: err}
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return data, nil
	}
	return value, nil
}
