// Package federa provides a runtime module federation loader for Go hosts.
//
// Federa lets a host application load modules exposed by independently
// deployed remote containers at runtime. It provides:
//
//   - A process-wide container registry with coalesced resolution
//   - A container lifecycle state machine with an init-once guard
//   - Shared-scope negotiation so singleton dependencies load exactly once
//   - Per-container public path resolution for relocatable deployments
//   - Lifecycle events with an optional SQLite journal
//   - YAML host configuration with optional file watching
//
// # Quick Start
//
// Create a loader, register a remote, and load a module:
//
//	loader := federa.New()
//
//	// Register a remote by its entry manifest URL
//	err := loader.Register("checkout", federa.URLSource("https://cdn.example.com/checkout/entry.json"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Share a singleton dependency with every remote
//	loader.Share(federa.SharedDep{
//	    Name:      "uikit",
//	    Version:   "2.1.4",
//	    Requires:  "^2.1.0",
//	    Singleton: true,
//	    Instance:  uikit,
//	})
//
//	// Load an exposed module
//	widget, err := loader.Load(ctx, "checkout", "./Widget")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Containers
//
// A remote container is anything implementing the Container interface:
//
//	type Container interface {
//	    Init(ctx context.Context, scope *SharedScope) error
//	    Get(ctx context.Context, path string) (ModuleFactory, error)
//	}
//
// Containers can be registered from four kinds of source: a URL pointing
// at an entry manifest, an async producer function, a directly supplied
// object, or a pre-bound global reference. However a container arrives,
// the loader guarantees its Init runs at most once per handle and that
// Get never observes a partially initialized container.
//
// # Shared Scope
//
// Every participating bundle contributes its shared dependencies to a
// process-wide scope before any container initializes against it. For a
// singleton dependency the first compatible registration wins; later
// compatible registrations are discarded and recorded for diagnostics.
// Incompatible version ranges either fail fast or fall back to isolated
// per-consumer copies, depending on the configured conflict policy.
//
// # Architecture
//
// The main components are:
//
//   - Loader: orchestrates resolve, public path, init, and get
//   - Registry: name to handle mapping with coalesced in-flight fetches
//   - Handle: container lifecycle state machine
//   - SharedScope: process-wide shared dependency table
//   - Globals: process-wide binding table for injected containers and paths
//
// # Thread Safety
//
// All exported types are safe for concurrent use. The Registry coalesces
// concurrent Resolve calls for the same name into a single in-flight
// fetch, and Handle settles concurrent Init calls exactly once.
package federa
