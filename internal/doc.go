// Package internal contains the implementation packages of tagx.
//
// # Package Organization
//
// Rendering a component flows through these packages:
//
//   - preprocess: rewrites component tags into template actions
//   - expr: evaluates parameter default expressions
//   - descriptor: reads the metadata header and binds arguments
//   - resolver: maps component names onto files in the search roots
//   - cache: keeps compiled descriptors, revalidated by mtime
//   - assets: collects, deduplicates and fingerprints CSS and JS
//   - catalog: the public rendering API and the template scope
//
// Tooling built on top of the catalog:
//
//   - registry: discovers and lists the components of every root
//   - watcher: reports debounced file changes to invalidate the cache
//   - server: static asset middleware and the preview server
//
// Shared infrastructure lives in config, logging, errors and version.
package internal
