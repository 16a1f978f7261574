// Package artifact contains concrete implementations of core.ArtifactAccess:
// a content-addressed (BLAKE3) store for the large tool outputs and
// documents the reasoning engine offloads out of the active context window.
//
// The canonical ArtifactAccess interface lives in the core package to avoid
// dependency cycles and keep domain contracts central. Implementation
// packages like this one (in-memory, cloud object stores, databases, etc.)
// provide storage backends that can be swapped without touching calling
// code.
package artifact
