// Package reconcile merges incoming change events into the local entity
// cache, discarding echoes of this client's own mutations, and pushes local
// channel edits back to the backend.
package reconcile
