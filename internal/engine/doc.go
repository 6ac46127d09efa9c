// Package engine assembles the sync client: it owns the push connection,
// routes events to the reconcilers, and exposes the IPC control surface.
package engine
