// Package ipc exposes the running sync client over JSON-RPC on a Unix domain
// socket so CLI commands can query and control it.
package ipc
