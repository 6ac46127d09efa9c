// Package push maintains the persistent subscription to the backend event
// stream: group joins, at-least-once event delivery, and reconnect with
// rejoin semantics.
package push
