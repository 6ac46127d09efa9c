// Package identity provides the process-scoped client identifier stamped on
// locally-originated mutations so their echoed change events can be discarded.
package identity

import "github.com/google/uuid"

// ClientID uniquely identifies one running client process. It is generated
// once at startup, never persisted remotely, and attached to every outgoing
// mutation so the backend can echo it back on the resulting change event.
type ClientID string

// New generates a fresh process identity.
func New() ClientID {
	return ClientID(uuid.NewString())
}

// String returns the identifier as a plain string.
func (id ClientID) String() string {
	return string(id)
}

// Matches reports whether a change event originator names this client.
func (id ClientID) Matches(originator string) bool {
	return originator != "" && string(id) == originator
}
