// Package backend defines the wire types shared with the tubesync backend
// and the HTTP client for queue, job control, catalog lookup, and dismissal
// broadcast calls.
package backend
