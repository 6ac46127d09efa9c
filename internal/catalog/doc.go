// Package catalog defines the local entity model for channels and videos and
// the process-wide cache that keeps one live instance per identity.
package catalog
