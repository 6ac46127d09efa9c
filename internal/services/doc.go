// Package services provides shared error classification, bounded retry, and
// context annotation helpers used across sync components.
package services
