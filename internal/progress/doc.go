// Package progress tracks in-flight download attempts. Each tracked video
// gets one poll loop that mirrors backend job state into the entity cache
// and, on completion, records the watched exclusion.
package progress
