// Package notify coalesces download progress into a single notification,
// suppresses redundant re-publishes, and synchronizes dismissals across
// devices.
package notify
