// Package logging wires log/slog with console and JSON handlers plus the
// standardized field names used across the sync engine.
package logging
