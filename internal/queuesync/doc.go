// Package queuesync keeps the displayed download queue consistent with the
// shared server queue: full snapshot rebuilds with per-video de-duplication,
// plus incremental front insertions from push events.
package queuesync
