// Package pipeline contains the synchronization engine: the bounded
// concurrency limiter, the retry policy, the per-asset processor, the
// batch orchestrator, and the pull-mode pagination cursor.
package pipeline
