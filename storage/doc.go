// Package storage defines the persistence interfaces consumed by the sync
// pipeline: the resumable pagination cursor and the fire-and-forget audit
// sink. The badger subpackage provides the BadgerDB-backed implementation.
package storage
