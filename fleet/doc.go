// Package fleet holds the authoritative in-memory state of the tracked fleet
// and the logic that keeps observers in sync with it.
//
// This package handles:
// - The Registry, the current-state table of all tracked vehicles
// - Change detection between an old and a new vehicle state
// - The Tracker, the single serialized entry point for all mutations
// - Fan-out of committed mutations to live observer sessions
//
// Mutations flow store-write -> registry-update -> detect -> history append ->
// broadcast as one atomic step; readers never observe a partial write.
package fleet
