// Package storage implements the persistent store contract on MySQL.
//
// It owns two tables:
//   - vehicles: one row per tracked vehicle, keyed by id
//   - vehicle_history: append-only position trail, ordered by recorded_at
//
// The vehicle-row write and the optional history append of one update run in
// a single transaction, so the tracker never has to reconcile a half-applied
// mutation after a store failure.
package storage
