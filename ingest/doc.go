// Package ingest feeds fleet positions from a GTFS-RT VehiclePositions feed.
//
// The feeder polls the feed on an interval and applies every vehicle entity
// through the mutation gateway: unseen vehicles are created, known ones get a
// position update. It is just another gateway caller, so the usual change
// detection, history and broadcast rules apply unchanged.
package ingest
