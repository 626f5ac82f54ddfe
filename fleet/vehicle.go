package fleet

import "time"

// Status is the operational state of a vehicle.
type Status string

const (
	StatusEnRoute   Status = "en-route"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusEnRoute, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// Vehicle is the current state record of one tracked asset. The Registry owns
// the authoritative copy; everything handed out is a value copy.
type Vehicle struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Driver    string    `json:"driver"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HistoryRecord is an immutable past position sample for one vehicle.
type HistoryRecord struct {
	VehicleID  string    `json:"vehicleId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recordedAt"`
}
