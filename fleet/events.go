package fleet

// Event types pushed to observer sessions. RequestPositions is the only
// client-to-server type; it triggers a fresh InitialPositions for that session.
const (
	EventInitialPositions = "initialPositions"
	EventVehicleAdded     = "vehicleAdded"
	EventVehicleDeleted   = "vehicleDeleted"
	EventLocationUpdated  = "locationUpdated"
	EventRequestPositions = "requestPositions"
)

// Event is the envelope delivered on the push channel.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// LocationUpdate is the payload of a locationUpdated event.
type LocationUpdate struct {
	VehicleID string  `json:"vehicleId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Status    Status  `json:"status"`
}

// VehicleRef is the payload of a vehicleDeleted event.
type VehicleRef struct {
	VehicleID string `json:"vehicleId"`
}

func initialPositionsEvent(vehicles []Vehicle) Event {
	return Event{Type: EventInitialPositions, Data: vehicles}
}

func vehicleAddedEvent(v Vehicle) Event {
	return Event{Type: EventVehicleAdded, Data: v}
}

func vehicleDeletedEvent(id string) Event {
	return Event{Type: EventVehicleDeleted, Data: VehicleRef{VehicleID: id}}
}

func locationUpdatedEvent(v Vehicle) Event {
	return Event{Type: EventLocationUpdated, Data: LocationUpdate{
		VehicleID: v.ID,
		Latitude:  v.Latitude,
		Longitude: v.Longitude,
		Status:    v.Status,
	}}
}
