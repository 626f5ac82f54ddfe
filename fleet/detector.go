package fleet

// Change is the decision record produced by comparing an old and a new vehicle
// state. It drives the follow-on actions of a mutation: history append on
// PositionChanged, and which announcement (if any) to publish.
type Change struct {
	Created         bool
	Deleted         bool
	PositionChanged bool
}

// Detect compares the previous and next state of one vehicle. A nil prev means
// the vehicle is being created, a nil next means it is being deleted. Position
// change is exact coordinate inequality: no tolerance is applied, so a
// status-only update never counts as movement.
func Detect(prev, next *Vehicle) Change {
	switch {
	case prev == nil && next == nil:
		return Change{}
	case prev == nil:
		return Change{Created: true}
	case next == nil:
		return Change{Deleted: true}
	}
	return Change{
		PositionChanged: prev.Latitude != next.Latitude || prev.Longitude != next.Longitude,
	}
}
