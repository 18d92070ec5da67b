package shipment

// LifecycleState is where a shipment stands from the point of view of the
// engine driving it. Unlike Status it is never persisted.
type LifecycleState string

const (
	StateComposing      LifecycleState = "composing"
	StateDraftPersisted LifecycleState = "draft-persisted"
	StateBooking        LifecycleState = "booking"
	StateBooked         LifecycleState = "booked"
	StateError          LifecycleState = "error"
)

func (s LifecycleState) String() string {
	return string(s)
}
