package canbus

// Bus is the CAN transport contract consumed by the responder.
//
// Transmission is fire-and-forget: the responder never waits for an
// acknowledgment and does not observe delivery.
type Bus interface {
	// TryReceive returns the next pending inbound frame without blocking.
	// The second return value reports whether a frame was available.
	TryReceive() (Frame, bool, error)

	// Transmit sends one frame on the bus.
	Transmit(frame Frame) error
}
