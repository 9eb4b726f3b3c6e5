package responder

import (
	"time"

	"github.com/envilink/canair/internal"
	"github.com/envilink/canair/protocol"
)

// Record describes one served readout request. Records flow through
// the output connector to the egress stages.
type Record struct {
	internal.Base

	// Selector is the raw payload of the request frame.
	Selector []byte

	// Payload is the full 9-byte response payload.
	Payload []byte

	// Sampled flags the slots that hold a real reading. A requested
	// slot whose read failed is not sampled even though the selector
	// asked for it.
	Sampled [protocol.SlotCount]bool

	// Frame2Sent reports whether the conditional second frame went out.
	Frame2Sent bool

	// ReadErrors counts failed sensor reads while serving the request.
	ReadErrors int

	// Elapsed is the serve duration, from frame pickup to dispatch.
	Elapsed time.Duration
}
