package responder

import "time"

type Config struct {
	// PollInterval is how long the loop waits before polling the bus
	// again when no frame is pending.
	PollInterval time.Duration

	// StrictPressureFrame sends the second response frame only when
	// the pressure slot was actually sampled. When false the decision
	// follows the reference firmware and keys on payload byte 8 being
	// non-zero, which the 0xFF filler of an un-requested pressure slot
	// also satisfies.
	StrictPressureFrame bool

	// RecordChannelSize bounds the records waiting for the egress
	// writer. Records past the bound are dropped, never waited on.
	RecordChannelSize int
}

func NewDefaultConfig() *Config {
	return &Config{
		PollInterval:      time.Millisecond,
		RecordChannelSize: 1024,
	}
}
