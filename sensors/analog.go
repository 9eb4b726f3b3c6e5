// Package sensors provides implementations of the sensor access layer
// consumed by the protocol assembler: a simulated bench fitting for
// runs without hardware, and a guard wrapper bounding reads with a
// timeout and retries.
package sensors

// adcFullScale is the full-scale raw value of a 12-bit converter.
const adcFullScale = 4095

// AnalogChannel models one ADC input with per-channel scaling: a raw
// 12-bit sample is mapped linearly onto [MinScale, MaxScale], the way
// the gas channels of an ADS7828 are configured.
type AnalogChannel struct {
	MinScale uint16
	MaxScale uint16

	sample func() uint16
}

// NewAnalogChannel returns a channel scaled to [minScale, maxScale],
// sampling raw values from the given source.
func NewAnalogChannel(minScale, maxScale uint16, sample func() uint16) *AnalogChannel {
	return &AnalogChannel{
		MinScale: minScale,
		MaxScale: maxScale,

		sample: sample,
	}
}

// Value samples the channel and returns the scaled reading.
func (c *AnalogChannel) Value() uint16 {
	raw := uint32(c.sample()) & adcFullScale
	span := uint32(c.MaxScale - c.MinScale)

	return c.MinScale + uint16(raw*span/adcFullScale)
}
