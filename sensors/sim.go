package sensors

import (
	"context"
	"math/rand/v2"

	"github.com/envilink/canair/protocol"
)

var _ protocol.Sensors = (*SimBench)(nil)

// SimBench simulates the full sensor fitting of the node: a methane
// channel (SEN0129, scaled 300-10000) and a CO channel (MQ-7, scaled
// 30-3000) behind the analog converter, an SCD4x CO2 sensor and a
// BME280 for temperature, humidity and pressure. Readings drift
// randomly around plausible indoor values.
type SimBench struct {
	methane *AnalogChannel
	co      *AnalogChannel
}

func NewSimBench() *SimBench {
	rawSample := func() uint16 {
		return uint16(rand.Uint32N(adcFullScale + 1))
	}

	return &SimBench{
		methane: NewAnalogChannel(300, 10_000, rawSample),
		co:      NewAnalogChannel(30, 3_000, rawSample),
	}
}

func (s *SimBench) Methane(_ context.Context) (uint16, error) {
	return s.methane.Value(), nil
}

func (s *SimBench) CO2(_ context.Context) (uint16, error) {
	return uint16(400 + rand.Uint32N(800)), nil
}

func (s *SimBench) CO(_ context.Context) (uint16, error) {
	return s.co.Value(), nil
}

func (s *SimBench) TemperaturePair(_ context.Context) (float64, float64, error) {
	ambient := 20.0 + rand.Float64()*5.0
	// the SCD4x onboard reading runs slightly warm
	return ambient, ambient + rand.Float64()*1.5, nil
}

func (s *SimBench) HumidityPair(_ context.Context) (float64, float64, error) {
	ambient := 35.0 + rand.Float64()*30.0
	return ambient, ambient - rand.Float64()*4.0, nil
}

func (s *SimBench) Pressure(_ context.Context) (float64, error) {
	return 98_000 + rand.Float64()*4_000, nil
}
