package sensors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSensors struct {
	methane func(ctx context.Context) (uint16, error)
}

func (s *stubSensors) Methane(ctx context.Context) (uint16, error) {
	return s.methane(ctx)
}

func (s *stubSensors) CO2(_ context.Context) (uint16, error) { return 400, nil }

func (s *stubSensors) CO(_ context.Context) (uint16, error) { return 30, nil }

func (s *stubSensors) TemperaturePair(_ context.Context) (float64, float64, error) {
	return 21.0, 22.0, nil
}

func (s *stubSensors) HumidityPair(_ context.Context) (float64, float64, error) {
	return 40.0, 42.0, nil
}

func (s *stubSensors) Pressure(_ context.Context) (float64, error) { return 98_400, nil }

func Test_Guard_PassThrough(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	guard := NewGuard(&stubSensors{
		methane: func(_ context.Context) (uint16, error) { return 300, nil },
	}, nil)

	ctx := context.Background()

	v, err := guard.Methane(ctx)
	require.NoError(err)
	assert.Equal(uint16(300), v)

	ambient, co2Sensor, err := guard.TemperaturePair(ctx)
	require.NoError(err)
	assert.Equal(21.0, ambient)
	assert.Equal(22.0, co2Sensor)

	pa, err := guard.Pressure(ctx)
	require.NoError(err)
	assert.Equal(98_400.0, pa)
}

func Test_Guard_HungReadTimesOut(t *testing.T) {
	assert := assert.New(t)

	guard := NewGuard(&stubSensors{
		methane: func(_ context.Context) (uint16, error) {
			// Simulates a hung driver that ignores the context
			time.Sleep(time.Hour)
			return 0, nil
		},
	}, &GuardConfig{
		ReadTimeout: 10 * time.Millisecond,
		Retries:     1,
	})

	start := time.Now()
	_, err := guard.Methane(context.Background())

	assert.ErrorIs(err, ErrReadTimeout)
	assert.Less(time.Since(start), time.Second)
}

func Test_Guard_RetriesAfterFailure(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	attempts := 0
	guard := NewGuard(&stubSensors{
		methane: func(_ context.Context) (uint16, error) {
			attempts++
			if attempts == 1 {
				return 0, errors.New("bus glitch")
			}
			return 512, nil
		},
	}, &GuardConfig{
		ReadTimeout: 100 * time.Millisecond,
		Retries:     2,
	})

	v, err := guard.Methane(context.Background())
	require.NoError(err)
	assert.Equal(uint16(512), v)
	assert.Equal(2, attempts)
}

func Test_Guard_ExhaustedRetriesReturnLastError(t *testing.T) {
	assert := assert.New(t)

	readErr := errors.New("sensor not ready")

	attempts := 0
	guard := NewGuard(&stubSensors{
		methane: func(_ context.Context) (uint16, error) {
			attempts++
			return 0, readErr
		},
	}, &GuardConfig{
		ReadTimeout: 100 * time.Millisecond,
		Retries:     2,
	})

	_, err := guard.Methane(context.Background())
	assert.ErrorIs(err, readErr)
	assert.Equal(3, attempts)
}

func Test_AnalogChannel_Scaling(t *testing.T) {
	assert := assert.New(t)

	raw := uint16(0)
	ch := NewAnalogChannel(300, 10_000, func() uint16 { return raw })

	assert.Equal(uint16(300), ch.Value())

	raw = adcFullScale
	assert.Equal(uint16(10_000), ch.Value())

	raw = adcFullScale / 2
	mid := ch.Value()
	assert.Greater(mid, uint16(5_000))
	assert.Less(mid, uint16(5_200))
}
