package responder

import (
	"context"
	"testing"
	"time"

	"github.com/envilink/canair/canbus"
	"github.com/envilink/canair/connector"
	"github.com/envilink/canair/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSensors struct{}

func (fixedSensors) Methane(_ context.Context) (uint16, error) { return 300, nil }

func (fixedSensors) CO2(_ context.Context) (uint16, error) { return 1_200, nil }

func (fixedSensors) CO(_ context.Context) (uint16, error) { return 45, nil }

func (fixedSensors) TemperaturePair(_ context.Context) (float64, float64, error) {
	return 21.7, 21.7, nil
}

func (fixedSensors) HumidityPair(_ context.Context) (float64, float64, error) {
	return 50.0, 50.0, nil
}

func (fixedSensors) Pressure(_ context.Context) (float64, error) { return 98_400, nil }

func newTestStage(t *testing.T, cfg *Config) (*Stage, *canbus.Loopback, *connector.Channel[*Record], context.CancelFunc) {
	t.Helper()

	bus := canbus.NewLoopback()
	output := connector.NewChannel[*Record](16)

	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	cfg.PollInterval = 100 * time.Microsecond

	stage := NewStage(bus, fixedSensors{}, cfg)
	stage.AddOutput(output)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, stage.Init(ctx))

	go stage.Run(ctx)

	t.Cleanup(func() {
		cancel()
		stage.Stop()
	})

	return stage, bus, output, cancel
}

func collectFrames(t *testing.T, bus *canbus.Loopback, count int) []canbus.Frame {
	t.Helper()

	var frames []canbus.Frame
	require.Eventually(t, func() bool {
		frames = append(frames, bus.Sent()...)
		return len(frames) >= count
	}, 2*time.Second, time.Millisecond)

	return frames
}

func Test_Stage_ServesRequest(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	_, bus, output, _ := newTestStage(t, nil)

	bus.Inject(canbus.NewFrame(protocol.RequestID, []byte{0x11, 0x00, 0x00, 0x11, 0x00, 0x00}))

	// Reference dispatch: byte 8 holds the pressure filler 0xFF, so the
	// second frame goes out even though pressure was never requested
	frames := collectFrames(t, bus, 2)
	require.Len(frames, 2)

	assert.Equal(protocol.Response1ID, frames[0].ID)
	assert.Equal([]byte{0x01, 0x2C, 0xFF, 0xFF, 0xFF, 0xFF, 0x15, 0xFF}, frames[0].Payload())

	assert.Equal(protocol.Response2ID, frames[1].ID)
	assert.Equal([]byte{0xFF}, frames[1].Payload())

	record, err := output.Read()
	require.NoError(err)

	assert.Equal([]byte{0x11, 0x00, 0x00, 0x11, 0x00, 0x00}, record.Selector)
	assert.Equal([]byte{0x01, 0x2C, 0xFF, 0xFF, 0xFF, 0xFF, 0x15, 0xFF, 0xFF}, record.Payload)
	assert.True(record.Sampled[protocol.SlotMethane])
	assert.True(record.Sampled[protocol.SlotTemperature])
	assert.False(record.Sampled[protocol.SlotPressure])
	assert.True(record.Frame2Sent)
	assert.Zero(record.ReadErrors)
}

func Test_Stage_StrictPressureFrame(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cfg := NewDefaultConfig()
	cfg.StrictPressureFrame = true

	_, bus, _, _ := newTestStage(t, cfg)

	// Pressure not requested: only frame 1 goes out
	bus.Inject(canbus.NewFrame(protocol.RequestID, []byte{0x11, 0x00, 0x00, 0x00, 0x00, 0x00}))

	frames := collectFrames(t, bus, 1)
	require.Len(frames, 1)
	assert.Equal(protocol.Response1ID, frames[0].ID)

	// Pressure requested: both frames go out
	bus.Inject(canbus.NewFrame(protocol.RequestID, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x11}))

	frames = collectFrames(t, bus, 2)
	require.Len(frames, 2)
	assert.Equal(protocol.Response2ID, frames[1].ID)
	assert.Equal([]byte{0x62}, frames[1].Payload())
}

func Test_Stage_IgnoresOtherIdentifiers(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	_, bus, _, _ := newTestStage(t, nil)

	bus.Inject(canbus.NewFrame(0x123, []byte{0x11, 0x11, 0x11, 0x11, 0x11, 0x11}))
	bus.Inject(canbus.NewFrame(protocol.RequestID, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x11}))

	frames := collectFrames(t, bus, 2)
	require.Len(frames, 2)

	// Only the matching request produced a response
	assert.Equal(protocol.Response1ID, frames[0].ID)
	assert.Equal([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, frames[0].Payload())
	assert.Equal(protocol.Response2ID, frames[1].ID)
}

func Test_Stage_ShortSelector(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cfg := NewDefaultConfig()
	cfg.StrictPressureFrame = true

	_, bus, output, _ := newTestStage(t, cfg)

	bus.Inject(canbus.NewFrame(protocol.RequestID, []byte{0x11, 0x00, 0x11}))

	frames := collectFrames(t, bus, 1)
	require.Len(frames, 1)

	assert.Equal([]byte{0x01, 0x2C, 0xFF, 0xFF, 0x00, 0x2D, 0xFF, 0xFF}, frames[0].Payload())

	record, err := output.Read()
	require.NoError(err)
	assert.False(record.Frame2Sent)
	assert.Len(record.Payload, protocol.PayloadLen)
}
