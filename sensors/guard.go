package sensors

import (
	"context"
	"errors"
	"time"

	"github.com/envilink/canair/protocol"
)

// ErrReadTimeout is returned when a sensor read exceeds the configured
// deadline on every attempt.
var ErrReadTimeout = errors.New("sensors: read timeout")

// GuardConfig configures a [Guard].
type GuardConfig struct {
	// ReadTimeout bounds a single read attempt.
	ReadTimeout time.Duration
	// Retries is the number of additional attempts after a failed read.
	Retries int
}

func NewDefaultGuardConfig() *GuardConfig {
	return &GuardConfig{
		ReadTimeout: 250 * time.Millisecond,
		Retries:     1,
	}
}

var _ protocol.Sensors = (*Guard)(nil)

// Guard wraps a [protocol.Sensors] and bounds every read with a
// timeout and a bounded number of retries, so a hung driver cannot
// stall the polling loop. A read that fails every attempt surfaces as
// an error the assembler turns into filler.
type Guard struct {
	inner protocol.Sensors
	cfg   *GuardConfig
}

func NewGuard(inner protocol.Sensors, cfg *GuardConfig) *Guard {
	if cfg == nil {
		cfg = NewDefaultGuardConfig()
	}

	return &Guard{
		inner: inner,
		cfg:   cfg,
	}
}

type readResult[T any] struct {
	value T
	err   error
}

func guardedRead[T any](g *Guard, ctx context.Context, read func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	lastErr := error(ErrReadTimeout)

	for attempt := 0; attempt <= g.cfg.Retries; attempt++ {
		readCtx, cancel := context.WithTimeout(ctx, g.cfg.ReadTimeout)

		// The read runs in its own goroutine so a driver ignoring the
		// context cannot block the caller past the deadline.
		resCh := make(chan readResult[T], 1)
		go func() {
			value, err := read(readCtx)
			resCh <- readResult[T]{value: value, err: err}
		}()

		select {
		case res := <-resCh:
			cancel()

			if res.err == nil {
				return res.value, nil
			}
			lastErr = res.err

		case <-readCtx.Done():
			cancel()
			lastErr = ErrReadTimeout
		}

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

func (g *Guard) Methane(ctx context.Context) (uint16, error) {
	return guardedRead(g, ctx, g.inner.Methane)
}

func (g *Guard) CO2(ctx context.Context) (uint16, error) {
	return guardedRead(g, ctx, g.inner.CO2)
}

func (g *Guard) CO(ctx context.Context) (uint16, error) {
	return guardedRead(g, ctx, g.inner.CO)
}

type pair struct {
	a, b float64
}

func (g *Guard) TemperaturePair(ctx context.Context) (float64, float64, error) {
	p, err := guardedRead(g, ctx, func(ctx context.Context) (pair, error) {
		a, b, err := g.inner.TemperaturePair(ctx)
		return pair{a: a, b: b}, err
	})
	return p.a, p.b, err
}

func (g *Guard) HumidityPair(ctx context.Context) (float64, float64, error) {
	p, err := guardedRead(g, ctx, func(ctx context.Context) (pair, error) {
		a, b, err := g.inner.HumidityPair(ctx)
		return pair{a: a, b: b}, err
	})
	return p.a, p.b, err
}

func (g *Guard) Pressure(ctx context.Context) (float64, error) {
	return guardedRead(g, ctx, g.inner.Pressure)
}
