package internal

import (
	"context"
	"sync/atomic"
	"time"
)

// Stats logs per-second frame and byte rates of a stage.
type Stats struct {
	l *Logger

	frameCount atomic.Uint64
	byteCount  atomic.Uint64
}

func NewStats(l *Logger) *Stats {
	return &Stats{
		l: l,
	}
}

func (s *Stats) RunStats(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frameCount := s.frameCount.Load()
			byteCount := s.byteCount.Load()

			if frameCount == 0 && byteCount == 0 {
				continue
			}

			s.frameCount.Store(0)
			s.byteCount.Store(0)

			s.l.Info("stats", "frames_per_sec", frameCount, "bytes_per_sec", byteCount)
		}
	}
}

func (s *Stats) IncrementFrameCount() {
	s.frameCount.Add(1)
}

func (s *Stats) IncrementByteCountBy(n int) {
	s.byteCount.Add(uint64(n))
}
