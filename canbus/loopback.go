package canbus

import "sync"

// Loopback is an in-memory [Bus] used in tests and bench runs.
// Inbound frames are injected with [Loopback.Inject]; transmitted
// frames are collected and drained with [Loopback.Sent].
type Loopback struct {
	mux sync.Mutex

	rx []Frame
	tx []Frame
}

func NewLoopback() *Loopback {
	return &Loopback{}
}

// Inject queues an inbound frame for the next [Loopback.TryReceive].
func (l *Loopback) Inject(frame Frame) {
	l.mux.Lock()
	defer l.mux.Unlock()

	l.rx = append(l.rx, frame)
}

func (l *Loopback) TryReceive() (Frame, bool, error) {
	l.mux.Lock()
	defer l.mux.Unlock()

	if len(l.rx) == 0 {
		return Frame{}, false, nil
	}

	frame := l.rx[0]
	l.rx = l.rx[1:]

	return frame, true, nil
}

func (l *Loopback) Transmit(frame Frame) error {
	l.mux.Lock()
	defer l.mux.Unlock()

	l.tx = append(l.tx, frame)

	return nil
}

// Sent drains and returns the frames transmitted so far.
func (l *Loopback) Sent() []Frame {
	l.mux.Lock()
	defer l.mux.Unlock()

	sent := l.tx
	l.tx = nil

	return sent
}
