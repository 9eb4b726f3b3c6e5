package connector

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

type slot[T any] struct {
	dataReady atomic.Bool
	data      T
}

// RingBuffer is a lock-free MPMC ring buffer implementing [Connector].
// Capacity is rounded up to the next power of two.
type RingBuffer[T any] struct {
	// headTail packs head in the top 32 bits and tail in the bottom 32,
	// so both can be read with a single atomic load.
	headTail atomic.Uint64

	// padding avoids false sharing between the hot atomics
	_ cpu.CacheLinePad

	closed atomic.Bool

	_ cpu.CacheLinePad

	isFull atomic.Bool

	_ cpu.CacheLinePad

	isEmpty atomic.Bool

	_ cpu.CacheLinePad

	capacity uint32
	capMask  uint32

	notEmpty *sync.Cond
	notFull  *sync.Cond
	mux      *sync.Mutex

	buffer []slot[T]
}

// NewRingBuffer creates a new [RingBuffer] with the given capacity.
func NewRingBuffer[T any](capacity uint32) *RingBuffer[T] {
	capacity--
	capacity |= capacity >> 1
	capacity |= capacity >> 2
	capacity |= capacity >> 4
	capacity |= capacity >> 8
	capacity |= capacity >> 16
	capacity++

	mux := &sync.Mutex{}

	return &RingBuffer[T]{
		capacity: capacity,
		capMask:  capacity - 1,

		buffer: make([]slot[T], capacity),

		mux:      mux,
		notEmpty: sync.NewCond(mux),
		notFull:  sync.NewCond(mux),
	}
}

func (rb *RingBuffer[T]) pack(head, tail uint32) uint64 {
	return uint64(head)<<32 | uint64(tail)
}

func (rb *RingBuffer[T]) unpack(headTail uint64) (head, tail uint32) {
	head = uint32(headTail >> 32)
	tail = uint32(headTail)
	return
}

func (rb *RingBuffer[T]) push(item T) bool {
	for {
		headTail := rb.headTail.Load()
		head, tail := rb.unpack(headTail)

		if head-tail >= rb.capacity {
			return false
		}

		s := &rb.buffer[head&rb.capMask]

		// dataReady still set means the slot has not been consumed yet
		if s.dataReady.Load() {
			runtime.Gosched()
			continue
		}

		if !rb.headTail.CompareAndSwap(headTail, rb.pack(head+1, tail)) {
			runtime.Gosched()
			continue
		}

		s.data = item
		s.dataReady.Store(true)

		return true
	}
}

func (rb *RingBuffer[T]) pop() (T, bool) {
	for {
		headTail := rb.headTail.Load()
		head, tail := rb.unpack(headTail)

		if head == tail {
			return *new(T), false
		}

		s := &rb.buffer[tail&rb.capMask]

		if !s.dataReady.Load() {
			runtime.Gosched()
			continue
		}

		if !rb.headTail.CompareAndSwap(headTail, rb.pack(head, tail+1)) {
			runtime.Gosched()
			continue
		}

		item := s.data
		s.dataReady.Store(false)

		return item, true
	}
}

// Write adds an item to the [RingBuffer].
// It blocks until the buffer is not full.
//
// Returns [ErrClosed] if the [RingBuffer] is closed.
func (rb *RingBuffer[T]) Write(item T) error {
	if rb.closed.Load() {
		return ErrClosed
	}

	for !rb.push(item) {
		runtime.Gosched()

		if rb.push(item) {
			break
		}

		rb.mux.Lock()

		rb.isFull.Store(true)

		if rb.closed.Load() {
			rb.mux.Unlock()
			return ErrClosed
		}

		rb.notFull.Wait()
		rb.mux.Unlock()
	}

	if rb.isEmpty.Load() {
		rb.mux.Lock()
		rb.notEmpty.Broadcast()
		rb.isEmpty.Store(false)
		rb.mux.Unlock()
	}

	return nil
}

// Read retrieves an item from the [RingBuffer].
// It blocks until the buffer is not empty.
//
// Returns [ErrClosed] if the [RingBuffer] is closed.
func (rb *RingBuffer[T]) Read() (T, error) {
	var item T
	var ok bool

	for {
		item, ok = rb.pop()
		if ok {
			break
		}

		runtime.Gosched()

		item, ok = rb.pop()
		if ok {
			break
		}

		rb.mux.Lock()

		rb.isEmpty.Store(true)

		if rb.closed.Load() {
			rb.mux.Unlock()
			return item, ErrClosed
		}

		rb.notEmpty.Wait()
		rb.mux.Unlock()
	}

	if rb.isFull.Load() {
		rb.mux.Lock()
		rb.notFull.Broadcast()
		rb.isFull.Store(false)
		rb.mux.Unlock()
	}

	return item, nil
}

// Close marks the [RingBuffer] as closed and wakes up blocked
// readers and writers.
func (rb *RingBuffer[T]) Close() {
	if !rb.closed.CompareAndSwap(false, true) {
		return
	}

	rb.mux.Lock()
	rb.notEmpty.Broadcast()
	rb.notFull.Broadcast()
	rb.mux.Unlock()
}
