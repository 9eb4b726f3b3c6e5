package connector

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_RingBuffer_Sequential(t *testing.T) {
	assert := assert.New(t)

	rb := NewRingBuffer[int](128)
	capacity := int(rb.capacity)

	head, tail := rb.unpack(rb.pack(2048, 1024))
	assert.Equal(uint32(2048), head)
	assert.Equal(uint32(1024), tail)

	for val := range capacity {
		assert.True(rb.push(val))
	}
	assert.False(rb.push(capacity))

	for val := range capacity {
		item, ok := rb.pop()
		assert.True(ok)
		assert.Equal(val, item)
	}
	_, ok := rb.pop()
	assert.False(ok)
}

func Test_RingBuffer_Concurrent(t *testing.T) {
	assert := assert.New(t)

	const (
		itemCount   = 100_000
		producers   = 4
		consumers   = 4
		perProducer = itemCount / producers
		perConsumer = itemCount / consumers
	)

	rb := NewRingBuffer[int](128)

	valueMap := &sync.Map{}
	for val := range itemCount {
		valueMap.Store(val, true)
	}

	pushWg := &sync.WaitGroup{}
	pushWg.Add(producers)

	for idx := range producers {
		go func(idx int) {
			defer pushWg.Done()

			base := idx * perProducer
			for offset := range perProducer {
				assert.NoError(rb.Write(base + offset))
			}
		}(idx)
	}

	popWg := &sync.WaitGroup{}
	popWg.Add(consumers)

	var totalConsumed atomic.Int64

	for range consumers {
		go func() {
			defer popWg.Done()

			for range perConsumer {
				val, err := rb.Read()
				assert.NoError(err)

				assert.True(valueMap.CompareAndSwap(val, true, false))
				totalConsumed.Add(1)
			}
		}()
	}

	pushWg.Wait()
	popWg.Wait()

	assert.Equal(int64(itemCount), totalConsumed.Load())
}

func Test_RingBuffer_Closed(t *testing.T) {
	assert := assert.New(t)

	rb := NewRingBuffer[int](16)

	assert.NoError(rb.Write(42))

	rb.Close()

	assert.ErrorIs(rb.Write(43), ErrClosed)

	// A closed empty buffer unblocks readers with ErrClosed
	item, ok := rb.pop()
	assert.True(ok)
	assert.Equal(42, item)

	_, err := rb.Read()
	assert.ErrorIs(err, ErrClosed)
}

func Test_Channel(t *testing.T) {
	assert := assert.New(t)

	ch := NewChannel[int](8)

	for val := range 8 {
		assert.NoError(ch.Write(val))
	}

	for val := range 8 {
		item, err := ch.Read()
		assert.NoError(err)
		assert.Equal(val, item)
	}

	assert.NoError(ch.Write(100))
	ch.Close()

	assert.ErrorIs(ch.Write(101), ErrClosed)

	// Buffered items survive the close
	item, err := ch.Read()
	assert.NoError(err)
	assert.Equal(100, item)

	_, err = ch.Read()
	assert.ErrorIs(err, ErrClosed)
}
