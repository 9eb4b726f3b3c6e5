// Package connector provides the links used to move items between
// pipeline stages.
package connector

import "errors"

// ErrClosed is returned when reading from or writing to a closed [Connector].
var ErrClosed = errors.New("connector: closed")

// Connector moves items of type T from one stage to another.
type Connector[T any] interface {
	Write(item T) error
	Read() (T, error)
	Close()
}
