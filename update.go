// Package update implements a latest-wins update channel for a single value.
//
// An update channel pairs one or more [Updater] handles, which replace a
// shared value, with one or more [Receiver] handles, each of which keeps a
// private copy of the value and decides for itself when to pull the latest
// version into that copy:
//
//	rcv, upd := update.New(0)
//
//	go func() {
//	   upd.Update(2)
//	   upd.Update(12)
//	}()
//
//	rcv.Get()  // 0, until the receiver asks for an update
//	rcv.Recv() // pulls the latest value, if there is one
//	rcv.Get()  // 12 (or 2, or 0, depending on timing)
//
// # Latest Wins
//
// An update channel is not a queue. It holds exactly one value, and each call
// to Update replaces it. A receiver that does not call Recv between two
// updates will never observe the first of them. The only guarantee is that a
// call to Recv observes the value of the most recent Update that completed
// before it, and that the sequence of versions a receiver observes never goes
// backward.
//
// # Closure
//
// Each handle holds a counted reference to the shared value. A handle is
// released by calling its Close method, or when it becomes unreachable and is
// collected. Once every Receiver has been released, Update reports
// [ErrClosed], since no one could observe the write. Once every Updater has
// been released and a receiver has pulled the last value written, Recv
// reports [ErrClosed], since no new value can ever arrive.
//
// # Values
//
// Values are copied into and out of the channel by assignment. If T refers to
// mutable data (for example, a slice or a map), values must not be modified
// after being passed to Update, or the channel must be constructed with
// [NewCopy] and a function that makes a deep copy. A channel made by NewCopy
// copies each value on the way in as well as on the way out, so neither
// writers nor receivers share storage with the channel.
package update

import "errors"

// ErrClosed is reported by an update channel when the other side has been
// closed, or when the handle itself was closed.
var ErrClosed = errors.New("update channel is closed")

// ErrCorrupted is reported by an update channel whose shared state was left
// inconsistent by a panic during a locked operation. Once a channel reports
// ErrCorrupted, it will do so for all subsequent operations.
var ErrCorrupted = errors.New("update channel is corrupted")

// A RejectedError is reported by [Updater.Update] when a value could not be
// stored. The error wraps [ErrClosed] or [ErrCorrupted].
type RejectedError[T any] struct {
	Value T     // the value that was not stored
	Err   error // the reason it was rejected
}

func (e *RejectedError[T]) Error() string { return "update rejected: " + e.Err.Error() }

func (e *RejectedError[T]) Unwrap() error { return e.Err }

// New creates a new update channel whose shared value and receiver copy are
// both initialized to init.
func New[T any](init T) (*Receiver[T], *Updater[T]) { return newPair(&cell[T]{x: init}, init) }

// NewZero creates a new update channel initialized to the zero value of T.
func NewZero[T any]() (*Receiver[T], *Updater[T]) {
	var zero T
	return New(zero)
}

// NewCopy creates a new update channel initialized to init, in which each
// value stored in or read out of the shared cell is a copy made by calling
// copy. The caller may modify init, and any value passed to Update, once the
// call returns.
//
// Values are copied on the way in before the channel is locked; if copy
// panics there, the panic propagates to the caller of Update and the channel
// is not affected. Values are copied on the way out while the channel is
// locked, so copy must not call methods of the channel. If copy panics while
// reading, the channel is corrupted and reports [ErrCorrupted] from then on.
//
// NewCopy will panic if copy == nil.
func NewCopy[T any](init T, copy func(T) T) (*Receiver[T], *Updater[T]) {
	if copy == nil {
		panic("update: nil copy function")
	}
	return newPair(&cell[T]{x: copy(init), copy: copy}, copy(init))
}

func newPair[T any](c *cell[T], init T) (*Receiver[T], *Updater[T]) {
	return newReceiver(c, init, 0), newUpdater(c)
}
