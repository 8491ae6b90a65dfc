// Package reactor wraps the operating system's readiness notification
// facility. Descriptors are watched edge-triggered: a handler woken for a
// condition must drain the descriptor until it reports EAGAIN or it will not
// be woken again for that condition.
package reactor

import "errors"

// Interest is the set of readiness conditions requested for a descriptor.
type Interest uint32

const (
	Readable Interest = 1 << iota
	Writable
)

func (i Interest) String() string {
	switch i {
	case Readable:
		return "read"
	case Writable:
		return "write"
	case Readable | Writable:
		return "read|write"
	}
	return "none"
}

var (
	// ErrAlreadyArmed is returned by Register for a descriptor that is
	// already being watched.
	ErrAlreadyArmed = errors.New("reactor: descriptor already armed")
	// ErrTooManyDescriptors is returned by Register once the watch set is full.
	ErrTooManyDescriptors = errors.New("reactor: watch set is full")
)

// Event reports one ready descriptor from a call to Wait.
type Event struct {
	// Handle is the value passed to Register for the descriptor.
	Handle int
	// Readable is set for input, peer hangup and error conditions so that
	// the read path observes the failure on its next read.
	Readable bool
	Writable bool
}
