//go:build !linux

package reactor

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("reactor: this platform is not supported")

// Poller is only implemented on Linux.
type Poller struct{}

// NewPoller returns an error on platforms without epoll.
func NewPoller(limit, maxEvents int) (*Poller, error) {
	return nil, errUnsupported
}

func (p *Poller) Register(fd int, interest Interest, handle int) error { return errUnsupported }
func (p *Poller) Rearm(fd int, interest Interest, handle int) error { return errUnsupported }
func (p *Poller) Deregister(fd int) error { return nil }
func (p *Poller) Watching(fd int) (Interest, bool) { return 0, false }
func (p *Poller) Len() int { return 0 }
func (p *Poller) Wait(timeout time.Duration) ([]Event, error) { return nil, errUnsupported }
func (p *Poller) Close() error { return nil }
