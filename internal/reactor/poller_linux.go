//go:build linux

package reactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Poller is an edge-triggered epoll instance with a bounded watch set.
// It is not safe for concurrent use.
type Poller struct {
	epfd     int
	limit    int
	watching map[int]Interest
	events   []unix.EpollEvent
}

// NewPoller creates an epoll instance that watches at most limit descriptors
// and reports at most maxEvents of them per Wait.
func NewPoller(limit, maxEvents int) (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &Poller{
		epfd:     epfd,
		limit:    limit,
		watching: make(map[int]Interest, limit),
		events:   make([]unix.EpollEvent, maxEvents),
	}, nil
}

// Register starts watching fd for the conditions in interest. handle is
// returned with every Event for fd.
func (p *Poller) Register(fd int, interest Interest, handle int) error {
	if _, ok := p.watching[fd]; ok {
		return ErrAlreadyArmed
	}
	if len(p.watching) >= p.limit {
		return ErrTooManyDescriptors
	}

	ev := unix.EpollEvent{Events: unix.EPOLLET | unix.EPOLLRDHUP}
	if interest&Readable != 0 {
		ev.Events |= unix.EPOLLIN
	}
	if interest&Writable != 0 {
		ev.Events |= unix.EPOLLOUT
	}
	// The kernel hands the data word back untouched; it carries the handle,
	// not the descriptor.
	ev.Fd = int32(handle)

	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add fd %d: %w", fd, err)
	}
	p.watching[fd] = interest
	return nil
}

// Rearm replaces the watch on fd with a fresh one for interest. Because the
// descriptor is re-added, a condition that is already true is reported again.
func (p *Poller) Rearm(fd int, interest Interest, handle int) error {
	if err := p.Deregister(fd); err != nil {
		return err
	}
	return p.Register(fd, interest, handle)
}

// Deregister stops watching fd. It is a no-op for descriptors that aren't
// being watched.
func (p *Poller) Deregister(fd int) error {
	if _, ok := p.watching[fd]; !ok {
		return nil
	}
	delete(p.watching, fd)
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del fd %d: %w", fd, err)
	}
	return nil
}

// Watching reports whether fd is registered and with which interest.
func (p *Poller) Watching(fd int) (Interest, bool) {
	i, ok := p.watching[fd]
	return i, ok
}

// Len returns the number of watched descriptors.
func (p *Poller) Len() int {
	return len(p.watching)
}

// Wait blocks until at least one watched descriptor is ready or timeout
// elapses. The returned slice is only valid until the next call. A wait
// interrupted by a signal returns no events and no error.
func (p *Poller) Wait(timeout time.Duration) ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.events, waitMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("epoll wait: %w", err)
	}

	ready := make([]Event, n)
	for i := 0; i < n; i++ {
		raw := p.events[i]
		ready[i] = Event{
			Handle:   int(raw.Fd),
			Readable: raw.Events&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			Writable: raw.Events&unix.EPOLLOUT != 0,
		}
	}
	return ready, nil
}

// waitMillis converts timeout to whole milliseconds, rounding up so that a
// positive timeout never becomes a non-blocking poll. Negative waits forever.
func waitMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := timeout / time.Millisecond
	if timeout%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}

// Close releases the epoll instance. Watched descriptors are not closed.
func (p *Poller) Close() error {
	p.watching = nil
	return unix.Close(p.epfd)
}
