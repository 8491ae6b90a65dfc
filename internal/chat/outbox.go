package chat

import (
	"errors"

	"github.com/eapache/queue"
)

// ErrBacklogFull is returned when queueing a message would push a peer's
// unsent bytes past the configured limit.
var ErrBacklogFull = errors.New("chat: outbound backlog is full")

var errWouldBlock = errors.New("chat: operation would block")

type chunk struct {
	b []byte
}

// outbox holds the bytes a peer's socket would not accept yet, in the order
// they were sent.
type outbox struct {
	chunks *queue.Queue
	size   int
	limit  int
}

func newOutbox(limit int) *outbox {
	return &outbox{chunks: queue.New(), limit: limit}
}

func (o *outbox) empty() bool { return o.chunks.Length() == 0 }

// push queues a copy of p.
func (o *outbox) push(p []byte) error {
	if o.size+len(p) > o.limit {
		return ErrBacklogFull
	}
	o.chunks.Add(&chunk{b: append([]byte(nil), p...)})
	o.size += len(p)
	return nil
}

// flush writes queued chunks to fd until the queue is empty or the socket
// would block. A partially written chunk keeps its unwritten remainder at the
// head of the queue.
func (o *outbox) flush(fd int) error {
	for o.chunks.Length() > 0 {
		c := o.chunks.Peek().(*chunk)
		n, err := writeConn(fd, c.b)
		c.b = c.b[n:]
		o.size -= n
		if err == errWouldBlock {
			return nil
		} else if err != nil {
			return err
		}
		o.chunks.Remove()
	}
	return nil
}

func (o *outbox) reset() {
	for o.chunks.Length() > 0 {
		o.chunks.Remove()
	}
	o.size = 0
}
