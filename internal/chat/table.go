package chat

import (
	"errors"
	"time"

	"github.com/dcrodman/epchat/internal/reactor"
)

// ErrTableFull is returned by allocate when every client slot is in use.
var ErrTableFull = errors.New("chat: connection table is full")

// connection is one slot of the connection table. Slots are reused; release
// resets every logical field but keeps the allocated buffers around.
type connection struct {
	slot   int
	active bool
	fd     int
	peer   string

	// identity is empty until the connection logs in.
	identity string
	state    connState

	recv *recvBuffer
	// pending holds a public message between the read that produced it and
	// the write-ready wakeup that broadcasts it.
	pending []byte
	outbox  *outbox

	// armed is true exactly when fd is registered with the poller, and
	// watched is the interest it is registered with.
	armed        bool
	watched      reactor.Interest
	lastActivity time.Time
}

// table is a fixed-capacity array of connection slots. The last slot is
// reserved for the listening socket and is never handed out by allocate.
type table struct {
	slots []connection
	byFD  map[int]*connection

	recvBufferSize  int
	maxBacklogBytes int
}

func newTable(capacity, recvBufferSize, maxBacklogBytes int) *table {
	t := &table{
		slots:           make([]connection, capacity),
		byFD:            make(map[int]*connection, capacity),
		recvBufferSize:  recvBufferSize,
		maxBacklogBytes: maxBacklogBytes,
	}
	for i := range t.slots {
		t.slots[i].slot = i
		t.slots[i].fd = -1
	}
	return t
}

// listenerSlot is the handle the listening socket is registered under.
func (t *table) listenerSlot() int { return len(t.slots) - 1 }

// clientSlots is the number of slots available to clients.
func (t *table) clientSlots() int { return len(t.slots) - 1 }

// allocate claims the first free client slot for fd.
func (t *table) allocate(fd int) (*connection, error) {
	for i := 0; i < t.clientSlots(); i++ {
		c := &t.slots[i]
		if c.active {
			continue
		}

		c.active = true
		c.fd = fd
		c.identity = ""
		c.state = stateUnauthenticated
		c.pending = c.pending[:0]
		c.armed = false
		c.watched = 0
		if c.recv == nil {
			c.recv = newRecvBuffer(t.recvBufferSize)
		}
		c.recv.reset()
		if c.outbox == nil {
			c.outbox = newOutbox(t.maxBacklogBytes)
		}
		c.outbox.reset()

		t.byFD[fd] = c
		return c, nil
	}
	return nil, ErrTableFull
}

// release returns the slot to the free pool.
func (t *table) release(c *connection) {
	if !c.active {
		return
	}
	delete(t.byFD, c.fd)
	c.active = false
	c.fd = -1
	c.peer = ""
	c.identity = ""
	c.state = nil
	c.pending = c.pending[:0]
	c.armed = false
	c.watched = 0
	c.lastActivity = time.Time{}
	c.recv.reset()
	c.outbox.reset()
}

// get returns the slot for a handle, or nil if it is out of range or refers to
// the listener.
func (t *table) get(slot int) *connection {
	if slot < 0 || slot >= t.clientSlots() {
		return nil
	}
	return &t.slots[slot]
}

// lookup returns the active connection that owns fd, if any.
func (t *table) lookup(fd int) *connection {
	return t.byFD[fd]
}

// active returns the number of slots in use.
func (t *table) active() int {
	return len(t.byFD)
}

// each calls fn for every active connection in slot order.
func (t *table) each(fn func(c *connection)) {
	for i := 0; i < t.clientSlots(); i++ {
		if t.slots[i].active {
			fn(&t.slots[i])
		}
	}
}

// connectionSnapshot is the loggable view of a connection.
type connectionSnapshot struct {
	Slot         int
	FD           int
	Peer         string
	Identity     string
	State        string
	Armed        bool
	Watched      string
	LastActivity time.Time
	Buffered     int
	Pending      int
}

func (c *connection) snapshot() connectionSnapshot {
	snap := connectionSnapshot{
		Slot:         c.slot,
		FD:           c.fd,
		Peer:         c.peer,
		Identity:     c.identity,
		Armed:        c.armed,
		Watched:      c.watched.String(),
		LastActivity: c.lastActivity,
		Pending:      len(c.pending),
	}
	if c.state != nil {
		snap.State = c.state.String()
	}
	if c.recv != nil {
		snap.Buffered = c.recv.len()
	}
	return snap
}
