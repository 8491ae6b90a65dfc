package chat

import "errors"

var errOffline = errors.New("chat: recipient is not connected")

// deliver sends msg to c without blocking. Whatever the socket won't take now
// is queued and written by later loop iterations.
func (s *Server) deliver(c *connection, msg []byte) error {
	if c == nil || !c.active {
		return errOffline
	}

	if c.outbox.empty() {
		n, err := writeConn(c.fd, msg)
		if err == nil {
			return nil
		} else if err != errWouldBlock {
			return err
		}
		msg = msg[n:]
	}

	if err := c.outbox.push(msg); err != nil {
		return err
	}
	s.stalled[c.slot] = struct{}{}
	return nil
}

// reply sends a message back to the connection that caused it.
func (s *Server) reply(c *connection, msg []byte) {
	if err := s.deliver(c, msg); err != nil {
		s.Logger.Warnf("[%s] error replying to %s: %v", s.Name, c.peer, err)
	}
}

// broadcast delivers msg to every logged in user. A failure for one user
// doesn't stop delivery to the rest.
func (s *Server) broadcast(msg []byte) {
	s.roster.each(func(identity string, fd int) {
		if err := s.deliver(s.table.lookup(fd), msg); err != nil {
			s.Logger.Warnf("[%s] error broadcasting to %s: %v", s.Name, identity, err)
		}
	})
}

// flushOutboxes retries queued writes for every peer that fell behind.
func (s *Server) flushOutboxes() {
	for slot := range s.stalled {
		c := s.table.get(slot)
		if c == nil || !c.active {
			delete(s.stalled, slot)
			continue
		}
		if err := c.outbox.flush(c.fd); err != nil {
			s.disconnect(c, "write error: "+err.Error())
			continue
		}
		if c.outbox.empty() {
			delete(s.stalled, slot)
		}
	}
}
