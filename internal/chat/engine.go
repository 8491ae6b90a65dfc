package chat

import (
	"bytes"
	"fmt"

	"github.com/dcrodman/epchat/internal/reactor"
)

// watch arms c for interest, replacing any existing registration. The
// connection's activity clock restarts with every arm.
func (s *Server) watch(c *connection, interest reactor.Interest) error {
	var err error
	if c.armed {
		err = s.poller.Rearm(c.fd, interest, c.slot)
	} else {
		err = s.poller.Register(c.fd, interest, c.slot)
	}
	if err != nil {
		// Rearm may have deregistered before failing.
		if _, c.armed = s.poller.Watching(c.fd); !c.armed {
			c.watched = 0
		}
		return err
	}
	c.armed = true
	c.watched = interest
	c.lastActivity = s.now()
	return nil
}

func (s *Server) unwatch(c *connection) {
	if !c.armed {
		return
	}
	if err := s.poller.Deregister(c.fd); err != nil {
		s.Logger.Warnf("[%s] error deregistering %s: %v", s.Name, c.peer, err)
	}
	c.armed = false
	c.watched = 0
}

// rearm puts c back into the wait set, dropping the connection if the poller
// refuses it since nothing would ever wake it again.
func (s *Server) rearm(c *connection, interest reactor.Interest) {
	if err := s.watch(c, interest); err != nil {
		s.disconnect(c, fmt.Sprintf("error arming for %v: %v", interest, err))
	}
}

// receive drains the socket, splits what was read into units and feeds each
// one to the connection's current state.
func (s *Server) receive(c *connection) {
	read := 0
	for !c.recv.full() {
		n, err := readConn(c.fd, c.recv.free())
		if err == errWouldBlock {
			break
		} else if err != nil {
			s.disconnect(c, fmt.Sprintf("read error: %v", err))
			return
		} else if n == 0 {
			s.disconnect(c, "connection closed by peer")
			return
		}
		c.recv.advance(n)
		read += n
	}

	if c.recv.full() {
		s.Logger.Debugf("[%s] receive buffer full for %s, processing what was read", s.Name, c.peer)
	}
	if read == 0 {
		s.rearm(c, reactor.Readable)
		return
	}

	for _, unit := range s.frame(c) {
		s.Logger.Debugf("[%s] received %d bytes from %s (%v)", s.Name, len(unit), c.peer, c.state)
		c.state.consume(s, c, unit)
	}

	if len(c.pending) > 0 {
		c.state = stateSending
		s.rearm(c, reactor.Writable)
	} else {
		s.rearm(c, reactor.Readable)
	}
}

// frame cuts the receive buffer into units. By default everything read in one
// drain is a single unit. With line framing each newline terminated line is a
// unit and an unterminated tail stays buffered, unless it fills the buffer.
func (s *Server) frame(c *connection) [][]byte {
	data := c.recv.bytes()
	if !s.Config.Chat.LineFraming || (c.recv.full() && bytes.IndexByte(data, '\n') < 0) {
		unit := append([]byte(nil), data...)
		c.recv.reset()
		return [][]byte{unit}
	}

	var units [][]byte
	consumed := 0
	for {
		i := bytes.IndexByte(data[consumed:], '\n')
		if i < 0 {
			break
		}
		units = append(units, append([]byte(nil), data[consumed:consumed+i+1]...))
		consumed += i + 1
	}
	c.recv.consume(consumed)
	return units
}

func (s *Server) login(c *connection, unit []byte) {
	name, password, ok := parseLogin(unit, s.Config.Chat.MaxNameLength)
	if !ok {
		s.reply(c, msgMalformedLogin)
		return
	}

	if !s.Credentials.Verify(name, password) {
		s.Logger.Infof("[%s] failed login for %s from %s", s.Name, name, c.peer)
		s.reply(c, msgBadCredentials)
		return
	}

	if s.roster.has(name) {
		s.Logger.Infof("[%s] rejected duplicate login for %s from %s", s.Name, name, c.peer)
		s.reply(c, alreadyLoggedInMessage(name))
		return
	}
	s.roster.add(name, c.fd)
	c.identity = name
	c.state = stateAuthenticated

	s.Logger.Infof("[%s] %s logged in from %s", s.Name, name, c.peer)
	s.broadcast(joinMessage(name, s.roster.len()))
}

func (s *Server) whisper(c *connection, unit []byte) {
	target, body := parsePrivate(unit, s.Config.Chat.MaxNameLength)

	fd, ok := s.roster.find(target)
	if !ok {
		s.reply(c, notFoundMessage(target))
		return
	}

	if err := s.deliver(s.table.lookup(fd), whisperMessage(c.identity, body)); err != nil {
		s.Logger.Warnf("[%s] error delivering private message from %s to %s: %v", s.Name, c.identity, target, err)
		s.reply(c, msgDeliveryFailed)
		return
	}
	s.reply(c, whisperConfirmation(target, body))
}

// completeBroadcast sends the pending public message to everyone and puts the
// connection back to reading.
func (s *Server) completeBroadcast(c *connection) {
	s.broadcast(c.pending)
	c.pending = c.pending[:0]
	c.state = stateAuthenticated
	s.rearm(c, reactor.Readable)
}

// disconnect tears down c. Logged in users are removed from the roster and
// announced to whoever is left.
func (s *Server) disconnect(c *connection, reason string) {
	if !c.active {
		return
	}

	if name, ok := s.roster.remove(c.fd); ok {
		s.broadcast(leaveMessage(name, s.roster.len()))
	}
	c.identity = ""

	s.unwatch(c)
	if err := closeConn(c.fd); err != nil {
		s.Logger.Warnf("[%s] error closing %s: %v", s.Name, c.peer, err)
	}
	delete(s.stalled, c.slot)

	s.Logger.Infof("[%s] disconnected %s: %s", s.Name, c.peer, reason)
	s.table.release(c)
}
