package chat

import (
	"github.com/dcrodman/epchat/internal/reactor"
)

// connState is the per-connection protocol state. ready reacts to a readiness
// event, consume handles one unit of input read while in that state.
type connState interface {
	ready(s *Server, c *connection, ev reactor.Event)
	consume(s *Server, c *connection, unit []byte)
	String() string
}

var (
	stateUnauthenticated connState = unauthenticated{}
	stateAuthenticated   connState = authenticated{}
	stateSending         connState = sending{}
)

type unauthenticated struct{}

func (unauthenticated) ready(s *Server, c *connection, ev reactor.Event) {
	if ev.Readable && c.watched&reactor.Readable != 0 {
		s.receive(c)
	}
}

func (unauthenticated) consume(s *Server, c *connection, unit []byte) { s.login(c, unit) }
func (unauthenticated) String() string { return "unauthenticated" }

type authenticated struct{}

func (authenticated) ready(s *Server, c *connection, ev reactor.Event) {
	if ev.Readable && c.watched&reactor.Readable != 0 {
		s.receive(c)
	}
}

func (authenticated) consume(s *Server, c *connection, unit []byte) {
	switch {
	case isPrivateMessage(unit):
		s.whisper(c, unit)
	case isListCommand(unit):
		s.reply(c, rosterMessage(s.roster.names()))
	default:
		c.pending = append(c.pending, publicMessage(c.identity, unit)...)
	}
}

func (authenticated) String() string { return "authenticated" }

// sending is an authenticated connection waiting for write readiness to
// broadcast the public message it just read.
type sending struct{}

func (sending) ready(s *Server, c *connection, ev reactor.Event) {
	if ev.Writable && c.watched&reactor.Writable != 0 {
		s.completeBroadcast(c)
	}
}

// consume is never reached: a sending connection is not armed for read.
func (sending) consume(s *Server, c *connection, unit []byte) {}
func (sending) String() string { return "sending" }
