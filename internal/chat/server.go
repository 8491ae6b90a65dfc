// Package chat is a single-threaded chat server driven by an edge-triggered
// reactor. Users log in with a name and password, then chat publicly, whisper
// with @name, and list who is online with /list.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dcrodman/epchat/internal/core"
	"github.com/dcrodman/epchat/internal/core/auth"
	"github.com/dcrodman/epchat/internal/core/debug"
	"github.com/dcrodman/epchat/internal/reactor"
)

// errConnectionAborted is returned by accept for a connection the peer reset
// before it was accepted. The rest of the backlog is still acceptable.
var errConnectionAborted = errors.New("chat: connection aborted before accept")

// Seam for tests.
var acceptConnection = acceptConn

// Server is the chat server. All connection state is owned by the goroutine
// that calls Run; nothing here is safe for concurrent use.
type Server struct {
	Name        string
	Config      *core.Config
	Logger      *logrus.Logger
	Credentials auth.Verifier

	now func() time.Time

	poller   *reactor.Poller
	table    *table
	roster   *roster
	listenFD int
	addr     *net.TCPAddr

	sweepCursor int
	// stalled holds the slots of connections with queued outbound bytes.
	stalled map[int]struct{}
	closed  bool
}

// Init binds the listening socket and sets up the poller. Any error here is
// fatal; Run must not be called if Init fails.
func (s *Server) Init(ctx context.Context) error {
	if s.Config == nil || s.Logger == nil || s.Credentials == nil {
		return errors.New("chat: server requires a config, logger, and credential verifier")
	}
	if s.Name == "" {
		s.Name = "CHAT"
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.table = newTable(s.Config.MaxConnections, s.Config.Chat.ReceiveBufferSize, s.Config.Chat.MaxBacklogBytes)
	s.roster = newRoster()
	s.stalled = make(map[int]struct{})

	poller, err := reactor.NewPoller(s.Config.MaxConnections, s.Config.Reactor.MaxEvents)
	if err != nil {
		return fmt.Errorf("error creating poller: %w", err)
	}
	s.poller = poller

	fd, addr, err := listenTCP(s.Config.ListenAddress())
	if err != nil {
		_ = s.poller.Close()
		return fmt.Errorf("error listening on %s: %w", s.Config.ListenAddress(), err)
	}
	s.listenFD, s.addr = fd, addr

	if err := s.poller.Register(s.listenFD, reactor.Readable, s.table.listenerSlot()); err != nil {
		_ = closeConn(s.listenFD)
		_ = s.poller.Close()
		return fmt.Errorf("error registering listener: %w", err)
	}
	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Run services connections until ctx is cancelled, then closes every
// connection and releases the server's resources.
func (s *Server) Run(ctx context.Context) error {
	if s.poller == nil {
		return errors.New("chat: Run called before Init")
	}
	defer s.shutdown()

	s.Logger.Infof("[%s] waiting for connections on %v", s.Name, s.addr)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := s.step(s.Config.Reactor.PollTimeout); err != nil {
			return err
		}
	}
}

// step runs one iteration of the loop: sweep, flush, wait, dispatch.
func (s *Server) step(timeout time.Duration) error {
	s.sweep(s.now())
	s.flushOutboxes()

	events, err := s.poller.Wait(timeout)
	if err != nil {
		return fmt.Errorf("error waiting for events: %w", err)
	}
	for _, ev := range events {
		s.dispatch(ev)
	}
	return nil
}

func (s *Server) dispatch(ev reactor.Event) {
	if ev.Handle == s.table.listenerSlot() {
		if ev.Readable {
			s.acceptAll()
		}
		return
	}

	c := s.table.get(ev.Handle)
	if c == nil || !c.active || !c.armed {
		return
	}
	c.state.ready(s, c, ev)
}

// acceptAll accepts every pending connection. When the table is full the new
// connection is closed and the rest of the backlog still gets drained.
func (s *Server) acceptAll() {
	for {
		fd, peer, err := acceptConnection(s.listenFD)
		if err == errWouldBlock {
			return
		} else if err == errConnectionAborted {
			s.Logger.Debugf("[%s] skipped connection aborted before accept", s.Name)
			continue
		} else if err != nil {
			s.Logger.Warnf("[%s] error accepting connection: %v", s.Name, err)
			return
		}

		c, err := s.table.allocate(fd)
		if err != nil {
			s.Logger.Warnf("[%s] rejected connection from %s: %v", s.Name, peer, err)
			_ = closeConn(fd)
			continue
		}
		c.peer = peer

		if err := s.watch(c, reactor.Readable); err != nil {
			s.Logger.Warnf("[%s] error arming connection from %s: %v", s.Name, peer, err)
			_ = closeConn(fd)
			s.table.release(c)
			continue
		}
		s.Logger.Infof("[%s] accepted connection from %s", s.Name, peer)
	}
}

// shutdown says goodbye to and closes every connection, then the listener and
// the poller. It only runs once.
func (s *Server) shutdown() {
	if s.closed {
		return
	}
	s.closed = true

	s.Logger.Infof("[%s] shutting down with %d connections", s.Name, s.table.active())
	s.table.each(func(c *connection) {
		if s.Config.Debugging.Enabled {
			s.Logger.Debugf("[%s] closing connection:\n%s", s.Name, debug.Dump(c.snapshot()))
		}
		_ = c.outbox.flush(c.fd)
		if _, err := writeConn(c.fd, msgShutdownFarewell); err != nil {
			s.Logger.Debugf("[%s] error sending farewell to %s: %v", s.Name, c.peer, err)
		}
		s.unwatch(c)
		_ = closeConn(c.fd)
		s.table.release(c)
	})
	s.roster.clear()
	s.stalled = make(map[int]struct{})

	if err := s.poller.Deregister(s.listenFD); err != nil {
		s.Logger.Warnf("[%s] error deregistering listener: %v", s.Name, err)
	}
	if n := s.poller.Len(); n != 0 {
		s.Logger.Warnf("[%s] closing poller with %d descriptors still watched", s.Name, n)
	}
	if err := closeConn(s.listenFD); err != nil {
		s.Logger.Warnf("[%s] error closing listener: %v", s.Name, err)
	}
	if err := s.poller.Close(); err != nil {
		s.Logger.Warnf("[%s] error closing poller: %v", s.Name, err)
	}
}
