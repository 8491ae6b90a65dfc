package chat

import (
	"time"

	"github.com/dcrodman/epchat/internal/core/debug"
)

// sweep inspects the next window of client slots and evicts any connection
// that has been armed without activity for longer than the idle timeout. The
// cursor carries over between calls so the whole table is covered over time.
func (s *Server) sweep(now time.Time) {
	idle := s.Config.Sweeper.IdleTimeout
	if idle <= 0 {
		return
	}

	window := s.Config.Sweeper.Window
	if slots := s.table.clientSlots(); window > slots {
		window = slots
	}

	for i := 0; i < window; i++ {
		c := s.table.get(s.sweepCursor)
		s.sweepCursor = (s.sweepCursor + 1) % s.table.clientSlots()

		if !c.active || !c.armed || now.Sub(c.lastActivity) < idle {
			continue
		}
		if s.Config.Debugging.Enabled {
			s.Logger.Debugf("[%s] evicting idle connection:\n%s", s.Name, debug.Dump(c.snapshot()))
		}
		s.disconnect(c, "idle for "+now.Sub(c.lastActivity).Truncate(time.Second).String())
	}
}
