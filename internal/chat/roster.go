package chat

import "container/list"

type rosterEntry struct {
	identity string
	fd       int
}

// roster is the set of logged-in users in the order they logged in. Names are
// unique.
type roster struct {
	entries *list.List
	byName  map[string]*list.Element
	byFD    map[int]*list.Element
}

func newRoster() *roster {
	return &roster{
		entries: list.New(),
		byName:  make(map[string]*list.Element),
		byFD:    make(map[int]*list.Element),
	}
}

// add appends a user, returning false if the name is already present.
func (r *roster) add(identity string, fd int) bool {
	if _, ok := r.byName[identity]; ok {
		return false
	}
	e := r.entries.PushBack(rosterEntry{identity: identity, fd: fd})
	r.byName[identity] = e
	r.byFD[fd] = e
	return true
}

// remove drops the user logged in on fd and returns their name.
func (r *roster) remove(fd int) (string, bool) {
	e, ok := r.byFD[fd]
	if !ok {
		return "", false
	}
	entry := r.entries.Remove(e).(rosterEntry)
	delete(r.byName, entry.identity)
	delete(r.byFD, fd)
	return entry.identity, true
}

func (r *roster) has(identity string) bool {
	_, ok := r.byName[identity]
	return ok
}

// find returns the descriptor the named user is logged in on.
func (r *roster) find(identity string) (int, bool) {
	e, ok := r.byName[identity]
	if !ok {
		return -1, false
	}
	return e.Value.(rosterEntry).fd, true
}

func (r *roster) len() int { return r.entries.Len() }

// each visits users in login order.
func (r *roster) each(fn func(identity string, fd int)) {
	for e := r.entries.Front(); e != nil; e = e.Next() {
		entry := e.Value.(rosterEntry)
		fn(entry.identity, entry.fd)
	}
}

// names returns the logged-in users in login order.
func (r *roster) names() []string {
	names := make([]string, 0, r.entries.Len())
	r.each(func(identity string, _ int) {
		names = append(names, identity)
	})
	return names
}

func (r *roster) clear() {
	r.entries.Init()
	r.byName = make(map[string]*list.Element)
	r.byFD = make(map[int]*list.Element)
}
