package relay

import (
	"errors"
	"time"
)

var (
	ErrDuplicateConn = errors.New("connection already registered")
	ErrDuplicateID   = errors.New("client id already registered")
)

// Conn is the live transport a registry entry is bound to.
//
// Send must not block: implementations queue the frame or fail. Open reports
// whether the underlying transport can still accept frames.
type Conn interface {
	Send(data []byte) error
	Open() bool
}

// Entry is one live client session. All fields are fixed at connect time.
type Entry struct {
	ID          string
	Name        string
	RemoteAddr  string
	UserAgent   string
	ConnectedAt time.Time

	conn Conn
}

// Conn returns the transport the entry owns.
func (e *Entry) Conn() Conn { return e.conn }

// Registry is the ordered set of live entries. Insertion order is the roster
// order and removal keeps the relative order of the rest.
//
// Registry does no locking; it is owned by a single Relay, which in turn is
// only driven from the Manager loop.
type Registry struct {
	entries []*Entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends e. A second entry for the same connection or the same id is
// rejected.
func (r *Registry) Add(e *Entry) error {
	for _, existing := range r.entries {
		if existing.conn == e.conn {
			return ErrDuplicateConn
		}
		if existing.ID == e.ID {
			return ErrDuplicateID
		}
	}
	r.entries = append(r.entries, e)
	return nil
}

// Remove deletes the entry bound to both conn and id. It reports whether an
// entry was removed; an unmatched call is a no-op.
func (r *Registry) Remove(conn Conn, id string) bool {
	for i, e := range r.entries {
		if e.conn == conn && e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// List returns a snapshot of the entries in roster order. The caller may keep
// the slice; later registry changes do not affect it.
func (r *Registry) List() []*Entry {
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Registry) FindByID(id string) (*Entry, bool) {
	for _, e := range r.entries {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

func (r *Registry) FindByConn(conn Conn) (*Entry, bool) {
	for _, e := range r.entries {
		if e.conn == conn {
			return e, true
		}
	}
	return nil, false
}

func (r *Registry) Len() int {
	return len(r.entries)
}
