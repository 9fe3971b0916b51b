// manager.go

// Central event loop. The manager owns the Relay and handles connection
// registration, unregistration, inbound messages and announcements one at a
// time, so the registry is never observed mid-update.
package relay

import (
	"context"
	"errors"
	"net/url"
)

var ErrManagerStopped = errors.New("relay manager stopped")

type registration struct {
	conn       Conn
	query      url.Values
	remoteAddr string
	userAgent  string
	reply      chan registrationResult
}

type registrationResult struct {
	entry *Entry
	err   error
}

type inboundMessage struct {
	conn Conn
	raw  string
}

// Manager serializes every entry point onto one goroutine. The channels are
// unbuffered so events submitted by a single connection are handled in the
// order that connection produced them.
type Manager struct {
	relay *Relay

	register   chan registration
	unregister chan Conn
	inbound    chan inboundMessage
	announce   chan string
	count      chan chan int

	done chan struct{}
}

func NewManager(relay *Relay) *Manager {
	return &Manager{
		relay:      relay,
		register:   make(chan registration),
		unregister: make(chan Conn),
		inbound:    make(chan inboundMessage),
		announce:   make(chan string),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled. After Run returns every
// entry point returns immediately.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case reg := <-m.register:
			entry, err := m.relay.OnConnect(reg.conn, reg.query, reg.remoteAddr, reg.userAgent)
			reg.reply <- registrationResult{entry: entry, err: err}

		case conn := <-m.unregister:
			m.relay.OnClose(conn)

		case msg := <-m.inbound:
			m.relay.OnMessage(msg.conn, msg.raw)

		case text := <-m.announce:
			m.relay.Announce(text)

		case reply := <-m.count:
			reply <- m.relay.ClientCount()

		case <-ctx.Done():
			return
		}
	}
}

// Done is closed once Run has returned.
func (m *Manager) Done() <-chan struct{} { return m.done }

// OnConnect registers conn and waits for the assigned entry.
func (m *Manager) OnConnect(conn Conn, query url.Values, remoteAddr, userAgent string) (*Entry, error) {
	reply := make(chan registrationResult, 1)
	select {
	case m.register <- registration{conn: conn, query: query, remoteAddr: remoteAddr, userAgent: userAgent, reply: reply}:
	case <-m.done:
		return nil, ErrManagerStopped
	}

	select {
	case res := <-reply:
		return res.entry, res.err
	case <-m.done:
		return nil, ErrManagerStopped
	}
}

// OnMessage hands one inbound frame to the loop.
func (m *Manager) OnMessage(conn Conn, raw string) {
	select {
	case m.inbound <- inboundMessage{conn: conn, raw: raw}:
	case <-m.done:
	}
}

// OnClose hands a close event to the loop.
func (m *Manager) OnClose(conn Conn) {
	select {
	case m.unregister <- conn:
	case <-m.done:
	}
}

// Announce mirrors text to every connected client.
func (m *Manager) Announce(text string) {
	select {
	case m.announce <- text:
	case <-m.done:
	}
}

// ClientCount returns the registry size, or 0 once the loop has stopped.
func (m *Manager) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case m.count <- reply:
	case <-m.done:
		return 0
	}

	select {
	case n := <-reply:
		return n
	case <-m.done:
		return 0
	}
}
