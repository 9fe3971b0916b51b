package relay

import (
	"net/url"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, r *Relay, name string) (*fakeConn, *Entry) {
	t.Helper()
	conn := &fakeConn{}
	query := url.Values{}
	if name != "" {
		query.Set("name", name)
	}
	entry, err := r.OnConnect(conn, query, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	return conn, entry
}

func resetAll(conns ...*fakeConn) {
	for _, c := range conns {
		c.reset()
	}
}

func rosterIDs(t *testing.T, msg map[string]any) []string {
	t.Helper()
	require.Equal(t, "online_clients", msg["type"])
	clients, ok := msg["clients"].([]any)
	require.True(t, ok, "clients must be an array")
	out := make([]string, 0, len(clients))
	for _, c := range clients {
		out = append(out, c.(map[string]any)["id"].(string))
	}
	return out
}

func TestOnConnect_AnnouncesThenSendsRoster(t *testing.T) {
	r, m := newTestRelay(t)

	alice, entry := connect(t, r, "Alice")
	assert.Equal(t, "c1", entry.ID)
	assert.Equal(t, "Alice", entry.Name)
	assert.Equal(t, "10.0.0.1", entry.RemoteAddr)
	assert.Equal(t, testNow, entry.ConnectedAt)

	msgs := alice.messages(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, map[string]any{
		"type": "console_message",
		"text": "New client connected. ID: c1, Name: Alice, IP: 10.0.0.1, User-Agent: test-agent, Time: 2026-01-02 03:04:05",
	}, msgs[0])
	assert.Equal(t, map[string]any{
		"type": "online_clients",
		"clients": []any{
			map[string]any{"id": "c1", "name": "Alice", "userAgent": "test-agent"},
		},
	}, msgs[1])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveConnections))
}

func TestOnConnect_RosterGoesToEveryone(t *testing.T) {
	r, _ := newTestRelay(t)
	alice, _ := connect(t, r, "Alice")
	resetAll(alice)

	bob, _ := connect(t, r, "")

	for _, conn := range []*fakeConn{alice, bob} {
		msgs := conn.messages(t)
		require.Len(t, msgs, 2)
		assert.Equal(t, []string{"console_message", "online_clients"}, typesOf(msgs))
		assert.Equal(t, []string{"c1", "c2"}, rosterIDs(t, msgs[1]))
	}

	clients := bob.messages(t)[1]["clients"].([]any)
	assert.Equal(t, DefaultDisplayName, clients[1].(map[string]any)["name"])
}

func TestOnConnect_ConfiguredDefaultName(t *testing.T) {
	r := New(Options{DefaultName: "Guest", Logger: discardLogger(), GenerateID: sequentialIDs()})
	_, entry := connect(t, r, "")
	assert.Equal(t, "Guest", entry.Name)
}

func TestOnConnect_SameConnTwice(t *testing.T) {
	r, _ := newTestRelay(t)
	conn, first := connect(t, r, "Alice")

	again, err := r.OnConnect(conn, url.Values{}, "10.0.0.1", "test-agent")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Same(t, first, again)
	assert.Equal(t, 1, r.ClientCount())
}

func TestOnConnect_RegeneratesCollidingID(t *testing.T) {
	generated := []string{"dup", "dup", "fresh"}
	r := New(Options{Logger: discardLogger(), GenerateID: func() string {
		id := generated[0]
		generated = generated[1:]
		return id
	}})

	_, first := connect(t, r, "")
	_, second := connect(t, r, "")
	assert.Equal(t, "dup", first.ID)
	assert.Equal(t, "fresh", second.ID)
}

func TestOnConnect_GivesUpAfterRepeatedCollisions(t *testing.T) {
	r := New(Options{Logger: discardLogger(), GenerateID: func() string { return "dup" }})
	connect(t, r, "")

	_, err := r.OnConnect(&fakeConn{}, url.Values{}, "", "")
	assert.ErrorIs(t, err, ErrIDSpaceExhausted)
	assert.Equal(t, 1, r.ClientCount())
}

func TestOnClose_AnnouncesAndSendsRosterToRemaining(t *testing.T) {
	r, m := newTestRelay(t)
	alice, _ := connect(t, r, "Alice")
	bob, _ := connect(t, r, "Bob")
	carol, _ := connect(t, r, "Carol")
	resetAll(alice, bob, carol)

	bob.markClosed()
	r.OnClose(bob)

	assert.Empty(t, bob.raw())
	for _, conn := range []*fakeConn{alice, carol} {
		msgs := conn.messages(t)
		require.Len(t, msgs, 2)
		assert.Equal(t, map[string]any{
			"type": "console_message",
			"text": "Client disconnected. ID: c2, Name: Bob, Time: 2026-01-02 03:04:05",
		}, msgs[0])
		assert.Equal(t, []string{"c1", "c3"}, rosterIDs(t, msgs[1]))
	}
	assert.Equal(t, 2, r.ClientCount())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveConnections))
}

func TestOnClose_DuplicateIsNoop(t *testing.T) {
	r, _ := newTestRelay(t)
	alice, _ := connect(t, r, "Alice")
	bob, _ := connect(t, r, "Bob")

	bob.markClosed()
	r.OnClose(bob)
	resetAll(alice)

	r.OnClose(bob)
	r.OnClose(&fakeConn{})

	assert.Empty(t, alice.raw())
	assert.Equal(t, 1, r.ClientCount())
}

func TestOnClose_LastClientLeavesEmptyRegistry(t *testing.T) {
	r, _ := newTestRelay(t)
	alice, _ := connect(t, r, "Alice")
	alice.markClosed()
	r.OnClose(alice)

	assert.Zero(t, r.ClientCount())
	assert.Empty(t, r.Roster())
}

func TestOnMessage_UnregisteredConnIsDropped(t *testing.T) {
	r, _ := newTestRelay(t)
	alice, _ := connect(t, r, "Alice")
	resetAll(alice)

	r.OnMessage(&fakeConn{}, "hello")
	assert.Empty(t, alice.raw())
}

func TestAnnounce_MirrorsToEveryone(t *testing.T) {
	r, _ := newTestRelay(t)
	alice, _ := connect(t, r, "Alice")
	bob, _ := connect(t, r, "Bob")
	resetAll(alice, bob)

	r.Announce(StartupAnnouncement(3000, testNow))

	for _, conn := range []*fakeConn{alice, bob} {
		assert.Equal(t, []map[string]any{{
			"type": "console_message",
			"text": "Server started on http://localhost:3000, Time: 2026-01-02 03:04:05",
		}}, conn.messages(t))
	}
}

func TestRosterReflectsMembershipAfterEveryChange(t *testing.T) {
	r, _ := newTestRelay(t)
	var conns []*fakeConn
	for range 4 {
		c, _ := connect(t, r, "")
		conns = append(conns, c)
	}

	conns[0].markClosed()
	r.OnClose(conns[0])
	conns[2].markClosed()
	r.OnClose(conns[2])
	late, _ := connect(t, r, "")

	msgs := late.messages(t)
	assert.Equal(t, []string{"c2", "c4", "c5"}, rosterIDs(t, msgs[len(msgs)-1]))
	assert.Equal(t, []string{"c2", "c4", "c5"}, ids(r.Roster()))
}
