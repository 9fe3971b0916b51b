package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"wsrelay/internal/metrics"
)

const (
	DefaultDisplayName = "New user"
	nameParam          = "name"
	maxIDAttempts      = 8
)

var (
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrIDSpaceExhausted  = errors.New("could not allocate a unique client id")
)

// Options configures a Relay. Zero values fall back to defaults.
type Options struct {
	DefaultName string
	Clock       clockwork.Clock
	Logger      *slog.Logger
	Metrics     *metrics.RelayMetrics
	GenerateID  func() string
}

// Relay binds connections to registry entries and feeds their traffic to the
// router. It is not safe for concurrent use; Manager serializes access.
type Relay struct {
	registry    *Registry
	router      *Router
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *metrics.RelayMetrics
	defaultName string
	generateID  func() string
}

func New(opts Options) *Relay {
	if opts.DefaultName == "" {
		opts.DefaultName = DefaultDisplayName
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRelayMetrics(prometheus.NewRegistry())
	}
	if opts.GenerateID == nil {
		opts.GenerateID = GenerateID
	}

	registry := NewRegistry()
	return &Relay{
		registry:    registry,
		router:      NewRouter(registry, opts.Logger, opts.Metrics),
		clock:       opts.Clock,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		defaultName: opts.DefaultName,
		generateID:  opts.GenerateID,
	}
}

// OnConnect registers a newly accepted connection, announces it and sends
// the updated roster to everyone, the new client included.
func (r *Relay) OnConnect(conn Conn, query url.Values, remoteAddr, userAgent string) (*Entry, error) {
	if existing, ok := r.registry.FindByConn(conn); ok {
		return existing, ErrAlreadyRegistered
	}

	id, err := r.nextID()
	if err != nil {
		return nil, err
	}

	name := query.Get(nameParam)
	if name == "" {
		name = r.defaultName
	}

	entry := &Entry{
		ID:          id,
		Name:        name,
		RemoteAddr:  remoteAddr,
		UserAgent:   userAgent,
		ConnectedAt: r.clock.Now(),
		conn:        conn,
	}
	if err := r.registry.Add(entry); err != nil {
		return nil, fmt.Errorf("register client %s: %w", id, err)
	}
	r.metrics.ActiveConnections.Set(float64(r.registry.Len()))

	r.router.ConsoleMirror(connectAnnouncement(entry, entry.ConnectedAt))
	r.router.RosterSnapshot()
	return entry, nil
}

// OnMessage routes one inbound text frame from conn.
func (r *Relay) OnMessage(conn Conn, raw string) {
	entry, ok := r.registry.FindByConn(conn)
	if !ok {
		r.logger.Warn("dropping message from unregistered connection")
		return
	}
	r.logger.Info("message received", "client_id", entry.ID, "text", raw)

	// ping never reaches the parser and is not mirrored.
	if raw == pingFrame {
		r.router.Route(Command{Kind: KindPing}, entry)
		return
	}
	r.router.Route(ParseCommand(raw), entry)
}

// OnClose unregisters conn and sends the roster to the remaining clients.
// Closing an unknown or already closed connection does nothing.
func (r *Relay) OnClose(conn Conn) {
	entry, ok := r.registry.FindByConn(conn)
	if !ok {
		return
	}

	r.router.ConsoleMirror(disconnectAnnouncement(entry, r.clock.Now()))
	r.registry.Remove(conn, entry.ID)
	r.metrics.ActiveConnections.Set(float64(r.registry.Len()))
	r.router.RosterSnapshot()
}

// Announce mirrors a server-originated line to every client.
func (r *Relay) Announce(text string) {
	r.router.ConsoleMirror(text)
}

func (r *Relay) ClientCount() int {
	return r.registry.Len()
}

// Roster returns the current entries in roster order.
func (r *Relay) Roster() []*Entry {
	return r.registry.List()
}

// nextID draws ids until one is free. Random ids make a collision unlikely,
// but the registry requires uniqueness so it is checked here.
func (r *Relay) nextID() (string, error) {
	for range maxIDAttempts {
		id := r.generateID()
		if _, taken := r.registry.FindByID(id); !taken {
			return id, nil
		}
		r.logger.Warn("generated client id collides with a live client, retrying", "client_id", id)
	}
	return "", ErrIDSpaceExhausted
}
