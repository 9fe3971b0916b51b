package relay

import (
	"log/slog"

	"wsrelay/internal/metrics"
)

// Router dispatches decoded commands and server announcements to the
// registry's connections. Every fan-out walks the registry in roster order
// on the calling goroutine.
type Router struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *metrics.RelayMetrics
}

func NewRouter(registry *Registry, logger *slog.Logger, m *metrics.RelayMetrics) *Router {
	return &Router{registry: registry, logger: logger, metrics: m}
}

// Route handles one inbound command from sender.
func (r *Router) Route(cmd Command, sender *Entry) {
	r.metrics.InboundMessages.WithLabelValues(cmd.Kind.String()).Inc()

	switch cmd.Kind {
	case KindPing:
		r.deliver(sender, []byte(pongFrame), "pong")
	case KindAdminMessage:
		r.routeAdmin(cmd, sender)
	default:
		// The sender gets its own notification back.
		r.Broadcast(NewNotification(cmd.Body, sender.ID))
		r.ConsoleMirror(messageAnnouncement(sender.ID, cmd.Body))
	}
}

func (r *Router) routeAdmin(cmd Command, sender *Entry) {
	logger := r.logger.With("client_id", sender.ID)

	if !cmd.Valid() {
		logger.Warn("dropping malformed admin command")
		r.metrics.DroppedCommands.WithLabelValues("malformed").Inc()
		return
	}

	msg := NewAdminMessage(cmd.Body, sender.ID)
	if cmd.ToAll {
		n := r.Broadcast(msg)
		logger.Info("admin message sent to all clients", "text", cmd.Body, "recipients", n)
		return
	}

	target, ok := r.registry.FindByID(cmd.Target)
	if !ok {
		logger.Warn("admin message target not found", "target_id", cmd.Target)
		r.metrics.DroppedCommands.WithLabelValues("unknown_target").Inc()
		return
	}
	if r.Send(target, msg) {
		logger.Info("admin message sent", "target_id", target.ID, "text", cmd.Body)
	}
}

// Broadcast sends env to every registered connection and returns how many
// accepted it.
func (r *Router) Broadcast(env Envelope) int {
	data, err := encodeEnvelope(env)
	if err != nil {
		r.logger.Error("failed to encode envelope", "type", env.EnvelopeType(), "error", err)
		return 0
	}

	sent := 0
	for _, e := range r.registry.List() {
		if r.deliver(e, data, string(env.EnvelopeType())) {
			sent++
		}
	}
	return sent
}

// Send delivers env to a single entry.
func (r *Router) Send(e *Entry, env Envelope) bool {
	data, err := encodeEnvelope(env)
	if err != nil {
		r.logger.Error("failed to encode envelope", "type", env.EnvelopeType(), "error", err)
		return false
	}
	return r.deliver(e, data, string(env.EnvelopeType()))
}

// ConsoleMirror writes text to the process log and relays it to every client.
func (r *Router) ConsoleMirror(text string) {
	r.logger.Info(text)
	r.Broadcast(NewConsoleMessage(text))
}

// RosterSnapshot sends the current roster to every client.
func (r *Router) RosterSnapshot() {
	r.Broadcast(NewOnlineClients(r.registry.List()))
}

// deliver never fails the caller. A closed transport or a rejected frame is
// logged and skipped; the entry stays registered until its close event.
func (r *Router) deliver(e *Entry, data []byte, kind string) bool {
	if !e.conn.Open() {
		r.logger.Debug("skipping send to closed connection", "client_id", e.ID, "type", kind)
		r.metrics.SkippedSends.Inc()
		return false
	}
	if err := e.conn.Send(data); err != nil {
		r.logger.Warn("send failed", "client_id", e.ID, "type", kind, "error", err)
		r.metrics.SkippedSends.Inc()
		return false
	}
	r.metrics.OutboundMessages.WithLabelValues(kind).Inc()
	return true
}
