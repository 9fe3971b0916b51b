package relay

import "encoding/json"

// EnvelopeType is the "type" discriminator of every outbound JSON frame.
type EnvelopeType string

const (
	TypeConsoleMessage EnvelopeType = "console_message"
	TypeOnlineClients  EnvelopeType = "online_clients"
	TypeNotification   EnvelopeType = "notification"
	TypeAdminMessage   EnvelopeType = "admin_message"
)

// Envelope is an outbound payload. It is encoded once per broadcast and the
// same bytes go to every recipient.
type Envelope interface {
	EnvelopeType() EnvelopeType
}

// ConsoleMessage mirrors an operational log line to clients.
type ConsoleMessage struct {
	Type EnvelopeType `json:"type"`
	Text string       `json:"text"`
}

func NewConsoleMessage(text string) ConsoleMessage {
	return ConsoleMessage{Type: TypeConsoleMessage, Text: text}
}

func (m ConsoleMessage) EnvelopeType() EnvelopeType { return m.Type }

// RosterEntry is the public view of one connected client.
type RosterEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UserAgent string `json:"userAgent"`
}

// OnlineClients is the roster snapshot, in connection order.
type OnlineClients struct {
	Type    EnvelopeType  `json:"type"`
	Clients []RosterEntry `json:"clients"`
}

// NewOnlineClients builds a roster snapshot from registry entries. An empty
// registry encodes as an empty array, never null.
func NewOnlineClients(entries []*Entry) OnlineClients {
	clients := make([]RosterEntry, 0, len(entries))
	for _, e := range entries {
		clients = append(clients, RosterEntry{ID: e.ID, Name: e.Name, UserAgent: e.UserAgent})
	}
	return OnlineClients{Type: TypeOnlineClients, Clients: clients}
}

func (m OnlineClients) EnvelopeType() EnvelopeType { return m.Type }

// Notification carries a plain broadcast from a peer.
type Notification struct {
	Type     EnvelopeType `json:"type"`
	Text     string       `json:"text"`
	ClientID string       `json:"clientId"`
}

func NewNotification(text, senderID string) Notification {
	return Notification{Type: TypeNotification, Text: text, ClientID: senderID}
}

func (m Notification) EnvelopeType() EnvelopeType { return m.Type }

// AdminMessage carries an administrator directive.
type AdminMessage struct {
	Type          EnvelopeType `json:"type"`
	Text          string       `json:"text"`
	AdminSenderID string       `json:"adminSenderId"`
}

func NewAdminMessage(text, senderID string) AdminMessage {
	return AdminMessage{Type: TypeAdminMessage, Text: text, AdminSenderID: senderID}
}

func (m AdminMessage) EnvelopeType() EnvelopeType { return m.Type }

func encodeEnvelope(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}
