package relay

import "strings"

// Wire tokens of the inbound text protocol.
const (
	pingFrame         = "ping"
	pongFrame         = "pong"
	adminCommandToken = "/admin_message"
	commandDelimiter  = ":"
)

// CommandKind classifies an inbound frame.
type CommandKind int

const (
	KindPlainBroadcast CommandKind = iota
	KindPing
	KindAdminMessage
)

func (k CommandKind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindAdminMessage:
		return "admin_message"
	default:
		return "broadcast"
	}
}

// Command is the decoded form of one inbound text frame.
type Command struct {
	Kind CommandKind

	// Target names the recipient of an admin message. It is only meaningful
	// when ToAll is false.
	Target string
	// ToAll is set when the admin command carried an empty target field.
	ToAll bool
	Body  string

	hasTarget bool
}

// Valid reports whether an admin command can be dispatched: the target
// field must be present (it may be empty) and the body must not be blank.
// Other kinds are always valid.
func (c Command) Valid() bool {
	if c.Kind != KindAdminMessage {
		return true
	}
	return c.hasTarget && c.Body != ""
}

// ParseCommand decodes raw into a Command.
//
// The admin syntax is /admin_message:<target>:<body>. Only the first two
// delimiters split fields, so the body may itself contain colons. A target
// field that is exactly empty addresses every connection; a non-empty one
// is trimmed and matched against client ids.
func ParseCommand(raw string) Command {
	if raw == pingFrame {
		return Command{Kind: KindPing}
	}

	fields := strings.SplitN(raw, commandDelimiter, 3)
	if strings.ToLower(strings.TrimSpace(fields[0])) != adminCommandToken {
		return Command{Kind: KindPlainBroadcast, Body: raw}
	}

	cmd := Command{Kind: KindAdminMessage}
	if len(fields) > 1 {
		cmd.hasTarget = true
		cmd.ToAll = fields[1] == ""
		cmd.Target = strings.TrimSpace(fields[1])
	}
	if len(fields) > 2 {
		cmd.Body = strings.TrimSpace(fields[2])
	}
	return cmd
}
