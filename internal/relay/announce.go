package relay

import (
	"fmt"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

func connectAnnouncement(e *Entry, at time.Time) string {
	return fmt.Sprintf("New client connected. ID: %s, Name: %s, IP: %s, User-Agent: %s, Time: %s",
		e.ID, e.Name, e.RemoteAddr, e.UserAgent, at.Format(timeLayout))
}

func disconnectAnnouncement(e *Entry, at time.Time) string {
	return fmt.Sprintf("Client disconnected. ID: %s, Name: %s, Time: %s", e.ID, e.Name, at.Format(timeLayout))
}

func messageAnnouncement(senderID, text string) string {
	return fmt.Sprintf("Message received from client ID %s: %s", senderID, text)
}

// StartupAnnouncement is the line mirrored once the listener is up.
func StartupAnnouncement(port int, at time.Time) string {
	return fmt.Sprintf("Server started on http://localhost:%d, Time: %s", port, at.Format(timeLayout))
}
