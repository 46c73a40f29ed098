// Package domain contains core concepts of the chat system.
// This file defines Message records and the private addressing rule.
// Messages are immutable once appended to the log.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PrivateMarker prefixes a body addressed to a single user.
const PrivateMarker = "@"

// Message represents an immutable chat entry.
type Message struct {
	Seq       uint64    // position in the log, assigned on append
	ID        uuid.UUID // unique identifier
	Author    string
	Body      string // already filtered
	CreatedAt time.Time
}

// IsPrivate reports whether the body starts with the private marker.
func (m Message) IsPrivate() bool {
	return strings.HasPrefix(m.Body, PrivateMarker)
}

// Recipient returns the addressed username of a private message.
// The first whitespace-delimited token is taken and the marker stripped.
// ok is false for public messages; a bare "@" yields ok with an empty name.
func (m Message) Recipient() (name string, ok bool) {
	if !m.IsPrivate() {
		return "", false
	}
	fields := strings.Fields(m.Body)
	if len(fields) == 0 {
		return "", true
	}
	return strings.TrimPrefix(fields[0], PrivateMarker), true
}
