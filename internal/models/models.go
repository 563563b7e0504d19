package models

import "encoding/json"

type UserStatus string

const (
	UserStatusOnline  UserStatus = "online"
	UserStatusOffline UserStatus = "offline"
)

// Participant is one connected user within a room. The room directory is
// the sole owner of Participant records; every other component looks them
// up by connection id and works on copies.
type Participant struct {
	ConnID         string     `json:"socketId"`
	Username       string     `json:"username"`
	RoomID         string     `json:"roomId"`
	Status         UserStatus `json:"status"`
	Typing         bool       `json:"typing"`
	CursorPosition int        `json:"cursorPosition"`
	CurrentFile    string     `json:"currentFile,omitempty"`
}

// FileRecord is a client-owned source file. The server relays these
// records between clients and never stores or inspects their content.
type FileRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ChatMessage is a transient chat entry; it is relayed to the room and
// never persisted.
type ChatMessage struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// DrawingRecord is one shape in the shared drawing document. Its contents
// are opaque to the server; only the identifier matters for reconciliation.
type DrawingRecord map[string]json.RawMessage

// DrawingDelta is an incremental change to the drawing document, keyed by
// record id. Updated carries the full new value of each changed record.
type DrawingDelta struct {
	Added   map[string]DrawingRecord `json:"added"`
	Updated map[string]DrawingRecord `json:"updated"`
	Removed map[string]DrawingRecord `json:"removed"`
}

// DrawingSnapshot is the complete drawing document, used to bootstrap a
// newly joined client from an existing peer.
type DrawingSnapshot map[string]DrawingRecord

// Empty reports whether the delta changes nothing.
func (d DrawingDelta) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}
