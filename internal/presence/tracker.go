// Package presence tracks per-participant typing and online status and
// broadcasts every change to the rest of the participant's room.
package presence

import (
	"go.uber.org/zap"

	"codesync/internal/models"
	"codesync/internal/protocol"
	"codesync/internal/room"
)

type Tracker struct {
	dir *room.Directory
	log *zap.Logger
}

func NewTracker(dir *room.Directory, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{dir: dir, log: log}
}

// StartTyping marks the sender as typing at the given cursor position and
// announces it to the rest of the room. Silent no-op for connections that
// have not joined a room.
func (t *Tracker) StartTyping(connID string, cursor int) {
	p, ok := t.dir.SetTyping(connID, true, cursor)
	if !ok {
		return
	}
	t.dir.Broadcast(p.RoomID, connID,
		protocol.NewMessage(protocol.EventTypingStart, protocol.UserPayload{User: p}))
}

// StopTyping clears the typing flag and announces it to the room.
func (t *Tracker) StopTyping(connID string) {
	p, ok := t.dir.SetTyping(connID, false, 0)
	if !ok {
		return
	}
	t.dir.Broadcast(p.RoomID, connID,
		protocol.NewMessage(protocol.EventTypingPause, protocol.UserPayload{User: p}))
}

// SetStatus toggles the status of the connection named in the payload,
// which is not required to be the caller. The change is broadcast to the
// target's room, excluding the caller.
func (t *Tracker) SetStatus(callerID, targetID string, status models.UserStatus) {
	p, ok := t.dir.SetStatus(targetID, status)
	if !ok {
		t.log.Debug("status change for unknown connection", zap.String("connId", targetID))
		return
	}

	name := protocol.EventUserOnline
	if status == models.UserStatusOffline {
		name = protocol.EventUserOffline
	}
	t.dir.Broadcast(p.RoomID, callerID,
		protocol.NewMessage(name, protocol.StatusChange{SocketID: targetID}))
}
