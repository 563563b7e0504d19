package ws

import (
	"go.uber.org/zap"

	"codesync/internal/models"
	"codesync/internal/presence"
	"codesync/internal/protocol"
	"codesync/internal/relay"
	"codesync/internal/room"
)

// Gateway maps each inbound event to its component. It is the only piece
// of the server that sees raw payloads; everything past Dispatch works
// with validated typed values.
type Gateway struct {
	dir      *room.Directory
	presence *presence.Tracker
	files    *relay.FileRelay
	chat     *relay.ChatRelay
	drawing  *relay.DrawingRelay
	log      *zap.Logger
}

func NewGateway(dir *room.Directory, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		dir:      dir,
		presence: presence.NewTracker(dir, log),
		files:    relay.NewFileRelay(dir, log),
		chat:     relay.NewChatRelay(dir, log),
		drawing:  relay.NewDrawingRelay(dir, log),
		log:      log,
	}
}

// Attach registers a connection's outbound channel.
func (g *Gateway) Attach(connID string) chan protocol.Message {
	return g.dir.Register(connID)
}

// Detach handles transport-level disconnect. The disconnection notice is
// broadcast before the participant's removal is finalized, so the rest of
// the room still learns who left.
func (g *Gateway) Detach(connID string) {
	if p, ok := g.dir.Lookup(connID); ok {
		g.dir.Broadcast(p.RoomID, connID,
			protocol.NewMessage(protocol.EventUserDisconnected, protocol.UserPayload{User: p}))
	}
	g.dir.Leave(connID)
	g.dir.Unregister(connID)
}

// Dispatch routes one inbound event. Malformed or unknown events are
// logged and dropped; the connection stays up.
func (g *Gateway) Dispatch(connID string, ev protocol.Envelope) {
	var err error
	switch ev.Event {
	case protocol.EventJoinRequest:
		err = g.handleJoin(connID, ev)
	case protocol.EventSyncFiles:
		var p protocol.SyncFiles
		if err = decode(ev, &p); err == nil {
			g.files.SyncFiles(p.SocketID, p.Files, p.CurrentFile)
		}
	case protocol.EventFileCreated:
		var p protocol.FilePayload
		if err = decode(ev, &p); err == nil {
			g.files.FileCreated(connID, p.File)
		}
	case protocol.EventFileUpdated:
		var p protocol.FilePayload
		if err = decode(ev, &p); err == nil {
			g.files.FileUpdated(connID, p.File)
		}
	case protocol.EventFileRenamed:
		var p protocol.FilePayload
		if err = decode(ev, &p); err == nil {
			g.files.FileRenamed(connID, p.File)
		}
	case protocol.EventFileDeleted:
		var p protocol.FileDeleted
		if err = decode(ev, &p); err == nil {
			g.files.FileDeleted(connID, p.ID)
		}
	case protocol.EventUserOnline:
		var p protocol.StatusChange
		if err = decode(ev, &p); err == nil {
			g.presence.SetStatus(connID, p.SocketID, models.UserStatusOnline)
		}
	case protocol.EventUserOffline:
		var p protocol.StatusChange
		if err = decode(ev, &p); err == nil {
			g.presence.SetStatus(connID, p.SocketID, models.UserStatusOffline)
		}
	case protocol.EventSendMessage:
		var p protocol.MessagePayload
		if err = ev.Decode(&p); err == nil {
			g.chat.Message(connID, p.Message)
		}
	case protocol.EventTypingStart:
		var p protocol.TypingStart
		if err = ev.Decode(&p); err == nil {
			g.presence.StartTyping(connID, p.CursorPosition)
		}
	case protocol.EventTypingPause:
		g.presence.StopTyping(connID)
	case protocol.EventRequestDrawing:
		g.drawing.Request(connID)
	case protocol.EventSyncDrawing:
		var p protocol.SyncDrawing
		if err = decode(ev, &p); err == nil {
			g.drawing.Sync(p.SocketID, p.DrawingData)
		}
	case protocol.EventDrawingUpdate:
		var p protocol.DrawingUpdate
		if err = ev.Decode(&p); err == nil {
			g.drawing.Update(connID, p.Snapshot)
		}
	default:
		err = protocol.ErrUnknownEvent
	}

	if err != nil {
		g.log.Warn("dropping event",
			zap.String("connId", connID),
			zap.String("event", string(ev.Event)),
			zap.Error(err))
	}
}

func (g *Gateway) handleJoin(connID string, ev protocol.Envelope) error {
	var p protocol.JoinRequest
	if err := decode(ev, &p); err != nil {
		return err
	}

	user, users, err := g.dir.Join(p.RoomID, p.Username, connID)
	if err == room.ErrUsernameTaken {
		g.dir.SendTo(connID, protocol.NewMessage(protocol.EventUsernameExists, nil))
		return nil
	}
	if err != nil {
		return err
	}

	g.dir.Broadcast(p.RoomID, connID,
		protocol.NewMessage(protocol.EventUserJoined, protocol.UserPayload{User: user}))
	g.dir.SendTo(connID,
		protocol.NewMessage(protocol.EventJoinAccepted, protocol.JoinAccepted{User: user, Users: users}))
	return nil
}

type validator interface {
	Validate() error
}

// decode unmarshals and validates a payload in one step.
func decode(ev protocol.Envelope, v validator) error {
	if err := ev.Decode(v); err != nil {
		return err
	}
	return v.Validate()
}
