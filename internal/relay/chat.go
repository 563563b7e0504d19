package relay

import (
	"go.uber.org/zap"

	"codesync/internal/models"
	"codesync/internal/protocol"
	"codesync/internal/room"
)

// ChatRelay forwards chat messages to the rest of the sender's room.
// Messages are transient: no persistence, no acknowledgement, no ordering
// beyond the transport's per-connection FIFO.
type ChatRelay struct {
	dir *room.Directory
	log *zap.Logger
}

func NewChatRelay(dir *room.Directory, log *zap.Logger) *ChatRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatRelay{dir: dir, log: log}
}

// Message broadcasts a chat message as RECEIVE_MESSAGE to everyone in the
// sender's room except the sender. Silent no-op without a room.
func (r *ChatRelay) Message(connID string, msg models.ChatMessage) {
	roomID, ok := r.dir.RoomOf(connID)
	if !ok {
		return
	}
	r.dir.Broadcast(roomID, connID,
		protocol.NewMessage(protocol.EventReceiveMessage, protocol.MessagePayload{Message: msg}))
}
