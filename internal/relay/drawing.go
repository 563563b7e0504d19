package relay

import (
	"go.uber.org/zap"

	"codesync/internal/models"
	"codesync/internal/protocol"
	"codesync/internal/room"
)

// DrawingRelay is the server half of drawing sync: deltas are broadcast
// to the room, full snapshots are fetched from an arbitrary peer and
// delivered to the requester only. The snapshot content is opaque here;
// reconciliation happens in the client store.
type DrawingRelay struct {
	dir *room.Directory
	log *zap.Logger
}

func NewDrawingRelay(dir *room.Directory, log *zap.Logger) *DrawingRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &DrawingRelay{dir: dir, log: log}
}

// Update forwards an incremental delta to the rest of the sender's room.
func (r *DrawingRelay) Update(connID string, delta models.DrawingDelta) {
	roomID, ok := r.dir.RoomOf(connID)
	if !ok {
		return
	}
	r.dir.Broadcast(roomID, connID,
		protocol.NewMessage(protocol.EventDrawingUpdate, protocol.DrawingUpdate{Snapshot: delta}))
}

// Request asks the first other participant of the requester's room to
// produce a full snapshot for the requester. A requester alone in its
// room gets nothing: no timeout, no retry, silence is a valid outcome.
func (r *DrawingRelay) Request(connID string) {
	roomID, ok := r.dir.RoomOf(connID)
	if !ok {
		return
	}
	peer, ok := r.dir.FirstOther(roomID, connID)
	if !ok {
		r.log.Debug("no drawing peer available", zap.String("room", roomID))
		return
	}
	r.dir.SendTo(peer.ConnID,
		protocol.NewMessage(protocol.EventRequestDrawing, protocol.RequestDrawing{SocketID: connID}))
}

// Sync unicasts a full snapshot to the requester named in the payload.
func (r *DrawingRelay) Sync(targetID string, data models.DrawingSnapshot) {
	ok := r.dir.SendTo(targetID,
		protocol.NewMessage(protocol.EventSyncDrawing, protocol.SyncDrawing{DrawingData: data}))
	if !ok {
		r.log.Debug("drawing sync target unavailable", zap.String("connId", targetID))
	}
}
