// Package relay contains the stateless forwarding components: file
// lifecycle events, chat messages, and the server half of drawing sync.
// Relays resolve the sender's room through the directory and forward
// payloads without interpreting or persisting their content.
package relay

import (
	"go.uber.org/zap"

	"codesync/internal/models"
	"codesync/internal/protocol"
	"codesync/internal/room"
)

// FileRelay broadcasts file lifecycle events to the sender's room and
// hands the full file set to newly joined participants. The server never
// assembles or stores the file list itself.
type FileRelay struct {
	dir *room.Directory
	log *zap.Logger
}

func NewFileRelay(dir *room.Directory, log *zap.Logger) *FileRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileRelay{dir: dir, log: log}
}

// SyncFiles delivers a full file-set handoff to exactly one connection.
func (r *FileRelay) SyncFiles(targetID string, files []models.FileRecord, currentFile string) {
	ok := r.dir.SendTo(targetID, protocol.NewMessage(protocol.EventSyncFiles, protocol.SyncFiles{
		Files:       files,
		CurrentFile: currentFile,
	}))
	if !ok {
		r.log.Debug("file sync target unavailable", zap.String("connId", targetID))
	}
}

// FileCreated forwards a created file to the rest of the sender's room.
func (r *FileRelay) FileCreated(connID string, file models.FileRecord) {
	r.broadcastFile(connID, protocol.EventFileCreated, file)
}

// FileUpdated forwards an updated file to the rest of the sender's room.
func (r *FileRelay) FileUpdated(connID string, file models.FileRecord) {
	r.broadcastFile(connID, protocol.EventFileUpdated, file)
}

// FileRenamed forwards a renamed file to the rest of the sender's room.
// Name uniqueness is the emitting client's responsibility.
func (r *FileRelay) FileRenamed(connID string, file models.FileRecord) {
	r.broadcastFile(connID, protocol.EventFileRenamed, file)
}

// FileDeleted forwards a file removal to the rest of the sender's room.
func (r *FileRelay) FileDeleted(connID, fileID string) {
	roomID, ok := r.dir.RoomOf(connID)
	if !ok {
		return
	}
	r.dir.Broadcast(roomID, connID,
		protocol.NewMessage(protocol.EventFileDeleted, protocol.FileDeleted{ID: fileID}))
}

func (r *FileRelay) broadcastFile(connID string, name protocol.EventName, file models.FileRecord) {
	roomID, ok := r.dir.RoomOf(connID)
	if !ok {
		return
	}
	r.dir.Broadcast(roomID, connID,
		protocol.NewMessage(name, protocol.FilePayload{File: file}))
}
