// Package client is the Go client for a codesync session server. It
// owns the connection, surfaces room events through callbacks, and wires
// the local drawing store to the wire so that local edits are broadcast
// while remote deltas are merged without echoing back.
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"codesync/internal/models"
	"codesync/internal/protocol"
)

// Handlers are the optional event callbacks. They run on the client's
// read loop; a nil handler drops the event.
type Handlers struct {
	OnJoinAccepted     func(self models.Participant, users []models.Participant)
	OnUsernameExists   func()
	OnUserJoined       func(user models.Participant)
	OnUserDisconnected func(user models.Participant)
	OnSyncFiles        func(files []models.FileRecord, currentFile string)
	OnFileCreated      func(file models.FileRecord)
	OnFileUpdated      func(file models.FileRecord)
	OnFileRenamed      func(file models.FileRecord)
	OnFileDeleted      func(id string)
	OnMessage          func(msg models.ChatMessage)
	OnTypingStart      func(user models.Participant)
	OnTypingPause      func(user models.Participant)
	OnUserOnline       func(socketID string)
	OnUserOffline      func(socketID string)
}

type Options struct {
	Handlers Handlers

	// FileProvider supplies the local file set. When set, the client
	// answers a new participant's arrival with a SYNC_FILES handoff, the
	// way an existing editor seeds a newcomer.
	FileProvider func() (files []models.FileRecord, currentFile string)

	Logger *zap.Logger
}

// Client is one participant's connection to the session server.
type Client struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	drawing *DrawingStore
	opts    Options
	log     *zap.Logger

	mu   sync.Mutex
	self models.Participant

	done     chan struct{}
	stopSync func()
}

// Dial connects to a session server's /ws endpoint and starts the read
// loop. The caller still has to Join a room.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c := &Client{
		ws:      ws,
		drawing: NewDrawingStore(),
		opts:    opts,
		log:     opts.Logger,
		done:    make(chan struct{}),
	}

	// Local edits go out as deltas; the remote-merge path never reaches
	// this listener.
	c.stopSync = c.drawing.Listen(SourceUser, func(delta models.DrawingDelta) {
		c.send(protocol.EventDrawingUpdate, protocol.DrawingUpdate{Snapshot: delta})
	})

	go c.readLoop()
	return c, nil
}

// Drawing returns the local drawing document replica.
func (c *Client) Drawing() *DrawingStore { return c.drawing }

// Self returns the participant record assigned at join.
func (c *Client) Self() models.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close tears the connection down.
func (c *Client) Close() error {
	c.stopSync()
	return c.ws.Close()
}

// Join asks to enter a room. The outcome arrives as OnJoinAccepted or
// OnUsernameExists.
func (c *Client) Join(roomID, username string) error {
	return c.send(protocol.EventJoinRequest, protocol.JoinRequest{RoomID: roomID, Username: username})
}

// SendMessage relays a chat message to the rest of the room.
func (c *Client) SendMessage(msg models.ChatMessage) error {
	return c.send(protocol.EventSendMessage, protocol.MessagePayload{Message: msg})
}

func (c *Client) CreateFile(file models.FileRecord) error {
	return c.send(protocol.EventFileCreated, protocol.FilePayload{File: file})
}

func (c *Client) UpdateFile(file models.FileRecord) error {
	return c.send(protocol.EventFileUpdated, protocol.FilePayload{File: file})
}

func (c *Client) RenameFile(file models.FileRecord) error {
	return c.send(protocol.EventFileRenamed, protocol.FilePayload{File: file})
}

func (c *Client) DeleteFile(id string) error {
	return c.send(protocol.EventFileDeleted, protocol.FileDeleted{ID: id})
}

// StartTyping announces typing at a cursor position.
func (c *Client) StartTyping(cursorPosition int) error {
	return c.send(protocol.EventTypingStart, protocol.TypingStart{CursorPosition: cursorPosition})
}

// StopTyping announces the end of typing.
func (c *Client) StopTyping() error {
	return c.send(protocol.EventTypingPause, nil)
}

// SetOnline toggles a connection's status to online. The id may be this
// client's own or another participant's.
func (c *Client) SetOnline(socketID string) error {
	return c.send(protocol.EventUserOnline, protocol.StatusChange{SocketID: socketID})
}

// SetOffline toggles a connection's status to offline.
func (c *Client) SetOffline(socketID string) error {
	return c.send(protocol.EventUserOffline, protocol.StatusChange{SocketID: socketID})
}

// RequestDrawing asks the server to fetch a full snapshot from a peer.
// With no peer in the room there is no response; the local document
// simply stays blank.
func (c *Client) RequestDrawing() error {
	return c.send(protocol.EventRequestDrawing, nil)
}

// SyncFilesTo hands the full file set to one participant.
func (c *Client) SyncFilesTo(socketID string, files []models.FileRecord, currentFile string) error {
	return c.send(protocol.EventSyncFiles, protocol.SyncFiles{
		Files:       files,
		CurrentFile: currentFile,
		SocketID:    socketID,
	})
}

func (c *Client) send(name protocol.EventName, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(protocol.NewMessage(name, payload))
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			c.log.Warn("discarding malformed server event", zap.Error(err))
			continue
		}
		c.handle(env)
	}
}

func (c *Client) handle(env protocol.Envelope) {
	h := c.opts.Handlers

	var err error
	switch env.Event {
	case protocol.EventJoinAccepted:
		var p protocol.JoinAccepted
		if err = env.Decode(&p); err == nil {
			c.mu.Lock()
			c.self = p.User
			c.mu.Unlock()
			if h.OnJoinAccepted != nil {
				h.OnJoinAccepted(p.User, p.Users)
			}
		}
	case protocol.EventUsernameExists:
		if h.OnUsernameExists != nil {
			h.OnUsernameExists()
		}
	case protocol.EventUserJoined:
		var p protocol.UserPayload
		if err = env.Decode(&p); err == nil {
			if c.opts.FileProvider != nil {
				files, currentFile := c.opts.FileProvider()
				_ = c.SyncFilesTo(p.User.ConnID, files, currentFile)
			}
			if h.OnUserJoined != nil {
				h.OnUserJoined(p.User)
			}
		}
	case protocol.EventUserDisconnected:
		var p protocol.UserPayload
		if err = env.Decode(&p); err == nil && h.OnUserDisconnected != nil {
			h.OnUserDisconnected(p.User)
		}
	case protocol.EventSyncFiles:
		var p protocol.SyncFiles
		if err = env.Decode(&p); err == nil && h.OnSyncFiles != nil {
			h.OnSyncFiles(p.Files, p.CurrentFile)
		}
	case protocol.EventFileCreated:
		var p protocol.FilePayload
		if err = env.Decode(&p); err == nil && h.OnFileCreated != nil {
			h.OnFileCreated(p.File)
		}
	case protocol.EventFileUpdated:
		var p protocol.FilePayload
		if err = env.Decode(&p); err == nil && h.OnFileUpdated != nil {
			h.OnFileUpdated(p.File)
		}
	case protocol.EventFileRenamed:
		var p protocol.FilePayload
		if err = env.Decode(&p); err == nil && h.OnFileRenamed != nil {
			h.OnFileRenamed(p.File)
		}
	case protocol.EventFileDeleted:
		var p protocol.FileDeleted
		if err = env.Decode(&p); err == nil && h.OnFileDeleted != nil {
			h.OnFileDeleted(p.ID)
		}
	case protocol.EventReceiveMessage:
		var p protocol.MessagePayload
		if err = env.Decode(&p); err == nil && h.OnMessage != nil {
			h.OnMessage(p.Message)
		}
	case protocol.EventTypingStart:
		var p protocol.UserPayload
		if err = env.Decode(&p); err == nil && h.OnTypingStart != nil {
			h.OnTypingStart(p.User)
		}
	case protocol.EventTypingPause:
		var p protocol.UserPayload
		if err = env.Decode(&p); err == nil && h.OnTypingPause != nil {
			h.OnTypingPause(p.User)
		}
	case protocol.EventUserOnline:
		var p protocol.StatusChange
		if err = env.Decode(&p); err == nil && h.OnUserOnline != nil {
			h.OnUserOnline(p.SocketID)
		}
	case protocol.EventUserOffline:
		var p protocol.StatusChange
		if err = env.Decode(&p); err == nil && h.OnUserOffline != nil {
			h.OnUserOffline(p.SocketID)
		}
	case protocol.EventRequestDrawing:
		// A peer wants our document: answer with a full snapshot.
		var p protocol.RequestDrawing
		if err = env.Decode(&p); err == nil && p.SocketID != "" {
			_ = c.send(protocol.EventSyncDrawing, protocol.SyncDrawing{
				DrawingData: c.drawing.Snapshot(),
				SocketID:    p.SocketID,
			})
		}
	case protocol.EventSyncDrawing:
		var p protocol.SyncDrawing
		if err = env.Decode(&p); err == nil {
			c.drawing.Load(p.DrawingData)
		}
	case protocol.EventDrawingUpdate:
		var p protocol.DrawingUpdate
		if err = env.Decode(&p); err == nil {
			c.drawing.MergeRemote(p.Snapshot)
		}
	default:
		c.log.Debug("ignoring unknown event", zap.String("event", string(env.Event)))
	}

	if err != nil {
		c.log.Warn("discarding undecodable payload",
			zap.String("event", string(env.Event)), zap.Error(err))
	}
}
