// Package protocol defines the event vocabulary shared by the server and
// the client SDK: event names, the wire envelope, and the typed payload
// for every event. Payloads inbound to the server are validated at the
// gateway boundary; their interiors (file content, drawing records, chat
// text) stay opaque.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"codesync/internal/models"
)

type EventName string

const (
	EventJoinRequest      EventName = "JOIN_REQUEST"
	EventUsernameExists   EventName = "USERNAME_EXISTS"
	EventJoinAccepted     EventName = "JOIN_ACCEPTED"
	EventUserJoined       EventName = "USER_JOINED"
	EventUserDisconnected EventName = "USER_DISCONNECTED"
	EventSyncFiles        EventName = "SYNC_FILES"
	EventFileCreated      EventName = "FILE_CREATED"
	EventFileUpdated      EventName = "FILE_UPDATED"
	EventFileRenamed      EventName = "FILE_RENAMED"
	EventFileDeleted      EventName = "FILE_DELETED"
	EventUserOnline       EventName = "USER_ONLINE"
	EventUserOffline      EventName = "USER_OFFLINE"
	EventSendMessage      EventName = "SEND_MESSAGE"
	EventReceiveMessage   EventName = "RECEIVE_MESSAGE"
	EventTypingStart      EventName = "TYPING_START"
	EventTypingPause      EventName = "TYPING_PAUSE"
	EventRequestDrawing   EventName = "REQUEST_DRAWING"
	EventSyncDrawing      EventName = "SYNC_DRAWING"
	EventDrawingUpdate    EventName = "DRAWING_UPDATE"
)

var (
	ErrMissingEvent = errors.New("missing event name")
	ErrUnknownEvent = errors.New("unknown event")
)

// Envelope is the inbound wire frame on either end: the event name plus
// its still-raw payload, decoded per event name by the receiver.
type Envelope struct {
	Event   EventName       `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is the outbound wire frame: an event with a typed payload.
type Message struct {
	Event   EventName `json:"event"`
	Payload any       `json:"payload,omitempty"`
}

// NewMessage wraps a payload for delivery.
func NewMessage(name EventName, payload any) Message {
	return Message{Event: name, Payload: payload}
}

// ParseEnvelope unmarshals the envelope only.
func ParseEnvelope(data []byte) (Envelope, error) {
	var ev Envelope
	if err := json.Unmarshal(data, &ev); err != nil {
		return Envelope{}, fmt.Errorf("malformed event: %w", err)
	}
	if ev.Event == "" {
		return Envelope{}, ErrMissingEvent
	}
	return ev, nil
}

// Decode unmarshals the event payload into v. An absent payload decodes
// into the zero value, matching events whose inbound payload is empty.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Event, err)
	}
	return nil
}

type JoinRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

func (p JoinRequest) Validate() error {
	if p.RoomID == "" {
		return fmt.Errorf("join: roomId is required")
	}
	if p.Username == "" {
		return fmt.Errorf("join: username is required")
	}
	return nil
}

type JoinAccepted struct {
	User  models.Participant   `json:"user"`
	Users []models.Participant `json:"users"`
}

type UserPayload struct {
	User models.Participant `json:"user"`
}

// SyncFiles serves both directions: inbound it names the target
// connection, outbound the target field is dropped.
type SyncFiles struct {
	Files       []models.FileRecord `json:"files"`
	CurrentFile string              `json:"currentFile,omitempty"`
	SocketID    string              `json:"socketId,omitempty"`
}

func (p SyncFiles) Validate() error {
	if p.SocketID == "" {
		return fmt.Errorf("sync files: socketId is required")
	}
	return nil
}

type FilePayload struct {
	File models.FileRecord `json:"file"`
}

func (p FilePayload) Validate() error {
	if p.File.ID == "" {
		return fmt.Errorf("file event: file.id is required")
	}
	return nil
}

type FileDeleted struct {
	ID string `json:"id"`
}

func (p FileDeleted) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("file deleted: id is required")
	}
	return nil
}

// StatusChange carries the connection whose status toggles. The id is
// supplied by the sender and is not required to be the sender's own.
type StatusChange struct {
	SocketID string `json:"socketId"`
}

func (p StatusChange) Validate() error {
	if p.SocketID == "" {
		return fmt.Errorf("status change: socketId is required")
	}
	return nil
}

type MessagePayload struct {
	Message models.ChatMessage `json:"message"`
}

type TypingStart struct {
	CursorPosition int `json:"cursorPosition"`
}

type RequestDrawing struct {
	SocketID string `json:"socketId"`
}

// SyncDrawing serves both directions: inbound it names the requester to
// deliver to, outbound only the snapshot survives.
type SyncDrawing struct {
	DrawingData models.DrawingSnapshot `json:"drawingData"`
	SocketID    string                 `json:"socketId,omitempty"`
}

func (p SyncDrawing) Validate() error {
	if p.SocketID == "" {
		return fmt.Errorf("sync drawing: socketId is required")
	}
	return nil
}

type DrawingUpdate struct {
	Snapshot models.DrawingDelta `json:"snapshot"`
}
