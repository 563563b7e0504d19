// Package room owns the in-memory participant directory. All room
// mutations are serialized behind one lock; every other component reads
// participants as copies and never holds a durable reference.
package room

import (
	"errors"
	"sync"

	"github.com/c-pro/geche"
	"go.uber.org/zap"

	"codesync/internal/models"
	"codesync/internal/protocol"
)

// ErrUsernameTaken is returned by Join when the username already belongs
// to a participant of the same room.
var ErrUsernameTaken = errors.New("username already taken in this room")

const defaultSendBuffer = 64

type Config struct {
	// SendBuffer is the outbound channel capacity per connection. A full
	// buffer drops events for that connection only.
	SendBuffer int
	Logger     *zap.Logger
}

// Directory maps rooms to their participants and each live connection to
// its outbound event channel. Rooms exist implicitly: created on first
// join, removed when the last participant leaves.
type Directory struct {
	mu sync.RWMutex

	// roomID -> connID -> participant
	rooms map[string]map[string]*models.Participant

	// connID -> outbound channel, registered at attach time
	outbound map[string]chan protocol.Message

	// connID -> roomID lookup index
	roomIndex geche.Geche[string, string]

	sendBuffer int
	log        *zap.Logger
}

func NewDirectory(cfg Config) *Directory {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Directory{
		rooms:      make(map[string]map[string]*models.Participant),
		outbound:   make(map[string]chan protocol.Message),
		roomIndex:  geche.NewMapCache[string, string](),
		sendBuffer: cfg.SendBuffer,
		log:        cfg.Logger,
	}
}

// Register creates the outbound channel for a new connection. It must be
// called before Join; the connection's write loop drains the channel.
func (d *Directory) Register(connID string) chan protocol.Message {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch := make(chan protocol.Message, d.sendBuffer)
	d.outbound[connID] = ch
	return ch
}

// Unregister closes and removes the connection's outbound channel.
// Safe to call after Leave and safe to call twice.
func (d *Directory) Unregister(connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ch, ok := d.outbound[connID]; ok {
		delete(d.outbound, connID)
		close(ch)
	}
}

// Join adds a participant to a room. The uniqueness check and the insert
// are one atomic step under the directory lock. On success it returns the
// new participant and the full post-join participant list of the room.
func (d *Directory) Join(roomID, username, connID string) (models.Participant, []models.Participant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[roomID]
	if !ok {
		members = make(map[string]*models.Participant)
		d.rooms[roomID] = members
	}

	for _, p := range members {
		if p.Username == username {
			return models.Participant{}, nil, ErrUsernameTaken
		}
	}

	p := &models.Participant{
		ConnID:   connID,
		Username: username,
		RoomID:   roomID,
		Status:   models.UserStatusOnline,
	}
	members[connID] = p
	d.roomIndex.Set(connID, roomID)

	users := make([]models.Participant, 0, len(members))
	for _, m := range members {
		users = append(users, *m)
	}

	d.log.Info("participant joined",
		zap.String("room", roomID),
		zap.String("username", username),
		zap.String("connId", connID),
		zap.Int("participants", len(members)))

	return *p, users, nil
}

// Leave removes the participant for connID, if any. Idempotent: the
// second call returns false and changes nothing. An empty room is removed
// from the directory.
func (d *Directory) Leave(connID string) (models.Participant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	roomID, err := d.roomIndex.Get(connID)
	if err != nil {
		return models.Participant{}, false
	}

	members := d.rooms[roomID]
	p, ok := members[connID]
	if !ok {
		return models.Participant{}, false
	}

	delete(members, connID)
	_ = d.roomIndex.Del(connID)
	if len(members) == 0 {
		delete(d.rooms, roomID)
		d.log.Info("room removed", zap.String("room", roomID))
	}

	d.log.Info("participant left",
		zap.String("room", roomID),
		zap.String("username", p.Username),
		zap.String("connId", connID))

	return *p, true
}

// RoomOf resolves the room a connection has joined.
func (d *Directory) RoomOf(connID string) (string, bool) {
	roomID, err := d.roomIndex.Get(connID)
	return roomID, err == nil
}

// Lookup returns a copy of the participant for connID.
func (d *Directory) Lookup(connID string) (models.Participant, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.participant(connID)
	if !ok {
		return models.Participant{}, false
	}
	return *p, true
}

// Participants returns copies of every participant in a room.
func (d *Directory) Participants(roomID string) []models.Participant {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := d.rooms[roomID]
	users := make([]models.Participant, 0, len(members))
	for _, p := range members {
		users = append(users, *p)
	}
	return users
}

// FirstOther returns some participant of the room other than exclude.
func (d *Directory) FirstOther(roomID, exclude string) (models.Participant, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for connID, p := range d.rooms[roomID] {
		if connID != exclude {
			return *p, true
		}
	}
	return models.Participant{}, false
}

// SetTyping updates the typing flag and, when typing starts, the cursor
// position. Returns the updated participant.
func (d *Directory) SetTyping(connID string, typing bool, cursor int) (models.Participant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.participant(connID)
	if !ok {
		return models.Participant{}, false
	}
	p.Typing = typing
	if typing {
		p.CursorPosition = cursor
	}
	return *p, true
}

// SetStatus updates the online/offline status of the participant with the
// given connection id.
func (d *Directory) SetStatus(connID string, status models.UserStatus) (models.Participant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.participant(connID)
	if !ok {
		return models.Participant{}, false
	}
	p.Status = status
	return *p, true
}

// Broadcast fans an event out to every room member except exclude.
// Sends never block: a member with a full outbound buffer misses the
// event, the rest of the room is unaffected.
func (d *Directory) Broadcast(roomID, exclude string, ev protocol.Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for connID := range d.rooms[roomID] {
		if connID == exclude {
			continue
		}
		d.send(connID, ev)
	}
}

// SendTo delivers an event to a single connection. Returns false if the
// connection is unknown or its buffer is full.
func (d *Directory) SendTo(connID string, ev protocol.Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.send(connID, ev)
}

// Stats reports the number of live rooms and participants.
func (d *Directory) Stats() (rooms, participants int) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rooms = len(d.rooms)
	for _, members := range d.rooms {
		participants += len(members)
	}
	return rooms, participants
}

// participant resolves connID through the room index. Callers hold d.mu.
func (d *Directory) participant(connID string) (*models.Participant, bool) {
	roomID, err := d.roomIndex.Get(connID)
	if err != nil {
		return nil, false
	}
	p, ok := d.rooms[roomID][connID]
	return p, ok
}

// send assumes d.mu is held (read or write).
func (d *Directory) send(connID string, ev protocol.Message) bool {
	ch, ok := d.outbound[connID]
	if !ok {
		return false
	}
	select {
	case ch <- ev:
		return true
	default:
		d.log.Warn("dropping event for slow connection",
			zap.String("connId", connID),
			zap.String("event", string(ev.Event)))
		return false
	}
}
