package room

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"codesync/internal/models"
	"codesync/internal/protocol"
)

func newTestDirectory() *Directory {
	return NewDirectory(Config{})
}

func join(t *testing.T, d *Directory, roomID, username, connID string) chan protocol.Message {
	t.Helper()
	ch := d.Register(connID)
	_, _, err := d.Join(roomID, username, connID)
	require.NoError(t, err)
	return ch
}

func TestDirectory_Join(t *testing.T) {
	d := newTestDirectory()
	d.Register("c1")

	p, users, err := d.Join("r1", "alice", "c1")
	require.NoError(t, err)
	require.Equal(t, "alice", p.Username)
	require.Equal(t, "r1", p.RoomID)
	require.Equal(t, models.UserStatusOnline, p.Status)
	require.False(t, p.Typing)
	require.Zero(t, p.CursorPosition)
	require.Len(t, users, 1)

	d.Register("c2")
	_, users, err = d.Join("r1", "bob", "c2")
	require.NoError(t, err)
	require.Len(t, users, 2)
}

func TestDirectory_Join_UsernameTaken(t *testing.T) {
	d := newTestDirectory()
	join(t, d, "r1", "alice", "c1")

	d.Register("c2")
	_, _, err := d.Join("r1", "alice", "c2")
	require.ErrorIs(t, err, ErrUsernameTaken)
	require.Len(t, d.Participants("r1"), 1)

	// Same username in another room is fine.
	d.Register("c3")
	_, _, err = d.Join("r2", "alice", "c3")
	require.NoError(t, err)
}

func TestDirectory_Join_ConcurrentSameUsername(t *testing.T) {
	d := newTestDirectory()

	const attempts = 32
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		connID := fmt.Sprintf("c%d", i)
		d.Register(connID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := d.Join("r1", "alice", connID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var accepted, rejected int
	for err := range results {
		if err == nil {
			accepted++
		} else {
			require.ErrorIs(t, err, ErrUsernameTaken)
			rejected++
		}
	}
	require.Equal(t, 1, accepted)
	require.Equal(t, attempts-1, rejected)
	require.Len(t, d.Participants("r1"), 1)
}

func TestDirectory_Leave_Idempotent(t *testing.T) {
	d := newTestDirectory()
	join(t, d, "r1", "alice", "c1")
	join(t, d, "r1", "bob", "c2")

	p, ok := d.Leave("c1")
	require.True(t, ok)
	require.Equal(t, "alice", p.Username)
	require.Len(t, d.Participants("r1"), 1)

	_, ok = d.Leave("c1")
	require.False(t, ok)
	require.Len(t, d.Participants("r1"), 1)
}

func TestDirectory_Leave_RemovesEmptyRoom(t *testing.T) {
	d := newTestDirectory()
	join(t, d, "r1", "alice", "c1")

	rooms, participants := d.Stats()
	require.Equal(t, 1, rooms)
	require.Equal(t, 1, participants)

	_, ok := d.Leave("c1")
	require.True(t, ok)

	rooms, participants = d.Stats()
	require.Zero(t, rooms)
	require.Zero(t, participants)

	_, ok = d.RoomOf("c1")
	require.False(t, ok)
}

func TestDirectory_Broadcast_ExcludesSender(t *testing.T) {
	d := newTestDirectory()
	ch1 := join(t, d, "r1", "alice", "c1")
	ch2 := join(t, d, "r1", "bob", "c2")
	ch3 := join(t, d, "r2", "carol", "c3")

	ev := protocol.NewMessage(protocol.EventReceiveMessage, nil)
	d.Broadcast("r1", "c1", ev)

	require.Len(t, ch2, 1)
	require.Equal(t, protocol.EventReceiveMessage, (<-ch2).Event)
	require.Empty(t, ch1, "sender must not receive its own broadcast")
	require.Empty(t, ch3, "other rooms must not receive the broadcast")
}

func TestDirectory_Broadcast_DropsWhenBufferFull(t *testing.T) {
	d := NewDirectory(Config{SendBuffer: 1})
	join(t, d, "r1", "alice", "c1")
	ch2 := join(t, d, "r1", "bob", "c2")

	ev := protocol.NewMessage(protocol.EventTypingStart, nil)
	d.Broadcast("r1", "c1", ev)
	d.Broadcast("r1", "c1", ev) // bob's buffer is full, dropped

	require.Len(t, ch2, 1)
}

func TestDirectory_SendTo(t *testing.T) {
	d := newTestDirectory()
	ch := d.Register("c1")

	require.True(t, d.SendTo("c1", protocol.NewMessage(protocol.EventSyncFiles, nil)))
	require.Len(t, ch, 1)
	require.False(t, d.SendTo("nope", protocol.NewMessage(protocol.EventSyncFiles, nil)))
}

func TestDirectory_Unregister_Twice(t *testing.T) {
	d := newTestDirectory()
	d.Register("c1")
	d.Unregister("c1")
	d.Unregister("c1")

	require.False(t, d.SendTo("c1", protocol.NewMessage(protocol.EventSyncFiles, nil)))
}

func TestDirectory_SetTyping(t *testing.T) {
	d := newTestDirectory()
	join(t, d, "r1", "alice", "c1")

	p, ok := d.SetTyping("c1", true, 42)
	require.True(t, ok)
	require.True(t, p.Typing)
	require.Equal(t, 42, p.CursorPosition)

	// Stopping keeps the last cursor position.
	p, ok = d.SetTyping("c1", false, 0)
	require.True(t, ok)
	require.False(t, p.Typing)
	require.Equal(t, 42, p.CursorPosition)

	_, ok = d.SetTyping("ghost", true, 0)
	require.False(t, ok)
}

func TestDirectory_SetStatus(t *testing.T) {
	d := newTestDirectory()
	join(t, d, "r1", "alice", "c1")

	p, ok := d.SetStatus("c1", models.UserStatusOffline)
	require.True(t, ok)
	require.Equal(t, models.UserStatusOffline, p.Status)

	got, ok := d.Lookup("c1")
	require.True(t, ok)
	require.Equal(t, models.UserStatusOffline, got.Status)
}

func TestDirectory_FirstOther(t *testing.T) {
	d := newTestDirectory()
	join(t, d, "r1", "alice", "c1")

	_, ok := d.FirstOther("r1", "c1")
	require.False(t, ok, "a participant alone in a room has no peer")

	join(t, d, "r1", "bob", "c2")
	peer, ok := d.FirstOther("r1", "c1")
	require.True(t, ok)
	require.Equal(t, "bob", peer.Username)
}
