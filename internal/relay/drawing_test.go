package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"codesync/internal/models"
	"codesync/internal/protocol"
	"codesync/internal/room"
)

func shape(name string) models.DrawingRecord {
	return models.DrawingRecord{"type": json.RawMessage(`"` + name + `"`)}
}

func TestDrawingRelay_Update(t *testing.T) {
	d, ch1, ch2 := twoInRoom(t)
	r := NewDrawingRelay(d, nil)

	delta := models.DrawingDelta{
		Added: map[string]models.DrawingRecord{"s1": shape("rect")},
	}
	r.Update("c1", delta)

	require.Empty(t, ch1, "sender must not receive its own delta")
	require.Len(t, ch2, 1)

	ev := <-ch2
	require.Equal(t, protocol.EventDrawingUpdate, ev.Event)
	require.Contains(t, ev.Payload.(protocol.DrawingUpdate).Snapshot.Added, "s1")
}

func TestDrawingRelay_Update_NoRoom(t *testing.T) {
	d, ch1, ch2 := twoInRoom(t)
	r := NewDrawingRelay(d, nil)

	d.Register("c3")
	r.Update("c3", models.DrawingDelta{})

	require.Empty(t, ch1)
	require.Empty(t, ch2)
}

func TestDrawingRelay_Request_ForwardsToPeer(t *testing.T) {
	d, ch1, ch2 := twoInRoom(t)
	r := NewDrawingRelay(d, nil)

	r.Request("c1")

	require.Empty(t, ch1, "the requester itself gets nothing")
	require.Len(t, ch2, 1)

	ev := <-ch2
	require.Equal(t, protocol.EventRequestDrawing, ev.Event)
	require.Equal(t, "c1", ev.Payload.(protocol.RequestDrawing).SocketID,
		"the peer is told whom to deliver the snapshot to")
}

func TestDrawingRelay_Request_AloneInRoom(t *testing.T) {
	d := newDirectoryWithSolo(t)
	r := NewDrawingRelay(d, nil)

	// No peer, no response, no error: the requester stays blank.
	r.Request("solo")
}

func TestDrawingRelay_Sync_Unicast(t *testing.T) {
	d, ch1, ch2 := twoInRoom(t)
	r := NewDrawingRelay(d, nil)

	snap := models.DrawingSnapshot{"s1": shape("rect")}
	r.Sync("c2", snap)

	require.Empty(t, ch1)
	require.Len(t, ch2, 1)

	ev := <-ch2
	require.Equal(t, protocol.EventSyncDrawing, ev.Event)
	payload := ev.Payload.(protocol.SyncDrawing)
	require.Contains(t, payload.DrawingData, "s1")
	require.Empty(t, payload.SocketID)
}

func newDirectoryWithSolo(t *testing.T) *room.Directory {
	t.Helper()
	d := room.NewDirectory(room.Config{})
	d.Register("solo")
	_, _, err := d.Join("r9", "hermit", "solo")
	require.NoError(t, err)
	return d
}
