package relay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"codesync/internal/models"
	"codesync/internal/protocol"
)

func TestChatRelay_Message(t *testing.T) {
	d, ch1, ch2 := twoInRoom(t)
	r := NewChatRelay(d, nil)

	msg := models.ChatMessage{ID: "m1", Username: "alice", Text: "hi", Timestamp: "12:04 pm"}
	r.Message("c1", msg)

	require.Empty(t, ch1, "sender must not receive its own message")
	require.Len(t, ch2, 1)

	ev := <-ch2
	require.Equal(t, protocol.EventReceiveMessage, ev.Event,
		"inbound SEND_MESSAGE turns into RECEIVE_MESSAGE")
	require.Equal(t, msg, ev.Payload.(protocol.MessagePayload).Message)
}

func TestChatRelay_NoRoom_SilentNoOp(t *testing.T) {
	d, ch1, ch2 := twoInRoom(t)
	r := NewChatRelay(d, nil)

	d.Register("c3")
	r.Message("c3", models.ChatMessage{Text: "lost"})

	require.Empty(t, ch1)
	require.Empty(t, ch2)
}
