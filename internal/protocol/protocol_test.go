package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"codesync/internal/models"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"event":"JOIN_REQUEST","payload":{"roomId":"r1","username":"alice"}}`))
	require.NoError(t, err)
	require.Equal(t, EventJoinRequest, env.Event)

	var p JoinRequest
	require.NoError(t, env.Decode(&p))
	require.Equal(t, "r1", p.RoomID)
	require.Equal(t, "alice", p.Username)
}

func TestParseEnvelope_Malformed(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{not json`))
	require.Error(t, err)

	_, err = ParseEnvelope([]byte(`{"payload":{}}`))
	require.ErrorIs(t, err, ErrMissingEvent)
}

func TestEnvelope_Decode_EmptyPayload(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"event":"TYPING_PAUSE"}`))
	require.NoError(t, err)

	var p TypingStart
	require.NoError(t, env.Decode(&p))
	require.Zero(t, p.CursorPosition)
}

func TestValidate(t *testing.T) {
	require.Error(t, JoinRequest{Username: "alice"}.Validate())
	require.Error(t, JoinRequest{RoomID: "r1"}.Validate())
	require.NoError(t, JoinRequest{RoomID: "r1", Username: "alice"}.Validate())

	require.Error(t, SyncFiles{}.Validate())
	require.NoError(t, SyncFiles{SocketID: "c2"}.Validate())

	require.Error(t, FilePayload{}.Validate())
	require.NoError(t, FilePayload{File: models.FileRecord{ID: "f1"}}.Validate())

	require.Error(t, FileDeleted{}.Validate())
	require.Error(t, StatusChange{}.Validate())
	require.Error(t, SyncDrawing{}.Validate())
}

func TestMessage_RoundTrip(t *testing.T) {
	out := NewMessage(EventJoinAccepted, JoinAccepted{
		User: models.Participant{ConnID: "c1", Username: "alice", RoomID: "r1"},
	})
	data, err := json.Marshal(out)
	require.NoError(t, err)

	env, err := ParseEnvelope(data)
	require.NoError(t, err)
	require.Equal(t, EventJoinAccepted, env.Event)

	var p JoinAccepted
	require.NoError(t, env.Decode(&p))
	require.Equal(t, "alice", p.User.Username)
	require.Equal(t, "c1", p.User.ConnID)
}

func TestDrawingDelta_Wire(t *testing.T) {
	raw := []byte(`{"event":"DRAWING_UPDATE","payload":{"snapshot":{
		"added":{"s1":{"type":"rect","x":10}},
		"updated":{},
		"removed":{}}}}`)

	env, err := ParseEnvelope(raw)
	require.NoError(t, err)

	var p DrawingUpdate
	require.NoError(t, env.Decode(&p))
	require.Contains(t, p.Snapshot.Added, "s1")
	require.JSONEq(t, `"rect"`, string(p.Snapshot.Added["s1"]["type"]))
	require.Empty(t, p.Snapshot.Updated)
}
