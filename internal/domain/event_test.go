package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent_KeepsPayloadVerbatim(t *testing.T) {
	e, err := ParseEvent([]byte(`{"type":"voice_chat_signal","to":7,"signal":{"sdp":{"type":"offer","sdp":"x"}}}`))
	require.NoError(t, err)
	assert.Equal(t, EventVoiceChatSignal, e.Type)

	raw, ok := e.Raw("signal")
	require.True(t, ok)
	assert.JSONEq(t, `{"sdp":{"type":"offer","sdp":"x"}}`, string(raw))

	out, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"voice_chat_signal","to":7,"signal":{"sdp":{"type":"offer","sdp":"x"}}}`, string(out))
}

func TestParseEvent_RejectsMissingType(t *testing.T) {
	_, err := ParseEvent([]byte(`{"user":1}`))
	assert.ErrorIs(t, err, ErrBadCommand)

	_, err = ParseEvent([]byte(`not json`))
	assert.ErrorIs(t, err, ErrBadCommand)
}

func TestEvent_WithDoesNotMutateOriginal(t *testing.T) {
	base := NewEvent(EventRoomUpdate).With(FieldRoom, "lobby")
	patched := base.With(FieldUser, 7)

	assert.False(t, base.Has(FieldUser))
	assert.True(t, patched.Has(FieldUser))

	var room string
	require.NoError(t, patched.Decode(FieldRoom, &room))
	assert.Equal(t, "lobby", room)
}

func TestEvent_DecodeMissingField(t *testing.T) {
	var v int
	err := NewEvent(EventUserKick).Decode(FieldUser, &v)
	assert.ErrorIs(t, err, ErrBadCommand)
}

func TestCloseCode(t *testing.T) {
	assert.Equal(t, CodeNotFound, CloseCode(ErrNotFound))
	assert.Equal(t, CodeForbidden, CloseCode(ErrForbidden))
	assert.Equal(t, 4403, WSCloseCode(CloseCode(ErrForbidden)))
}

func TestGroups(t *testing.T) {
	assert.Equal(t, Group("room-12"), RoomGroup(12))
	assert.Equal(t, Group("notification-3"), NotificationGroup(3))
	assert.Equal(t, Group("profile-3"), ProfileGroup(3))
}
