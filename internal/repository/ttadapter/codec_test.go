package ttadapter

import (
	"testing"

	"github.com/Xausdorf/chatpoll/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestCodec_PollRecordRoundTrip(t *testing.T) {
	codec := NewCodec()
	poll := &domain.Poll{
		Question: "favourite letter?",
		Options: []domain.PollOption{
			{Text: "A", Data: "0", VoterCount: 5, IsChosen: true},
			{Text: "B", Data: "1", VoterCount: 2},
		},
		TotalVoterCount: 7,
		IsClosed:        true,
	}

	value, err := codec.EncodePoll(poll)
	require.NoError(t, err)

	decoded, err := codec.DecodePoll(value)
	require.NoError(t, err)
	assert.Equal(t, poll, decoded)
}

func TestCodec_SetAnswerEventRoundTrip(t *testing.T) {
	codec := NewCodec()
	event := &domain.SetAnswerEvent{
		PollID:    42,
		MessageID: domain.FullMessageID{ChatID: 7, MessageID: 9},
		Options:   []string{"1"},
	}

	payload, err := codec.EncodeSetAnswerEvent(event)
	require.NoError(t, err)

	decoded, err := codec.DecodeSetAnswerEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestCodec_DecodeRejectsGarbage(t *testing.T) {
	codec := NewCodec()

	_, err := codec.DecodePoll([]byte{0xc1})
	require.Error(t, err)

	_, err = codec.DecodeSetAnswerEvent([]byte("not msgpack"))
	require.Error(t, err)
}

func TestCodec_DecodeRejectsMismatchedFieldCount(t *testing.T) {
	value, err := msgpack.Marshal([]interface{}{"question only"})
	require.NoError(t, err)

	_, err = NewCodec().DecodePoll(value)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array len doesn't match")
}
