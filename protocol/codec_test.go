package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bhashakit/core"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	data, err := Marshal(MsgSpeak, SpeakPayload{Request: core.SpeakRequest{
		Text:     "ನಮಸ್ಕಾರ",
		Language: "kn-IN",
		Rate:     1.0,
		Pitch:    1.0,
	}})
	require.NoError(t, err)

	msgType, raw, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, MsgSpeak, msgType)

	payload, err := UnmarshalPayload[SpeakPayload](raw)
	require.NoError(t, err)
	assert.Equal(t, "ನಮಸ್ಕಾರ", payload.Request.Text)
	assert.Equal(t, "kn-IN", payload.Request.Language)
}

func TestMarshalNilPayloadOmitsField(t *testing.T) {
	data, err := Marshal(MsgStopConversation, nil)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "payload")

	msgType, raw, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, MsgStopConversation, msgType)
	assert.Nil(t, raw)
}

func TestUnmarshalRejectsMissingType(t *testing.T) {
	_, _, err := Unmarshal([]byte(`{"payload":{}}`))
	assert.Error(t, err)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, _, err := Unmarshal([]byte(`not json`))
	assert.Error(t, err)
}
