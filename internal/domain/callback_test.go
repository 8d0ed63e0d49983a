package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackRoundTrip(t *testing.T) {
	cases := []CallbackAction{
		{Kind: ActionOpen, DeviceID: "5"},
		{Kind: ActionSnapshot, DeviceID: "123456"},
		{Kind: ActionOpen, DeviceID: "porch-2"},
		{Kind: ActionSnapshot, DeviceID: "block_a_7"},
	}
	for _, want := range cases {
		data, err := EncodeCallback(want)
		require.NoError(t, err)

		got, err := DecodeCallback(data)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestEncodeCallbackWireFormat(t *testing.T) {
	data, err := EncodeCallback(CallbackAction{Kind: ActionOpen, DeviceID: "5"})
	require.NoError(t, err)
	assert.Equal(t, "open_5", data)
	assert.Equal(t, "snapshot_17", MustEncodeCallback(ActionSnapshot, "17"))
}

func TestEncodeCallbackRejects(t *testing.T) {
	_, err := EncodeCallback(CallbackAction{Kind: ActionOpen})
	assert.ErrorIs(t, err, ErrMalformedCallback)

	_, err = EncodeCallback(CallbackAction{Kind: "close", DeviceID: "1"})
	assert.ErrorIs(t, err, ErrMalformedCallback)

	_, err = EncodeCallback(CallbackAction{Kind: ActionOpen, DeviceID: strings.Repeat("9", 64)})
	assert.ErrorIs(t, err, ErrMalformedCallback)
}

func TestDecodeCallbackMalformed(t *testing.T) {
	for _, data := range []string{"", "open", "open_", "_5", "close_5", "snapshot5"} {
		_, err := DecodeCallback(data)
		assert.ErrorIs(t, err, ErrMalformedCallback, "payload %q", data)
	}
}
