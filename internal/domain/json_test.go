package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
		D FlexString `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": "5", "b": 79991234567, "c": null}`), &v))
	assert.Equal(t, FlexString("5"), v.A)
	assert.Equal(t, "79991234567", v.B.String())
	assert.Empty(t, v.C)
	assert.Empty(t, v.D)

	assert.Error(t, json.Unmarshal([]byte(`{"a": true}`), &v))
}
