package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTripKeepsTypeAndNumbers(t *testing.T) {
	e := New(TypeCreditsSpent, map[string]interface{}{"user_id": "u-1", "amount": 3})

	raw, err := Marshal(e)
	require.NoError(t, err)

	back, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeCreditsSpent, back.EventType())
	assert.Equal(t, "u-1", back.String("user_id"))
	assert.Equal(t, 3, back.Int("amount"))
	assert.Equal(t, 0, back.Int("missing"))
	assert.True(t, e.Timestamp().Equal(back.Timestamp()))
}
