package rowcodec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpochRoundTripPreservesMicroseconds(t *testing.T) {
	cases := []int64{
		0,
		1,
		1_000_000,
		123_456_789_000,
		-5_000_000,
	}

	for _, microsSinceY2K := range cases {
		t1 := PGEpochToTime(microsSinceY2K)
		back := TimeToPGEpoch(t1)
		assert.Equal(t, microsSinceY2K, back, "round trip must preserve microsecond value for %d", microsSinceY2K)
	}
}

func TestDecodeTimerRowMissingColumn(t *testing.T) {
	row := NamedRow{
		"id":         int64(1),
		"expires_at": time.Now(),
	}

	_, err := DecodeTimerRow(row)
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestDecodeTimerRowNullID(t *testing.T) {
	row := NamedRow{
		"id":           nil,
		"expires_at":   time.Now(),
		"fired_at":     nil,
		"completed_at": nil,
	}

	_, err := DecodeTimerRow(row)
	require.ErrorIs(t, err, ErrNullInNonNullable)
}

func TestDecodeCreateTimerRowRejectsAlreadyFired(t *testing.T) {
	now := time.Now()
	row := NamedRow{
		"id":           int64(7),
		"expires_at":   now,
		"fired_at":     now,
		"completed_at": nil,
	}

	_, err := DecodeCreateTimerRow(row)
	require.ErrorIs(t, err, ErrAlreadyFiredOrDone)
}

func TestDecodeCreateTimerRowAccepted(t *testing.T) {
	now := time.Now()
	row := NamedRow{
		"id":           int64(9),
		"expires_at":   now,
		"fired_at":     nil,
		"completed_at": nil,
	}

	ct, err := DecodeCreateTimerRow(row)
	require.NoError(t, err)
	assert.Equal(t, int64(9), ct.ID)
}
