package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputToPosition(t *testing.T) {
	assert.Equal(t, Position(0), InputToPosition(0))
	assert.Equal(t, MaxPosition, InputToPosition(255))
	// 128*1023/255 = 513.51, which rounds to 514.
	assert.Equal(t, Position(514), InputToPosition(128))
}

func TestPositionToMicrosecondsCenter(t *testing.T) {
	us := PositionToMicroseconds(512, 1250, 2250)
	assert.InDelta(t, 1750, int(us), 1)
}

func TestLerpTruncatesNotRounds(t *testing.T) {
	// 2/3 of the way from 0 to 10 is 6.67: truncated is 6, not 7.
	assert.Equal(t, 6, Lerp(2, 0, 3, 0, 10))
}

func TestInvertRoundTrip(t *testing.T) {
	for p := Position(0); p <= MaxPosition; p++ {
		assert.Equal(t, p, Invert(Invert(p)))
	}
}

func TestValidateRange(t *testing.T) {
	require.NoError(t, ValidateRange(1000, 2000, 1500))
	require.Error(t, ValidateRange(2000, 1000, 1500))
	require.Error(t, ValidateRange(1000, 2000, 500))
}

func TestResolveDefault(t *testing.T) {
	assert.Equal(t, Microseconds(1000), ResolveDefault(DefaultMin, 1000, 2000))
	assert.Equal(t, Microseconds(2000), ResolveDefault(DefaultMax, 1000, 2000))
	assert.Equal(t, Microseconds(1500), ResolveDefault(DefaultCenter, 1000, 2000))
}
