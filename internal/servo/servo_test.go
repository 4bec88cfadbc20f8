package servo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsnlops/creature-controller-go/internal/units"
)

func TestS1ParrotCentered(t *testing.T) {
	s, err := New("neck_left", Location{}, 1250, 2250, units.DefaultCenter, 0, false, 50)
	require.NoError(t, err)

	require.NoError(t, s.Request(512))
	assert.InDelta(t, 1750, int(s.DesiredUS()), 1)

	s.Tick()
	assert.InDelta(t, 1750, int(s.CurrentUS()), 1)
}

func TestS2SmoothingConvergence(t *testing.T) {
	s, err := New("neck_left", Location{}, 1000, 2000, units.DefaultMin, 0.9, false, 50)
	require.NoError(t, err)

	// Force an initial current_us of 1000 (already the default) and a
	// desired of 2000.
	require.NoError(t, s.Request(1023))
	assert.Equal(t, units.Microseconds(2000), s.DesiredUS())

	for i := 0; i < 10; i++ {
		s.Tick()
	}
	assert.InDelta(t, 1651, int(s.CurrentUS()), 2)

	for i := 0; i < 90; i++ {
		s.Tick()
	}
	assert.Equal(t, units.Microseconds(2000), s.CurrentUS())
}

func TestSmoothingRejectsOne(t *testing.T) {
	_, err := New("x", Location{}, 1000, 2000, units.DefaultCenter, 1.0, false, 50)
	require.Error(t, err)
}

func TestRangeInvariant(t *testing.T) {
	_, err := New("x", Location{}, 2000, 1000, units.DefaultCenter, 0, false, 50)
	require.Error(t, err)
}

// Property 1: for every position and every valid servo, repeated Tick
// converges monotonically toward desired_us without overshoot.
func TestPropertyConvergesMonotonically(t *testing.T) {
	for _, p := range []units.Position{0, 1, 256, 511, 512, 768, 1023} {
		s, err := New("x", Location{}, 1000, 2000, units.DefaultCenter, 0.5, false, 50)
		require.NoError(t, err)
		require.NoError(t, s.Request(p))

		desired := s.DesiredUS()
		prevDist := absDist(s.CurrentUS(), desired)
		for i := 0; i < 200; i++ {
			s.Tick()
			dist := absDist(s.CurrentUS(), desired)
			assert.LessOrEqual(t, dist, prevDist, "position %d: overshoot or divergence at tick %d", p, i)
			prevDist = dist
		}
		assert.Equal(t, desired, s.CurrentUS())
	}
}

// Property 2: Position() after Request(p) returns p, or 1023-p if inverted.
func TestPropertyPositionRoundTrip(t *testing.T) {
	for _, inverted := range []bool{false, true} {
		s, err := New("x", Location{}, 1000, 2000, units.DefaultCenter, 0, inverted, 50)
		require.NoError(t, err)
		for _, p := range []units.Position{0, 1, 512, 1023} {
			require.NoError(t, s.Request(p))
			want := p
			if inverted {
				want = units.Invert(p)
			}
			assert.Equal(t, want, s.Position())
		}
	}
}

func TestRequestOutOfRangeLeavesStateUnchanged(t *testing.T) {
	s, err := New("x", Location{}, 1000, 2000, units.DefaultCenter, 0, false, 50)
	require.NoError(t, err)
	before := s.DesiredUS()

	require.Error(t, s.Request(1024))
	require.Error(t, s.Request(-1))
	assert.Equal(t, before, s.DesiredUS())
}

func absDist(a, b units.Microseconds) units.Microseconds {
	if a > b {
		return a - b
	}
	return b - a
}
