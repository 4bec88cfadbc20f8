package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsnlops/creature-controller-go/internal/errkind"
)

func validServo(id string) ServoConfig {
	return ServoConfig{ID: id, MinUS: 1000, MaxUS: 2000, Smoothing: 0.2, UpdateHz: 50}
}

func TestServoConfigValidateRejectsInvertedBounds(t *testing.T) {
	s := validServo("neck_left")
	s.MinUS, s.MaxUS = 2000, 1000

	err := s.Validate()

	require.Error(t, err)
	kind, ok := errkind.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errkind.InvalidConfiguration, kind)
}

func TestServoConfigValidateRejectsSmoothingOutOfRange(t *testing.T) {
	s := validServo("beak")
	s.Smoothing = 1.0

	err := s.Validate()

	require.Error(t, err)
}

func TestServoConfigValidateAcceptsKnownDefaultChoices(t *testing.T) {
	for _, choice := range []string{"", "min", "max", "center"} {
		s := validServo("beak")
		s.Default = choice
		require.NoError(t, s.Validate(), choice)
	}
}

func TestServoConfigValidateRejectsUnknownDefaultChoice(t *testing.T) {
	s := validServo("beak")
	s.Default = "middle"

	err := s.Validate()

	require.Error(t, err)
}

func TestCreatureConfigValidateReturnsImpliedServoIDs(t *testing.T) {
	c := CreatureConfig{
		Name:       "parrot",
		RigVariant: "parrot_crow",
		Servos:     []ServoConfig{validServo("neck_left"), validServo("beak")},
	}

	implied, optional, err := c.Validate()

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"neck_left", "beak"}, implied)
	assert.Empty(t, optional)
}

func TestCreatureConfigValidateFlagsMissingUpdateHzAsOptional(t *testing.T) {
	s := validServo("neck_left")
	s.UpdateHz = 0
	c := CreatureConfig{Name: "parrot", RigVariant: "parrot_crow", Servos: []ServoConfig{s}}

	_, optional, err := c.Validate()

	require.NoError(t, err)
	assert.Contains(t, optional, "neck_left.update_hz")
}

func TestCreatureConfigValidateRejectsDuplicateServoIDs(t *testing.T) {
	c := CreatureConfig{
		Name:       "parrot",
		RigVariant: "parrot_crow",
		Servos:     []ServoConfig{validServo("neck_left"), validServo("neck_left")},
	}

	_, _, err := c.Validate()

	require.Error(t, err)
}

func TestCreatureConfigValidateRequiresAtLeastOneServo(t *testing.T) {
	c := CreatureConfig{Name: "parrot", RigVariant: "parrot_crow"}

	_, _, err := c.Validate()

	require.Error(t, err)
}

func TestControllerConfigValidateRequiresKnownScheme(t *testing.T) {
	c := ControllerConfig{LinkAddr: "ftp://bogus"}

	_, _, err := c.Validate()

	require.Error(t, err)
}

func TestControllerConfigValidateAcceptsSerialAndTCP(t *testing.T) {
	for _, addr := range []string{"serial:///dev/ttyACM0", "tcp://localhost:9999"} {
		c := ControllerConfig{LinkAddr: addr}
		_, _, err := c.Validate()
		require.NoError(t, err, addr)
	}
}

func TestControllerConfigValidateFlagsUnsetOptionalFields(t *testing.T) {
	c := ControllerConfig{LinkAddr: "tcp://localhost:9999"}

	_, optional, err := c.Validate()

	require.NoError(t, err)
	assert.Contains(t, optional, "outbound_url")
	assert.Contains(t, optional, "max_power_watts")
	assert.Contains(t, optional, "max_temp_celsius")
}
