package creature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsnlops/creature-controller-go/internal/config"
	"github.com/opsnlops/creature-controller-go/internal/rig"
	"github.com/opsnlops/creature-controller-go/internal/units"
)

func parrotCrowConfig() config.CreatureConfig {
	servoIDs := []string{"neck_left", "neck_right", "neck_rotate", "body_lean", "beak"}
	servos := make([]config.ServoConfig, 0, len(servoIDs))
	for _, id := range servoIDs {
		servos = append(servos, config.ServoConfig{ID: id, MinUS: 1000, MaxUS: 2000, UpdateHz: 50})
	}
	return config.CreatureConfig{Name: "polly", RigVariant: "parrot_crow", Servos: servos}
}

func TestNewBuildsBankMatchingRigRequirements(t *testing.T) {
	r, err := rig.NewParrotCrow("polly", rig.ParrotCrowConfig{
		PositionMin: 0, PositionMax: 1023, HeadOffsetMaxPercent: 0.4,
	})
	require.NoError(t, err)

	c, err := New(parrotCrowConfig(), r)

	require.NoError(t, err)
	assert.Equal(t, "polly", c.Name)
	assert.Equal(t, 5, c.Bank.Len())
}

func TestNewFailsPreflightWhenRequiredServoMissing(t *testing.T) {
	r, err := rig.NewParrotCrow("polly", rig.ParrotCrowConfig{
		PositionMin: 0, PositionMax: 1023, HeadOffsetMaxPercent: 0.4,
	})
	require.NoError(t, err)

	cfg := parrotCrowConfig()
	cfg.Servos = cfg.Servos[:len(cfg.Servos)-1] // drop "beak"

	_, err = New(cfg, r)

	require.Error(t, err)
}

func TestNewResolvesConfiguredDefaultChoicePerServo(t *testing.T) {
	r, err := rig.NewParrotCrow("polly", rig.ParrotCrowConfig{
		PositionMin: 0, PositionMax: 1023, HeadOffsetMaxPercent: 0.4,
	})
	require.NoError(t, err)

	cfg := parrotCrowConfig()
	for i := range cfg.Servos {
		switch cfg.Servos[i].ID {
		case "neck_left":
			cfg.Servos[i].Default = "min"
		case "neck_right":
			cfg.Servos[i].Default = "max"
		}
	}

	c, err := New(cfg, r)
	require.NoError(t, err)

	assert.Equal(t, units.Microseconds(1000), c.Bank.Get("neck_left").CurrentUS())
	assert.Equal(t, units.Microseconds(2000), c.Bank.Get("neck_right").CurrentUS())
	assert.Equal(t, units.Microseconds(1500), c.Bank.Get("neck_rotate").CurrentUS())
}

func TestNewRejectsInvalidServoConfig(t *testing.T) {
	r, err := rig.NewParrotCrow("polly", rig.ParrotCrowConfig{
		PositionMin: 0, PositionMax: 1023, HeadOffsetMaxPercent: 0.4,
	})
	require.NoError(t, err)

	cfg := parrotCrowConfig()
	cfg.Servos[0].MinUS, cfg.Servos[0].MaxUS = 2000, 1000

	_, err = New(cfg, r)

	require.Error(t, err)
}
