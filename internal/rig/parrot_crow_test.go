package rig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsnlops/creature-controller-go/internal/servo"
	"github.com/opsnlops/creature-controller-go/internal/units"
)

func buildBank(t *testing.T, ids ...string) *servo.Bank {
	t.Helper()
	bank := servo.NewBank()
	for _, id := range ids {
		s, err := servo.New(id, servo.Location{}, 1000, 2000, units.DefaultCenter, 0, false, 50)
		require.NoError(t, err)
		require.NoError(t, bank.Add(s))
	}
	return bank
}

func TestParrotCrowPreflightMissingServo(t *testing.T) {
	r, err := NewParrotCrow("parrot", ParrotCrowConfig{PositionMin: 0, PositionMax: 1023, HeadOffsetMaxPercent: 0.4})
	require.NoError(t, err)

	bank := buildBank(t, "neck_left", "neck_right") // missing neck_rotate, body_lean, beak
	require.Error(t, r.Preflight(bank))

	full := buildBank(t, "neck_left", "neck_right", "neck_rotate", "body_lean", "beak")
	require.NoError(t, r.Preflight(full))
}

func TestParrotCrowMapMissingInputWarnsNotFails(t *testing.T) {
	r, err := NewParrotCrow("parrot", ParrotCrowConfig{PositionMin: 0, PositionMax: 1023, HeadOffsetMaxPercent: 0.4})
	require.NoError(t, err)
	bank := buildBank(t, "neck_left", "neck_right", "neck_rotate", "body_lean", "beak")

	missing := r.Map(Inputs{}, bank)
	assert.NotEmpty(t, missing)
}

func TestParrotCrowMapsFullInputs(t *testing.T) {
	r, err := NewParrotCrow("parrot", ParrotCrowConfig{PositionMin: 0, PositionMax: 1023, HeadOffsetMaxPercent: 0.4})
	require.NoError(t, err)
	bank := buildBank(t, "neck_left", "neck_right", "neck_rotate", "body_lean", "beak")

	inputs := Inputs{
		"head_height":  128,
		"head_tilt":    128,
		"neck_rotate":  64,
		"body_lean":    64,
		"beak":         64,
		"chest":        0,
		"stand_rotate": 0,
	}
	missing := r.Map(inputs, bank)
	assert.Empty(t, missing)
	assert.True(t, bank.Get("beak").Position() >= 0)
}
