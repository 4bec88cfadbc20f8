// Package creature owns the composition root tying one creature's rig and
// servo bank together: Creature owns *rig.Rig and *servo.Bank outright;
// FrameScheduler only ever borrows them for the duration of a tick. No
// package anywhere holds a back-pointer into Creature, resolving the
// cyclic-reference design question by one-way ownership rather than shared
// mutable state.
package creature

import (
	"github.com/opsnlops/creature-controller-go/internal/config"
	"github.com/opsnlops/creature-controller-go/internal/errkind"
	"github.com/opsnlops/creature-controller-go/internal/rig"
	"github.com/opsnlops/creature-controller-go/internal/servo"
	"github.com/opsnlops/creature-controller-go/internal/units"
)

// Creature is one animatronic creature: a named rig and the bank of servos
// it drives.
type Creature struct {
	Name string
	Rig  *rig.Rig
	Bank *servo.Bank
}

// New constructs a Creature's servo bank from cfg's servo list and checks it
// against r's Preflight requirements before returning. r must already be
// built (e.g. via rig.NewParrotCrow) from the same CreatureConfig.
func New(cfg config.CreatureConfig, r *rig.Rig) (*Creature, error) {
	if _, _, err := cfg.Validate(); err != nil {
		return nil, err
	}

	bank := servo.NewBank()
	for _, sc := range cfg.Servos {
		loc := servo.Location{
			ModuleTag:      sc.Board,
			Header:         sc.Header,
			Pin:            sc.Pin,
			IsDynamixel:    sc.Dynamixel,
			DynamixelBusID: sc.BusID,
		}
		s, err := servo.New(sc.ID, loc, sc.MinUS, sc.MaxUS, defaultChoice(sc.Default), sc.Smoothing, sc.Inverted, sc.UpdateHz)
		if err != nil {
			return nil, err
		}
		if err := bank.Add(s); err != nil {
			return nil, err
		}
	}

	if err := r.Preflight(bank); err != nil {
		return nil, errkind.Wrap(errkind.InvalidConfiguration, err, "creature "+cfg.Name+" failed rig preflight")
	}

	return &Creature{Name: cfg.Name, Rig: r, Bank: bank}, nil
}

// defaultChoice maps a ServoConfig's symbolic default ("min"/"max"/"center",
// or "" for center) onto units.DefaultChoice. config.ServoConfig.Validate
// has already rejected any other value.
func defaultChoice(s string) units.DefaultChoice {
	switch s {
	case "min":
		return units.DefaultMin
	case "max":
		return units.DefaultMax
	default:
		return units.DefaultCenter
	}
}
