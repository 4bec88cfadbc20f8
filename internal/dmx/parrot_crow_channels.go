package dmx

// ParrotCrowChannels is the fixed DMX channel layout for the Parrot/Crow rig
// variant: one single-byte slot per required input, assigned sequentially.
// Rig variants are a closed, compile-time set, so this layout is a Go
// constant rather than data driven.
func ParrotCrowChannels() []Channel {
	names := []string{
		"head_height", "head_tilt", "neck_rotate",
		"body_lean", "beak", "chest", "stand_rotate",
	}
	channels := make([]Channel, len(names))
	for i, name := range names {
		channels[i] = Channel{Name: name, Slot: i, Width: Width1}
	}
	return channels
}
