package renderer

// Mode selects where visibility culling runs.
type Mode int

const (
	// ModeCPUPowered tests bounding spheres on the host and records one
	// draw per visible object. Works on any device.
	ModeCPUPowered Mode = iota

	// ModeGPUPowered uploads every object and culls in a compute shader,
	// drawing the survivors indirectly. Requires the
	// indirect-first-instance device feature.
	ModeGPUPowered
)

// String returns the human-readable form of the mode.
//
// Returns:
//   - string: the mode name
func (m Mode) String() string {
	switch m {
	case ModeCPUPowered:
		return "cpu-powered"
	case ModeGPUPowered:
		return "gpu-powered"
	default:
		return "unknown"
	}
}
