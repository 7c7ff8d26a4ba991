package episode

import (
	"fmt"
	"strings"

	"github.com/zeusync/racer/internal/core/systems/physics"
)

// ObservationMode selects the observation vector layout. The layout is a
// binding contract with the trained policy: a size mismatch is silent on the
// policy side, so it is pinned and checked at construction.
type ObservationMode string

const (
	// ObservationPlanar: vx, vz, dx, dz, each pair normalized in the ground plane.
	ObservationPlanar ObservationMode = "planar"
	// ObservationPlanar3: the planar vectors written as 3-vectors with y = 0.
	ObservationPlanar3 ObservationMode = "planar3"
	// ObservationExtended: vx, vy, vz, dx, dy, dz normalized in 3D, then lap progress.
	ObservationExtended ObservationMode = "extended"
)

// ParseObservationMode is case-insensitive.
func ParseObservationMode(s string) (ObservationMode, error) {
	m := ObservationMode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return ObservationPlanar, nil
	}
	if !m.Valid() {
		return ObservationPlanar, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

func (m ObservationMode) Valid() bool {
	return m.Size() > 0
}

// Size is the number of values the mode produces.
func (m ObservationMode) Size() int {
	switch m {
	case ObservationPlanar:
		return 4
	case ObservationPlanar3:
		return 6
	case ObservationExtended:
		return 7
	default:
		return 0
	}
}

// BuildObservation appends the observation for the given velocity, direction
// to the next checkpoint and lap progress to dst.
func BuildObservation(dst []float64, mode ObservationMode, velocity, direction physics.Vec3, progress float64) []float64 {
	switch mode {
	case ObservationPlanar3:
		v := physics.Normalize(physics.Planar(velocity))
		d := physics.Normalize(physics.Planar(direction))
		return append(dst, v.X, 0, v.Z, d.X, 0, d.Z)
	case ObservationExtended:
		v := physics.Normalize(velocity)
		d := physics.Normalize(direction)
		return append(dst, v.X, v.Y, v.Z, d.X, d.Y, d.Z, progress)
	default:
		v := physics.Normalize(physics.Planar(velocity))
		d := physics.Normalize(physics.Planar(direction))
		return append(dst, v.X, v.Z, d.X, d.Z)
	}
}
