package env

import (
	"math/rand/v2"

	"github.com/zeusync/racer/internal/core/episode"
	"github.com/zeusync/racer/internal/core/systems/physics"
	"github.com/zeusync/racer/internal/core/vehicle"
)

// Policy maps an observation to an action. Trained policies live outside the
// process and talk to the server; the ones here drive local runs.
type Policy interface {
	Act(observation []float64) vehicle.Action
}

type PolicyFunc func(observation []float64) vehicle.Action

func (f PolicyFunc) Act(observation []float64) vehicle.Action { return f(observation) }

// RandomPolicy samples actions uniformly from the valid ranges.
type RandomPolicy struct {
	rng *rand.Rand
}

func NewRandomPolicy(seed uint64) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *RandomPolicy) Act([]float64) vehicle.Action {
	return vehicle.Action{
		Steer:    p.rng.Float64()*2 - 1,
		Throttle: p.rng.Float64(),
		Brake:    p.rng.Float64(),
	}
}

// HeadingPolicy steers the velocity towards the next checkpoint at full
// throttle. It reads the observation layout of Mode.
type HeadingPolicy struct {
	Mode     episode.ObservationMode
	Gain     float64
	Throttle float64
}

func NewHeadingPolicy(mode episode.ObservationMode) HeadingPolicy {
	return HeadingPolicy{Mode: mode, Gain: 4, Throttle: 1}
}

func (p HeadingPolicy) Act(obs []float64) vehicle.Action {
	var vx, vz, dx, dz float64
	switch p.Mode {
	case episode.ObservationPlanar3, episode.ObservationExtended:
		if len(obs) >= 6 {
			vx, vz, dx, dz = obs[0], obs[2], obs[3], obs[5]
		}
	default:
		if len(obs) >= 4 {
			vx, vz, dx, dz = obs[0], obs[1], obs[2], obs[3]
		}
	}
	// positive when the target lies clockwise of the velocity seen from above
	turn := vz*dx - vx*dz
	return vehicle.Action{
		Steer:    physics.Clamp(turn*p.Gain, -1, 1),
		Throttle: p.Throttle,
	}
}
