package vehicle

import (
	"fmt"
	"math"

	"github.com/zeusync/racer/internal/core/systems/physics"
)

// ActionSize is the number of continuous action components.
const ActionSize = 3

// Action is one tick of control input.
type Action struct {
	Steer    float64 `json:"steer"`    // [-1, 1]
	Throttle float64 `json:"throttle"` // [0, 1]
	Brake    float64 `json:"brake"`    // [0, 1]
}

// ActionFromSlice reads [steer, throttle, brake].
func ActionFromSlice(v []float64) (Action, error) {
	if len(v) != ActionSize {
		return Action{}, fmt.Errorf("%w: got %d", ErrActionSize, len(v))
	}
	return Action{Steer: v[0], Throttle: v[1], Brake: v[2]}, nil
}

// Clamped limits each component to its range. NaN components become 0.
func (a Action) Clamped() Action {
	return Action{
		Steer:    clamp(a.Steer, -1, 1),
		Throttle: clamp(a.Throttle, 0, 1),
		Brake:    clamp(a.Brake, 0, 1),
	}
}

// Slice returns [steer, throttle, brake].
func (a Action) Slice() []float64 { return []float64{a.Steer, a.Throttle, a.Brake} }

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return physics.Clamp(x, lo, hi)
}
