package vehicle

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zeusync/racer/internal/core/systems/physics"
)

// Settings are the immutable tuning constants of a vehicle.
type Settings struct {
	AccelerationForce float64 `json:"acceleration_force" yaml:"acceleration_force"`
	SteeringForce     float64 `json:"steering_force" yaml:"steering_force"` // degrees per second at full lock
	MaxSpeed          float64 `json:"max_speed" yaml:"max_speed"`
	NormalDrag        float64 `json:"normal_drag" yaml:"normal_drag"`
	BrakeDrag         float64 `json:"brake_drag" yaml:"brake_drag"`
}

// DefaultSettings returns the stock car tuning.
func DefaultSettings() Settings {
	return Settings{
		AccelerationForce: 500,
		SteeringForce:     30,
		MaxSpeed:          20,
		NormalDrag:        0.1,
		BrakeDrag:         5,
	}
}

func (s Settings) Validate() error {
	switch {
	case s.AccelerationForce < 0:
		return fmt.Errorf("%w: acceleration_force must not be negative", ErrInvalidSettings)
	case s.SteeringForce < 0:
		return fmt.Errorf("%w: steering_force must not be negative", ErrInvalidSettings)
	case s.MaxSpeed <= 0:
		return fmt.Errorf("%w: max_speed must be positive", ErrInvalidSettings)
	case s.NormalDrag < 0 || s.BrakeDrag < 0:
		return fmt.Errorf("%w: drag must not be negative", ErrInvalidSettings)
	}
	return nil
}

// Command is what one Apply call did to the body.
type Command struct {
	Action       Action       // clamped input
	YawDelta     float64      // degrees
	Acceleration physics.Vec3 // zero when gated
	Gated        bool         // speed was at or above MaxSpeed
	Damping      float64
}

// Controller maps actions to body commands. It has no per-episode state.
type Controller struct {
	settings Settings
}

func NewController(s Settings) (*Controller, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Controller{settings: s}, nil
}

func (c *Controller) Settings() Settings { return c.settings }

// Apply steers kinematically, accelerates along the body's forward axis only
// while speed is below MaxSpeed, and sets damping from the brake input. The
// cap gates force rather than clamping velocity, so external impulses may
// push the body past it.
func (c *Controller) Apply(body physics.Body, a Action, dt time.Duration) Command {
	a = a.Clamped()
	cmd := Command{Action: a}

	cmd.YawDelta = a.Steer * c.settings.SteeringForce * dt.Seconds()
	if cmd.YawDelta != 0 {
		body.Rotate(cmd.YawDelta)
	}

	if physics.Speed(body.Velocity()) < c.settings.MaxSpeed {
		cmd.Acceleration = r3.Scale(a.Throttle*c.settings.AccelerationForce, body.Forward())
		body.AddAcceleration(cmd.Acceleration)
	} else {
		cmd.Gated = true
	}

	cmd.Damping = physics.Lerp(c.settings.NormalDrag, c.settings.BrakeDrag, a.Brake)
	body.SetLinearDamping(cmd.Damping)
	return cmd
}
