package vehicle

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/racer/internal/core/systems/physics"
)

const tick = 20 * time.Millisecond

func newController(t *testing.T) *Controller {
	t.Helper()
	c, err := NewController(DefaultSettings())
	require.NoError(t, err)
	return c
}

func TestActionClamped(t *testing.T) {
	a := Action{Steer: -4, Throttle: 2, Brake: -1}.Clamped()
	assert.Equal(t, Action{Steer: -1, Throttle: 1, Brake: 0}, a)

	a = Action{Steer: math.NaN(), Throttle: 0.5, Brake: math.Inf(1)}.Clamped()
	assert.Equal(t, Action{Steer: 0, Throttle: 0.5, Brake: 1}, a)
}

func TestActionFromSlice(t *testing.T) {
	a, err := ActionFromSlice([]float64{0.1, 0.2, 0.3})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, a.Slice())

	_, err = ActionFromSlice([]float64{1, 2})
	assert.ErrorIs(t, err, ErrActionSize)
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	bad := DefaultSettings()
	bad.MaxSpeed = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSettings)

	bad = DefaultSettings()
	bad.BrakeDrag = -1
	_, err := NewController(bad)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestApplySteersKinematically(t *testing.T) {
	c := newController(t)
	body := physics.NewRigidBody("car", physics.Pose{}, 0)

	cmd := c.Apply(body, Action{Steer: 1}, time.Second)
	assert.InDelta(t, 30, cmd.YawDelta, 1e-9)
	assert.InDelta(t, 30, body.Pose().Yaw, 1e-9)
	assert.Equal(t, physics.Vec3{}, body.AngularVelocity(), "steering is not a torque")

	c.Apply(body, Action{Steer: -0.5}, tick)
	assert.InDelta(t, 30-0.3, body.Pose().Yaw, 1e-9)
}

func TestApplyAcceleratesAlongForward(t *testing.T) {
	c := newController(t)
	body := physics.NewRigidBody("car", physics.Pose{Yaw: 90}, 0)

	cmd := c.Apply(body, Action{Throttle: 0.5}, tick)
	assert.False(t, cmd.Gated)
	assert.InDelta(t, 250, cmd.Acceleration.X, 1e-9)
	assert.InDelta(t, 0, cmd.Acceleration.Z, 1e-9)
	assert.Equal(t, cmd.Acceleration, body.PendingAcceleration())
}

func TestSpeedGate(t *testing.T) {
	c := newController(t)

	below := physics.NewRigidBody("car", physics.Pose{}, 0)
	below.SetVelocity(physics.Vec3{Z: 19.9})
	cmd := c.Apply(below, Action{Throttle: 1}, tick)
	assert.False(t, cmd.Gated)
	assert.InDelta(t, 500, below.PendingAcceleration().Z, 1e-9)

	above := physics.NewRigidBody("car", physics.Pose{}, 0)
	above.SetVelocity(physics.Vec3{Z: 10})
	above.AddImpulse(physics.Vec3{Z: 10.1})
	cmd = c.Apply(above, Action{Steer: 1, Throttle: 1, Brake: 1}, tick)
	assert.True(t, cmd.Gated)
	assert.Equal(t, physics.Vec3{}, above.PendingAcceleration())
	assert.InDelta(t, 20.1, physics.Speed(above.Velocity()), 1e-9, "velocity is not clamped")
	assert.InDelta(t, 5, above.LinearDamping(), 1e-9, "damping still applies")
	assert.InDelta(t, 0.6, above.Pose().Yaw, 1e-9, "steering still applies")
}

func TestDampingFollowsBrake(t *testing.T) {
	c := newController(t)
	body := physics.NewRigidBody("car", physics.Pose{}, 0)

	for _, tc := range []struct{ brake, want float64 }{
		{0, 0.1},
		{1, 5},
		{0.5, 2.55},
		{3, 5},
	} {
		cmd := c.Apply(body, Action{Brake: tc.brake}, tick)
		assert.InDelta(t, tc.want, cmd.Damping, 1e-9)
		assert.InDelta(t, tc.want, body.LinearDamping(), 1e-9)
	}
}
