package physics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardFromYaw(t *testing.T) {
	f := ForwardFromYaw(0)
	assert.InDelta(t, 1, f.Z, 1e-9)
	assert.InDelta(t, 0, f.X, 1e-9)

	f = ForwardFromYaw(90)
	assert.InDelta(t, 1, f.X, 1e-9)
	assert.InDelta(t, 0, f.Z, 1e-9)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Vec3{}, Normalize(Vec3{}))
	assert.Equal(t, Vec3{}, Normalize(Vec3{X: 1e-7}))

	n := Normalize(Vec3{X: 3, Z: 4})
	assert.InDelta(t, 0.6, n.X, 1e-9)
	assert.InDelta(t, 0.8, n.Z, 1e-9)
}

func TestClampAndLerp(t *testing.T) {
	assert.Equal(t, -1.0, Clamp(-3, -1, 1))
	assert.Equal(t, 1.0, Clamp(3, -1, 1))
	assert.Equal(t, 0.5, Clamp(0.5, -1, 1))

	assert.InDelta(t, 0.1, Lerp(0.1, 5, 0), 1e-12)
	assert.InDelta(t, 5, Lerp(0.1, 5, 1), 1e-12)
	assert.InDelta(t, 2.55, Lerp(0.1, 5, 0.5), 1e-12)
	assert.InDelta(t, 5, Lerp(0.1, 5, 2), 1e-12)
}

func TestRigidBodyIntegrate(t *testing.T) {
	b := NewRigidBody("car", Pose{}, 0)
	b.AddAcceleration(Vec3{Z: 10})
	b.Integrate(0.5)

	assert.InDelta(t, 5, b.Velocity().Z, 1e-9)
	assert.InDelta(t, 2.5, b.Pose().Position.Z, 1e-9)
	assert.Equal(t, Vec3{}, b.PendingAcceleration(), "acceleration is consumed by a step")

	b.Integrate(0.5)
	assert.InDelta(t, 5, b.Velocity().Z, 1e-9, "no damping keeps velocity")
}

func TestRigidBodyDamping(t *testing.T) {
	b := NewRigidBody("car", Pose{}, 1)
	b.SetVelocity(Vec3{X: 10})
	b.Integrate(1)
	assert.InDelta(t, 5, b.Velocity().X, 1e-9)

	b.SetLinearDamping(-2)
	assert.Equal(t, 0.0, b.LinearDamping())
}

func TestRigidBodyRotateAndSystem(t *testing.T) {
	b := NewRigidBody("car", Pose{Yaw: 350}, 0)
	b.Rotate(20)
	assert.InDelta(t, 10, b.Pose().Yaw, 1e-9)

	b.SetAngularVelocity(Vec3{Y: 90})
	require.NoError(t, b.FixedUpdate(time.Second))
	assert.InDelta(t, 100, b.Pose().Yaw, 1e-9)
	assert.Equal(t, "car", b.Name())

	b.AddAcceleration(Vec3{X: 1})
	require.NoError(t, b.Reset())
	assert.Equal(t, Vec3{}, b.PendingAcceleration())
	assert.False(t, math.IsNaN(b.Forward().X))
}
