package physics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

var _ Body = (*RigidBody)(nil)

// RigidBody is a point-mass body with yaw-only rotation and linear damping.
// It is the reference integrator used by the bundled harness; engines with
// their own solver implement Body directly instead.
type RigidBody struct {
	name     string
	pose     Pose
	velocity Vec3
	angular  Vec3 // degrees per second, only Y is integrated
	damping  float64
	accel    Vec3
}

// NewRigidBody creates a body at rest at the given pose.
func NewRigidBody(name string, pose Pose, damping float64) *RigidBody {
	return &RigidBody{name: name, pose: pose, damping: damping}
}

func (b *RigidBody) Pose() Pose             { return b.pose }
func (b *RigidBody) Forward() Vec3          { return ForwardFromYaw(b.pose.Yaw) }
func (b *RigidBody) Velocity() Vec3         { return b.velocity }
func (b *RigidBody) AngularVelocity() Vec3  { return b.angular }
func (b *RigidBody) LinearDamping() float64 { return b.damping }

func (b *RigidBody) Rotate(yawDegrees float64) {
	b.pose.Yaw = math.Mod(b.pose.Yaw+yawDegrees, 360)
}

func (b *RigidBody) AddAcceleration(a Vec3)     { b.accel = r3.Add(b.accel, a) }
func (b *RigidBody) SetLinearDamping(d float64) { b.damping = math.Max(0, d) }
func (b *RigidBody) SetPose(p Pose)             { b.pose = p }
func (b *RigidBody) SetVelocity(v Vec3)         { b.velocity = v }
func (b *RigidBody) SetAngularVelocity(w Vec3)  { b.angular = w }
func (b *RigidBody) PendingAcceleration() Vec3  { return b.accel }
func (b *RigidBody) AddImpulse(deltaV Vec3)     { b.velocity = r3.Add(b.velocity, deltaV) }

// Integrate advances the body by dt seconds using semi-implicit Euler with
// the damping model v *= 1 / (1 + damping*dt).
func (b *RigidBody) Integrate(dt float64) {
	if dt <= 0 {
		return
	}
	b.velocity = r3.Add(b.velocity, r3.Scale(dt, b.accel))
	b.velocity = r3.Scale(1/(1+b.damping*dt), b.velocity)
	b.pose.Position = r3.Add(b.pose.Position, r3.Scale(dt, b.velocity))
	if b.angular.Y != 0 {
		b.Rotate(b.angular.Y * dt)
	}
	b.accel = Vec3{}
}

// Name, FixedUpdate and Reset let the body run as a system in a tick pipeline.

func (b *RigidBody) Name() string { return b.name }

func (b *RigidBody) FixedUpdate(dt time.Duration) error {
	b.Integrate(dt.Seconds())
	return nil
}

func (b *RigidBody) Reset() error {
	b.accel = Vec3{}
	return nil
}
