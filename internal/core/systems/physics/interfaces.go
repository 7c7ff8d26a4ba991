package physics

import "gonum.org/v1/gonum/spatial/r3"

// Lightweight rigid-body abstractions. The racing core reads and mutates the
// vehicle only through Body; integration and collision response stay behind
// the interface so any engine binding can be plugged in.

// Vec3 is a 3D vector in world space. Y is up, Z is forward at zero yaw.
type Vec3 = r3.Vec

// Pose is a planar-rotating pose: the vehicle only yaws around the up axis.
type Pose struct {
	Position Vec3    `json:"position" yaml:"position"`
	Yaw      float64 `json:"yaw" yaml:"yaw"` // degrees
}

// Body is the physical state of one vehicle.
type Body interface {
	Pose() Pose
	Forward() Vec3
	Velocity() Vec3
	AngularVelocity() Vec3
	LinearDamping() float64

	// Rotate applies an immediate kinematic yaw in degrees.
	Rotate(yawDegrees float64)
	// AddAcceleration queues a mass-independent acceleration for the next integration step.
	AddAcceleration(a Vec3)
	SetLinearDamping(d float64)

	SetPose(p Pose)
	SetVelocity(v Vec3)
	SetAngularVelocity(w Vec3)
}
