package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/racer/internal/core/systems"
	"github.com/zeusync/racer/internal/core/systems/physics"
	"github.com/zeusync/racer/internal/core/track"
)

type feedRecorder struct {
	entered []string
	walls   int
}

func (f *feedRecorder) CheckpointEntered(cp *track.Checkpoint) {
	f.entered = append(f.entered, cp.Label())
}

func (f *feedRecorder) WallCollision() { f.walls++ }

func testCourse(t *testing.T) *track.Course {
	t.Helper()
	course, err := track.NewCourse([]track.Spec{
		{Label: "CP0", Position: physics.Vec3{Z: 5}, Radius: 1},
		{Label: "CP1", Position: physics.Vec3{Z: 10}},
	})
	require.NoError(t, err)
	return course
}

func TestNewValidation(t *testing.T) {
	course := testCourse(t)
	body := physics.NewRigidBody("car", physics.Pose{}, 0)
	feed := &feedRecorder{}

	_, err := New(DefaultConfig(), nil, course, nil, feed, nil)
	assert.ErrorIs(t, err, ErrNilBody)

	_, err = New(DefaultConfig(), body, course, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNilFeed)

	_, err = New(Config{VehicleRadius: -1}, body, course, nil, feed, nil)
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = New(DefaultConfig(), body, course, []Wall{{Name: "bad", Min: physics.Vec3{X: 1}}}, feed, nil)
	assert.ErrorIs(t, err, ErrInvalidWall)
}

func TestCheckpointEntryIsEdgeTriggered(t *testing.T) {
	course := testCourse(t)
	body := physics.NewRigidBody("car", physics.Pose{}, 0)
	feed := &feedRecorder{}
	w, err := New(Config{VehicleRadius: 0.5, CheckpointRadius: 2}, body, course, nil, feed, nil)
	require.NoError(t, err)

	steps := []struct {
		z    float64
		want []string
	}{
		{z: 0, want: nil},
		{z: 3.6, want: []string{"CP0"}}, // 5 - (1 + 0.5) = 3.5
		{z: 5, want: []string{"CP0"}},
		{z: 7, want: []string{"CP0"}},
		{z: 8, want: []string{"CP0", "CP1"}}, // default radius 2 + 0.5
		{z: 4, want: []string{"CP0", "CP1", "CP0"}},
	}
	for _, s := range steps {
		body.SetPose(physics.Pose{Position: physics.Vec3{Z: s.z}})
		require.NoError(t, w.FixedUpdate(20*time.Millisecond))
		assert.Equal(t, s.want, feed.entered, "z=%v", s.z)
	}
	assert.Equal(t, uint64(3), w.Stats().CheckpointEntries)
}

func TestWallContact(t *testing.T) {
	course := testCourse(t)
	body := physics.NewRigidBody("car", physics.Pose{}, 0)
	feed := &feedRecorder{}
	walls := []Wall{{Name: "left", Min: physics.Vec3{X: -3, Y: -1, Z: -50}, Max: physics.Vec3{X: -2, Y: 1, Z: 50}}}
	w, err := New(DefaultConfig(), body, course, walls, feed, nil)
	require.NoError(t, err)

	require.NoError(t, w.FixedUpdate(0))
	assert.Zero(t, feed.walls)

	body.SetPose(physics.Pose{Position: physics.Vec3{X: -1.6}})
	require.NoError(t, w.FixedUpdate(0))
	require.NoError(t, w.FixedUpdate(0))
	assert.Equal(t, 1, feed.walls)

	require.NoError(t, w.Reset())
	require.NoError(t, w.FixedUpdate(0))
	assert.Equal(t, 2, feed.walls, "contact state is forgotten on reset")
	assert.Equal(t, uint64(2), w.Stats().WallContacts)
}

func TestWorldInPipeline(t *testing.T) {
	course := testCourse(t)
	body := physics.NewRigidBody("car", physics.Pose{}, 0)
	body.SetVelocity(physics.Vec3{Z: 10})
	feed := &feedRecorder{}
	w, err := New(DefaultConfig(), body, course, nil, feed, nil)
	require.NoError(t, err)

	p := systems.NewPipeline(body, w)
	for i := 0; i < 50; i++ {
		require.NoError(t, p.FixedUpdate(20*time.Millisecond))
	}
	assert.InDelta(t, 10, body.Pose().Position.Z, 1e-9)
	assert.Equal(t, []string{"CP0", "CP1"}, feed.entered)
}
