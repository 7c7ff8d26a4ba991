package world

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zeusync/racer/internal/core/observability/log"
	"github.com/zeusync/racer/internal/core/systems"
	"github.com/zeusync/racer/internal/core/systems/physics"
	"github.com/zeusync/racer/internal/core/track"
)

var _ systems.System = (*World)(nil)

// Feed receives contact events. The episode supervisor implements it.
type Feed interface {
	CheckpointEntered(cp *track.Checkpoint)
	WallCollision()
}

// Wall is an axis-aligned solid box.
type Wall struct {
	Name string       `json:"name" yaml:"name"`
	Min  physics.Vec3 `json:"min" yaml:"min"`
	Max  physics.Vec3 `json:"max" yaml:"max"`
}

func (w Wall) validate() error {
	if w.Min.X > w.Max.X || w.Min.Y > w.Max.Y || w.Min.Z > w.Max.Z {
		return fmt.Errorf("%w: %q", ErrInvalidWall, w.Name)
	}
	return nil
}

// closest returns the point of the box nearest to p.
func (w Wall) closest(p physics.Vec3) physics.Vec3 {
	return physics.Vec3{
		X: physics.Clamp(p.X, w.Min.X, w.Max.X),
		Y: physics.Clamp(p.Y, w.Min.Y, w.Max.Y),
		Z: physics.Clamp(p.Z, w.Min.Z, w.Max.Z),
	}
}

// Config holds the contact geometry of the harness.
type Config struct {
	// VehicleRadius is the radius of the sphere approximating the car.
	VehicleRadius float64 `json:"vehicle_radius" yaml:"vehicle_radius"`
	// CheckpointRadius is used for checkpoints declared without a radius.
	CheckpointRadius float64 `json:"checkpoint_radius" yaml:"checkpoint_radius"`
}

func DefaultConfig() Config {
	return Config{VehicleRadius: 0.5, CheckpointRadius: 2}
}

func (c Config) Validate() error {
	if c.VehicleRadius < 0 || c.CheckpointRadius < 0 {
		return ErrInvalidShape
	}
	return nil
}

// Stats counts contact transitions since construction.
type Stats struct {
	CheckpointEntries uint64
	WallContacts      uint64
}

// World detects trigger-zone entries and wall contacts for one body. Events
// fire on the transition from outside to inside only, like enter callbacks
// of a game engine; staying inside a zone never repeats the event.
type World struct {
	cfg    Config
	body   physics.Body
	course *track.Course
	walls  []Wall
	feed   Feed
	logger log.Log

	inZone []bool
	inWall []bool
	stats  Stats
}

// New binds the world to the body and course. Walls are copied.
func New(cfg Config, body physics.Body, course *track.Course, walls []Wall, feed Feed, logger log.Log) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, ErrNilBody
	}
	if feed == nil {
		return nil, ErrNilFeed
	}
	for _, w := range walls {
		if err := w.validate(); err != nil {
			return nil, err
		}
	}

	return &World{
		cfg:    cfg,
		body:   body,
		course: course,
		walls:  append([]Wall(nil), walls...),
		feed:   feed,
		logger: log.OrNop(logger),
		inZone: make([]bool, course.Len()),
		inWall: make([]bool, len(walls)),
	}, nil
}

func (w *World) Name() string { return "world" }

func (w *World) Walls() []Wall { return append([]Wall(nil), w.walls...) }

func (w *World) Stats() Stats { return w.stats }

// FixedUpdate checks the body's current position against every zone and
// wall. Run it after the body has been integrated for the tick.
func (w *World) FixedUpdate(time.Duration) error {
	pos := w.body.Pose().Position

	for i, cp := range w.course.Checkpoints() {
		r := w.zoneRadius(cp) + w.cfg.VehicleRadius
		inside := r3.Norm2(r3.Sub(pos, cp.Position())) <= r*r
		entered := inside && !w.inZone[i]
		w.inZone[i] = inside
		if entered {
			w.stats.CheckpointEntries++
			w.logger.Debug("Checkpoint zone entered",
				log.String("checkpoint", cp.Label()),
				log.Int("checkpoint_index", cp.Index()))
			w.feed.CheckpointEntered(cp)
		}
	}

	for i, wall := range w.walls {
		r := w.cfg.VehicleRadius
		inside := r3.Norm2(r3.Sub(pos, wall.closest(pos))) <= r*r
		entered := inside && !w.inWall[i]
		w.inWall[i] = inside
		if entered {
			w.stats.WallContacts++
			w.logger.Debug("Wall contact", log.String("wall", wall.Name))
			w.feed.WallCollision()
		}
	}
	return nil
}

// Reset forgets contact state so a body placed back at the start is judged
// afresh on the next tick.
func (w *World) Reset() error {
	clear(w.inZone)
	clear(w.inWall)
	return nil
}

func (w *World) zoneRadius(cp *track.Checkpoint) float64 {
	if cp.Radius() > 0 {
		return cp.Radius()
	}
	return w.cfg.CheckpointRadius
}
