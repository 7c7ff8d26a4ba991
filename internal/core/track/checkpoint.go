package track

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/zeusync/racer/internal/core/systems/physics"
)

// Spec describes one checkpoint as discovered by the world loader.
type Spec struct {
	Label    string       `json:"label" yaml:"label"`
	Position physics.Vec3 `json:"position" yaml:"position"`
	Radius   float64      `json:"radius,omitempty" yaml:"radius,omitempty"`
}

// Checkpoint is an immutable, ordered waypoint. Arrival is checked by pointer
// identity, so callers must hand back the *Checkpoint obtained from the Course.
type Checkpoint struct {
	label    string
	index    int
	position physics.Vec3
	radius   float64
}

func (c *Checkpoint) Label() string          { return c.label }
func (c *Checkpoint) Index() int             { return c.index }
func (c *Checkpoint) Position() physics.Vec3 { return c.position }
func (c *Checkpoint) Radius() float64        { return c.radius }

func (c *Checkpoint) String() string {
	return fmt.Sprintf("%s#%d", c.label, c.index)
}

// Course is the ordered checkpoint sequence of one scene. It is built once
// and is read-only afterwards, so a single Course may back many trackers.
type Course struct {
	sequence    []*Checkpoint
	byLabel     map[string]*Checkpoint
	fingerprint uint64
}

// NewCourse sorts the discovered checkpoints by the first digit run in their
// label (no digits sorts as 0). Checkpoints with equal ordinals keep their
// discovery order. Empty input and duplicate labels are rejected.
func NewCourse(specs []Spec) (*Course, error) {
	if len(specs) == 0 {
		return nil, ErrNoCheckpoints
	}
	sorted := make([]Spec, len(specs))
	copy(sorted, specs)
	slices.SortStableFunc(sorted, func(a, b Spec) int { return compareLabels(a.Label, b.Label) })

	c := &Course{
		sequence: make([]*Checkpoint, len(sorted)),
		byLabel:  make(map[string]*Checkpoint, len(sorted)),
	}
	for i, s := range sorted {
		if s.Radius < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRadius, s.Label)
		}
		if _, dup := c.byLabel[s.Label]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, s.Label)
		}
		cp := &Checkpoint{label: s.Label, index: i, position: s.Position, radius: s.Radius}
		c.sequence[i] = cp
		c.byLabel[s.Label] = cp
	}
	c.fingerprint = fingerprint(c.sequence)
	return c, nil
}

// Len is the total checkpoint count N.
func (c *Course) Len() int { return len(c.sequence) }

// At returns the checkpoint with ordinal index i.
func (c *Course) At(i int) *Checkpoint { return c.sequence[i] }

// Checkpoints returns the ordered sequence.
func (c *Course) Checkpoints() []*Checkpoint {
	return slices.Clone(c.sequence)
}

// Lookup resolves a checkpoint by label.
func (c *Course) Lookup(label string) (*Checkpoint, error) {
	cp, ok := c.byLabel[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return cp, nil
}

// Labels returns the labels in course order.
func (c *Course) Labels() []string {
	out := make([]string, len(c.sequence))
	for i, cp := range c.sequence {
		out[i] = cp.label
	}
	return out
}

// Fingerprint identifies the course layout: order, labels and positions.
func (c *Course) Fingerprint() uint64 { return c.fingerprint }

func fingerprint(seq []*Checkpoint) uint64 {
	h := xxhash.New()
	buf := make([]byte, 0, 64)
	for _, cp := range seq {
		buf = buf[:0]
		buf = append(buf, cp.label...)
		buf = append(buf, 0)
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(cp.position.X))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(cp.position.Y))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(cp.position.Z))
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}
