package track

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zeusync/racer/internal/core/events"
	"github.com/zeusync/racer/internal/core/systems/physics"
)

// AdvancePolicy decides what happens after the last checkpoint.
type AdvancePolicy uint8

const (
	// Strict stops at N: reaching the last checkpoint completes the course.
	Strict AdvancePolicy = iota
	// Wrap continues with checkpoint 0 for endless laps.
	Wrap
)

func (p AdvancePolicy) String() string {
	if p == Wrap {
		return "wrap"
	}
	return "strict"
}

// ParseAdvancePolicy accepts "strict" and "wrap".
func ParseAdvancePolicy(s string) (AdvancePolicy, error) {
	switch strings.ToLower(s) {
	case "", "strict":
		return Strict, nil
	case "wrap":
		return Wrap, nil
	default:
		return Strict, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Advance reports the progress made by a valid arrival.
type Advance struct {
	Index        int  // next expected index after the arrival
	LapCompleted bool // the last checkpoint of a lap was reached
	Completed    bool // strict policy: Index == N
}

// Event payloads.
type (
	BuiltPayload struct {
		Labels      []string
		Fingerprint uint64
		Policy      string
	}
	AdvancedPayload struct {
		Label string
		Advance
		Laps int
	}
	ResetPayload struct {
		Laps int
	}
)

// Tracker holds one agent's progress along a Course.
type Tracker struct {
	course    *Course
	policy    AdvancePolicy
	current   int
	laps      int
	publisher events.Publisher
	source    string
}

type Option func(*Tracker)

// WithPolicy selects the advance policy. Strict is the default.
func WithPolicy(p AdvancePolicy) Option { return func(t *Tracker) { t.policy = p } }

// WithPublisher attaches an observability hook.
func WithPublisher(p events.Publisher, source string) Option {
	return func(t *Tracker) {
		t.publisher = p
		t.source = source
	}
}

// NewTracker creates a tracker at index 0.
func NewTracker(course *Course, opts ...Option) (*Tracker, error) {
	if course == nil || course.Len() == 0 {
		return nil, ErrNoCheckpoints
	}
	t := &Tracker{course: course}
	for _, opt := range opts {
		opt(t)
	}
	if t.policy > Wrap {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, t.policy)
	}
	events.Emit(t.publisher, events.TrackBuilt, t.source, BuiltPayload{
		Labels:      course.Labels(),
		Fingerprint: course.Fingerprint(),
		Policy:      t.policy.String(),
	})
	return t, nil
}

func (t *Tracker) Course() *Course       { return t.course }
func (t *Tracker) Policy() AdvancePolicy { return t.policy }
func (t *Tracker) CurrentIndex() int     { return t.current }
func (t *Tracker) Total() int            { return t.course.Len() }
func (t *Tracker) Laps() int             { return t.laps }
func (t *Tracker) Completed() bool       { return t.current >= t.course.Len() }

// Progress is the fraction of the current lap already covered.
func (t *Tracker) Progress() float64 {
	return float64(t.current) / float64(t.course.Len())
}

// NextCheckpoint returns the expected checkpoint, or ErrCourseComplete.
func (t *Tracker) NextCheckpoint() (*Checkpoint, error) {
	if t.Completed() {
		return nil, ErrCourseComplete
	}
	return t.course.At(t.current), nil
}

// NextCheckpointDirection is the unnormalized vector from position to the
// expected checkpoint. Calling it on a completed course is a contract
// violation by the driving loop and returns ErrCourseComplete.
func (t *Tracker) NextCheckpointDirection(position physics.Vec3) (physics.Vec3, error) {
	cp, err := t.NextCheckpoint()
	if err != nil {
		return physics.Vec3{}, err
	}
	return r3.Sub(cp.position, position), nil
}

// IsArrivalCorrect reports whether candidate is exactly the expected
// checkpoint. Touching any other checkpoint, including later ones, is not
// progress.
func (t *Tracker) IsArrivalCorrect(candidate *Checkpoint) bool {
	if candidate == nil || t.Completed() {
		return false
	}
	return candidate == t.course.At(t.current)
}

// Advance moves to the next checkpoint according to the policy.
func (t *Tracker) Advance() (Advance, error) {
	n := t.course.Len()
	if t.Completed() {
		return Advance{Index: t.current, Completed: true}, ErrCourseComplete
	}
	label := t.course.At(t.current).label
	t.current++

	var adv Advance
	switch t.policy {
	case Wrap:
		if t.current == n {
			t.current = 0
			t.laps++
			adv.LapCompleted = true
		}
	default:
		if t.current == n {
			t.laps++
			adv.LapCompleted = true
			adv.Completed = true
		}
	}
	adv.Index = t.current
	events.Emit(t.publisher, events.TrackAdvanced, t.source, AdvancedPayload{Label: label, Advance: adv, Laps: t.laps})
	return adv, nil
}

// Reset returns to checkpoint 0 and clears the lap count.
func (t *Tracker) Reset() {
	laps := t.laps
	t.current = 0
	t.laps = 0
	events.Emit(t.publisher, events.TrackReset, t.source, ResetPayload{Laps: laps})
}
