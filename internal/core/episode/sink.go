package episode

// RewardSink receives signed reward deltas. The supervisor never reads
// cumulative reward back.
type RewardSink interface {
	AddReward(delta float64)
}

// EndSink receives the episode-ended signal.
type EndSink interface {
	EpisodeEnded(result Result)
}

// Sink is the trainer side of the supervisor.
type Sink interface {
	RewardSink
	EndSink
}

// Accumulator is a Sink that buffers rewards between drains, the way a
// gym-style step loop reports them.
type Accumulator struct {
	pending float64
	total   float64
	done    bool
	results int
}

func NewAccumulator() *Accumulator { return &Accumulator{} }

func (a *Accumulator) AddReward(delta float64) {
	a.pending += delta
	a.total += delta
}

func (a *Accumulator) EpisodeEnded(Result) {
	a.done = true
	a.results++
}

// Drain returns the reward accumulated since the previous Drain and whether
// an episode ended in the meantime, then clears both.
func (a *Accumulator) Drain() (reward float64, done bool) {
	reward, done = a.pending, a.done
	a.pending, a.done = 0, false
	return reward, done
}

// Total is the reward accumulated since construction.
func (a *Accumulator) Total() float64 { return a.total }

// Episodes counts ended episodes.
func (a *Accumulator) Episodes() int { return a.results }
