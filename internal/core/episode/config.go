package episode

import (
	"fmt"
	"time"
)

// Rewards are the signed reward magnitudes emitted by the supervisor.
type Rewards struct {
	Checkpoint      float64 `json:"checkpoint" yaml:"checkpoint"`
	Wall            float64 `json:"wall" yaml:"wall"`
	Time            float64 `json:"time" yaml:"time"` // every tick
	Completion      float64 `json:"completion" yaml:"completion"`
	Timeout         float64 `json:"timeout" yaml:"timeout"`
	WrongCheckpoint float64 `json:"wrong_checkpoint" yaml:"wrong_checkpoint"`
	// ThrottleBonusScale adds throttle*scale every tick. 0.02 reproduces the
	// throttle/50 shaping some trained policies expect.
	ThrottleBonusScale float64 `json:"throttle_bonus_scale" yaml:"throttle_bonus_scale"`
}

// Config is the immutable episode tuning. Runtime state lives in Supervisor.
type Config struct {
	Rewards           Rewards       `json:"rewards" yaml:"rewards"`
	CheckpointTimeout time.Duration `json:"checkpoint_timeout" yaml:"checkpoint_timeout"`
	// PenalizeWrongCheckpoint ends the episode with Rewards.WrongCheckpoint
	// when a checkpoint other than the expected one is entered. When false
	// such arrivals are ignored.
	PenalizeWrongCheckpoint bool            `json:"penalize_wrong_checkpoint" yaml:"penalize_wrong_checkpoint"`
	Observation             ObservationMode `json:"observation" yaml:"observation"`
	// ObservationSize pins the layout the external policy was trained with.
	// Zero skips the check.
	ObservationSize int `json:"observation_size" yaml:"observation_size"`
}

// DefaultRewards returns the stock reward shaping.
func DefaultRewards() Rewards {
	return Rewards{
		Checkpoint:      1.0,
		Wall:            -1.0,
		Time:            -0.001,
		Completion:      25.0,
		Timeout:         -5.0,
		WrongCheckpoint: -25.0,
	}
}

// DefaultConfig returns the stock episode configuration.
func DefaultConfig() Config {
	return Config{
		Rewards:                 DefaultRewards(),
		CheckpointTimeout:       30 * time.Second,
		PenalizeWrongCheckpoint: true,
		Observation:             ObservationPlanar,
	}
}

func (c Config) Validate() error {
	if c.CheckpointTimeout <= 0 {
		return fmt.Errorf("%w: checkpoint_timeout must be positive", ErrInvalidConfig)
	}
	if !c.Observation.Valid() {
		return fmt.Errorf("%w: %w %q", ErrInvalidConfig, ErrUnknownMode, c.Observation)
	}
	if c.ObservationSize != 0 && c.ObservationSize != c.Observation.Size() {
		return fmt.Errorf("%w: %s has %d values, configured %d",
			ErrObservationSize, c.Observation, c.Observation.Size(), c.ObservationSize)
	}
	return nil
}
