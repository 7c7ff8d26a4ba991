// Package config loads racer settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/racer/internal/arena"
	"github.com/zeusync/racer/internal/core/episode"
	"github.com/zeusync/racer/internal/core/observability/log"
	"github.com/zeusync/racer/internal/core/systems/physics"
	"github.com/zeusync/racer/internal/core/track"
	"github.com/zeusync/racer/internal/core/vehicle"
	"github.com/zeusync/racer/internal/core/world"
	"github.com/zeusync/racer/internal/env"
	"github.com/zeusync/racer/internal/server"
	"github.com/zeusync/racer/internal/storage"
)

// EnvVar names the environment variable holding the config path.
const EnvVar = "RACER_CONFIG"

// Arena policies.
const (
	PolicyRandom  = "random"
	PolicyHeading = "heading"
)

// Settings is the root of a racer configuration file.
type Settings struct {
	Vehicle     vehicle.Settings    `json:"vehicle" yaml:"vehicle"`
	Rewards     episode.Rewards     `json:"rewards" yaml:"rewards"`
	Episode     EpisodeSettings     `json:"episode" yaml:"episode"`
	Observation ObservationSettings `json:"observation" yaml:"observation"`
	Track       TrackSettings       `json:"track" yaml:"track"`
	Logging     LoggingSettings     `json:"logging" yaml:"logging"`
	Storage     StorageSettings     `json:"storage" yaml:"storage"`
	Server      server.Config       `json:"server" yaml:"server"`
	Arena       ArenaSettings       `json:"arena" yaml:"arena"`
}

type EpisodeSettings struct {
	CheckpointTimeout       time.Duration `json:"checkpoint_timeout" yaml:"checkpoint_timeout"`
	Tick                    time.Duration `json:"tick" yaml:"tick"`
	WrapCheckpoints         bool          `json:"wrap_checkpoints" yaml:"wrap_checkpoints"`
	PenalizeWrongCheckpoint bool          `json:"penalize_wrong_checkpoint" yaml:"penalize_wrong_checkpoint"`
}

type ObservationSettings struct {
	Mode string `json:"mode" yaml:"mode"`
	Size int    `json:"size" yaml:"size"` // 0 accepts whatever the mode produces
}

type TrackSettings struct {
	Checkpoints      []track.Spec `json:"checkpoints" yaml:"checkpoints"`
	Walls            []world.Wall `json:"walls" yaml:"walls"`
	Start            physics.Pose `json:"start" yaml:"start"`
	VehicleRadius    float64      `json:"vehicle_radius" yaml:"vehicle_radius"`
	CheckpointRadius float64      `json:"checkpoint_radius" yaml:"checkpoint_radius"`
}

type LoggingSettings struct {
	Level       string   `json:"level" yaml:"level"`
	Encoding    string   `json:"encoding" yaml:"encoding"`
	OutputPaths []string `json:"output_paths" yaml:"output_paths"`
}

type StorageSettings struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	storage.Config `yaml:",inline"`
}

type ArenaSettings struct {
	arena.Config `yaml:",inline"`
	Policy       string `json:"policy" yaml:"policy"`
	Seed         uint64 `json:"seed" yaml:"seed"`
}

// Default returns the stock tuning on the bundled ring course.
func Default() Settings {
	ep := episode.DefaultConfig()
	w := world.DefaultConfig()
	return Settings{
		Vehicle: vehicle.DefaultSettings(),
		Rewards: episode.DefaultRewards(),
		Episode: EpisodeSettings{
			CheckpointTimeout:       ep.CheckpointTimeout,
			Tick:                    20 * time.Millisecond,
			PenalizeWrongCheckpoint: ep.PenalizeWrongCheckpoint,
		},
		Observation: ObservationSettings{Mode: string(ep.Observation)},
		Track: TrackSettings{
			Checkpoints:      DefaultCourse(),
			VehicleRadius:    w.VehicleRadius,
			CheckpointRadius: w.CheckpointRadius,
		},
		Logging: LoggingSettings{Level: "info", Encoding: "json"},
		Storage: StorageSettings{Config: storage.DefaultConfig()},
		Server:  server.DefaultServerConfig(),
		Arena:   ArenaSettings{Config: arena.DefaultConfig(), Policy: PolicyRandom, Seed: 1},
	}
}

// DefaultCourse is a ring of eight checkpoints that starts tangent to the
// origin heading +Z and curves clockwise. The last checkpoint stops short of
// the start so a car at the start pose touches no zone.
func DefaultCourse() []track.Spec {
	const (
		ringRadius = 60.0
		count      = 8
	)
	specs := make([]track.Spec, count)
	for i := range specs {
		theta := float64(i+1) * 40 * math.Pi / 180
		specs[i] = track.Spec{
			Label: fmt.Sprintf("Checkpoint (%d)", i+1),
			Position: physics.Vec3{
				X: ringRadius - ringRadius*math.Cos(theta),
				Z: ringRadius * math.Sin(theta),
			},
			Radius: 4,
		}
	}
	return specs
}

// Load reads a YAML file over the defaults.
func Load(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()
	return LoadYAML(f)
}

// LoadYAML decodes r over the defaults and validates the result. Unknown
// keys are rejected.
func LoadYAML(r io.Reader) (Settings, error) {
	s := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks every section and joins the problems found.
func (s Settings) Validate() error {
	var errs []error
	if err := s.Vehicle.Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.Episode.Tick <= 0 {
		errs = append(errs, errors.New("episode.tick must be positive"))
	}
	if _, err := s.EpisodeConfig(); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.Course(); err != nil {
		errs = append(errs, err)
	}
	if err := s.WorldConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if s.Storage.Enabled && s.Storage.Driver != storage.DriverSQLite && s.Storage.Driver != storage.DriverPostgres {
		errs = append(errs, fmt.Errorf("%w: %q", storage.ErrUnknownDriver, s.Storage.Driver))
	}
	if err := s.Server.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Arena.Config.Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.Arena.Policy != PolicyRandom && s.Arena.Policy != PolicyHeading {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownPolicy, s.Arena.Policy))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// EpisodeConfig assembles the supervisor configuration.
func (s Settings) EpisodeConfig() (episode.Config, error) {
	mode, err := episode.ParseObservationMode(s.Observation.Mode)
	if err != nil {
		return episode.Config{}, err
	}
	cfg := episode.Config{
		Rewards:                 s.Rewards,
		CheckpointTimeout:       s.Episode.CheckpointTimeout,
		PenalizeWrongCheckpoint: s.Episode.PenalizeWrongCheckpoint,
		Observation:             mode,
		ObservationSize:         s.Observation.Size,
	}
	return cfg, cfg.Validate()
}

func (s Settings) AdvancePolicy() track.AdvancePolicy {
	if s.Episode.WrapCheckpoints {
		return track.Wrap
	}
	return track.Strict
}

func (s Settings) WorldConfig() world.Config {
	return world.Config{VehicleRadius: s.Track.VehicleRadius, CheckpointRadius: s.Track.CheckpointRadius}
}

// Course builds the ordered course from the configured checkpoints.
func (s Settings) Course() (*track.Course, error) {
	return track.NewCourse(s.Track.Checkpoints)
}

// EnvConfig assembles the per-instance environment configuration.
func (s Settings) EnvConfig() (env.Config, error) {
	ep, err := s.EpisodeConfig()
	if err != nil {
		return env.Config{}, err
	}
	return env.Config{
		Vehicle: s.Vehicle,
		Episode: ep,
		World:   s.WorldConfig(),
		Policy:  s.AdvancePolicy(),
		Tick:    s.Episode.Tick,
		Start:   s.Track.Start,
	}, nil
}

func (s Settings) LogLevel() (log.Level, error) {
	return log.ParseLevel(s.Logging.Level)
}

// LogOptions maps the logging section onto the logger options.
func (s Settings) LogOptions() (log.Options, error) {
	level, err := s.LogLevel()
	if err != nil {
		return log.Options{}, err
	}
	return log.Options{Level: level, Encoding: s.Logging.Encoding, OutputPaths: s.Logging.OutputPaths}, nil
}

// PolicyFactory returns the arena policy factory. Each agent gets its own
// seed derived from Arena.Seed.
func (s Settings) PolicyFactory() (arena.PolicyFactory, error) {
	ep, err := s.EpisodeConfig()
	if err != nil {
		return nil, err
	}
	switch s.Arena.Policy {
	case PolicyRandom:
		seed := s.Arena.Seed
		return func(agent int) env.Policy { return env.NewRandomPolicy(seed + uint64(agent)) }, nil
	case PolicyHeading:
		return func(int) env.Policy { return env.NewHeadingPolicy(ep.Observation) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, s.Arena.Policy)
	}
}
