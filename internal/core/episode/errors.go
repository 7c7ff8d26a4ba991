package episode

import "errors"

var (
	ErrEpisodeNotRunning = errors.New("episode is not running, call Begin first")
	ErrInvalidTick       = errors.New("tick duration must be positive")
	ErrInvalidConfig     = errors.New("invalid episode configuration")
	ErrObservationSize   = errors.New("observation size does not match the configured layout")
	ErrUnknownMode       = errors.New("unknown observation mode")
	ErrMissingDependency = errors.New("missing supervisor dependency")
)
